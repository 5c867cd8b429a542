package booklet

import (
	"context"
	"errors"
	"fmt"
)

// Compositor turns a full or final batch into sheets. *Composer implements it.
type Compositor interface {
	Compose(ctx context.Context, batch []*Page) error
}

type schedulerState int

const (
	accumulating schedulerState = iota
	flushing
)

// Scheduler groups pages into batches of BatchSize and hands each batch to
// a Compositor once it is full, or when Flush is called at the end of a run.
type Scheduler struct {
	composer Compositor
	state    schedulerState
	buf      []*Page
	pages    int
	batches  int
}

// NewScheduler creates a scheduler feeding c.
func NewScheduler(c Compositor) *Scheduler {
	return &Scheduler{
		composer: c,
		buf:      make([]*Page, 0, BatchSize),
	}
}

// Add appends page to the current batch and composes the batch when it
// reaches capacity. A nil page is rejected and leaves the batch untouched.
func (s *Scheduler) Add(ctx context.Context, page *Page) error {
	if s.state == flushing {
		return ErrReentrant
	}
	if page == nil {
		return errors.New("add nil page")
	}
	s.buf = append(s.buf, page)
	s.pages++
	if len(s.buf) < BatchSize {
		return nil
	}
	return s.compose(ctx)
}

// Flush composes a partially filled batch. It does nothing when no page is
// pending.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.state == flushing {
		return ErrReentrant
	}
	if len(s.buf) == 0 {
		return nil
	}
	return s.compose(ctx)
}

// Discard releases every pending page without composing it.
func (s *Scheduler) Discard() {
	releaseAll(s.buf)
	s.buf = s.buf[:0]
}

// Pending returns the number of pages waiting in the current batch.
func (s *Scheduler) Pending() int { return len(s.buf) }

// Pages returns the number of pages added since the scheduler was created.
func (s *Scheduler) Pages() int { return s.pages }

// Batches returns the number of batches composed.
func (s *Scheduler) Batches() int { return s.batches }

func (s *Scheduler) compose(ctx context.Context) error {
	batch := s.buf
	s.buf = make([]*Page, 0, BatchSize)
	s.state = flushing
	defer func() { s.state = accumulating }()

	Logger().Info("composing batch", "batch", s.batches+1, "pages", len(batch), "first", batch[0].Index)
	if err := s.composer.Compose(ctx, batch); err != nil {
		releaseAll(batch)
		return fmt.Errorf("compose batch %d: %w", s.batches+1, err)
	}
	s.batches++
	return nil
}

func releaseAll(pages []*Page) {
	for _, p := range pages {
		if p == nil {
			continue
		}
		if err := p.Raster.Release(); err != nil {
			Logger().Warn("release raster", "page", p.Index, "err", err)
		}
	}
}
