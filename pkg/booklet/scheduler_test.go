package booklet

import (
	"context"
	"errors"
	"testing"
)

type batchRecorder struct {
	batches [][]int
	err     error
	onCall  func()
}

func (r *batchRecorder) Compose(_ context.Context, batch []*Page) error {
	if r.onCall != nil {
		r.onCall()
	}
	if r.err != nil {
		return r.err
	}
	var idx []int
	for _, p := range batch {
		idx = append(idx, p.Index)
	}
	r.batches = append(r.batches, idx)
	return nil
}

func TestSchedulerComposesFullBatches(t *testing.T) {
	rec := &batchRecorder{}
	s := NewScheduler(rec)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if err := s.Add(ctx, newTestPage(i, nil)); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	if len(rec.batches) != 1 || len(rec.batches[0]) != 8 {
		t.Fatalf("batches after 9 adds = %v, want one batch of 8", rec.batches)
	}
	if s.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", s.Pending())
	}

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(rec.batches) != 2 || len(rec.batches[1]) != 1 || rec.batches[1][0] != 8 {
		t.Fatalf("batches = %v, want second batch [8]", rec.batches)
	}
	if s.Pages() != 9 || s.Batches() != 2 || s.Pending() != 0 {
		t.Errorf("pages=%d batches=%d pending=%d", s.Pages(), s.Batches(), s.Pending())
	}
}

func TestSchedulerFlushEmpty(t *testing.T) {
	rec := &batchRecorder{}
	s := NewScheduler(rec)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.batches) != 0 || s.Batches() != 0 {
		t.Errorf("empty flush composed %v", rec.batches)
	}
}

// TestSchedulerCountersNeverReset checks page counts carry across batches
func TestSchedulerCountersNeverReset(t *testing.T) {
	rec := &batchRecorder{}
	s := NewScheduler(rec)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := s.Add(ctx, newTestPage(s.Pages(), nil)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	next := 0
	for _, b := range rec.batches {
		for _, idx := range b {
			if idx != next {
				t.Fatalf("batches = %v, indices not consecutive", rec.batches)
			}
			next++
		}
	}
	if next != 20 || s.Batches() != 3 {
		t.Errorf("composed %d pages in %d batches", next, s.Batches())
	}
}

func TestSchedulerReentrancy(t *testing.T) {
	rec := &batchRecorder{}
	s := NewScheduler(rec)
	ctx := context.Background()

	var addErr, flushErr error
	rec.onCall = func() {
		addErr = s.Add(ctx, newTestPage(99, nil))
		flushErr = s.Flush(ctx)
	}
	for i := 0; i < BatchSize; i++ {
		if err := s.Add(ctx, newTestPage(i, nil)); err != nil {
			t.Fatal(err)
		}
	}

	if !errors.Is(addErr, ErrReentrant) || !errors.Is(flushErr, ErrReentrant) {
		t.Errorf("re-entrant calls returned %v, %v", addErr, flushErr)
	}
	if s.Pending() != 0 || s.Pages() != BatchSize {
		t.Errorf("re-entrant add changed state: pending=%d pages=%d", s.Pending(), s.Pages())
	}

	rec.onCall = nil
	if err := s.Add(ctx, newTestPage(BatchSize, nil)); err != nil {
		t.Errorf("Add after compose: %v", err)
	}
}

func TestSchedulerComposeErrorReleases(t *testing.T) {
	rec := &batchRecorder{err: errors.New("disk full")}
	s := NewScheduler(rec)

	var released []int
	var err error
	for i := 0; i < BatchSize && err == nil; i++ {
		err = s.Add(context.Background(), newTestPage(i, &released))
	}
	if err == nil {
		t.Fatal("expected compose error")
	}
	if len(released) != BatchSize {
		t.Errorf("released %d rasters, want %d", len(released), BatchSize)
	}
	if s.Batches() != 0 {
		t.Errorf("Batches() = %d after failure", s.Batches())
	}
}

func TestSchedulerDiscard(t *testing.T) {
	s := NewScheduler(&batchRecorder{})
	var released []int
	for i := 0; i < 3; i++ {
		if err := s.Add(context.Background(), newTestPage(i, &released)); err != nil {
			t.Fatal(err)
		}
	}
	s.Discard()
	if s.Pending() != 0 || len(released) != 3 {
		t.Errorf("pending=%d released=%v", s.Pending(), released)
	}
}

func TestSchedulerRejectsNilPage(t *testing.T) {
	rec := &batchRecorder{}
	s := NewScheduler(rec)
	ctx := context.Background()

	if err := s.Add(ctx, nil); err == nil {
		t.Fatal("Add(nil) should fail")
	}
	if s.Pending() != 0 || s.Pages() != 0 {
		t.Errorf("pending = %d, pages = %d after nil add, want 0, 0", s.Pending(), s.Pages())
	}
	for i := 0; i < BatchSize; i++ {
		if err := s.Add(ctx, newTestPage(i, nil)); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	if len(rec.batches) != 1 || rec.batches[0][0] != 0 {
		t.Errorf("batches = %v, want one batch starting at page 0", rec.batches)
	}
}
