package booklet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Stats summarises a finished run.
type Stats struct {
	Documents int
	Pages     int
	Batches   int
	Sheets    int
}

// Driver runs a whole conversion: it renders every page of every source
// document, annotates it, batches it onto sheets and saves the output.
type Driver struct {
	opts      Options
	renderer  Renderer
	annotator PageAnnotator
	sink      Sink
}

// NewDriver creates a driver. Options are validated by Run.
func NewDriver(opts Options, renderer Renderer, annotator PageAnnotator, sink Sink) *Driver {
	return &Driver{
		opts:      opts.withDefaults(),
		renderer:  renderer,
		annotator: annotator,
		sink:      sink,
	}
}

// Run converts the configured input. The output is saved only when every
// page was placed; on error nothing is written.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := d.opts.Validate(); err != nil {
		return stats, err
	}
	start := time.Now()

	docs, err := d.documents()
	if err != nil {
		return stats, err
	}
	stats.Documents = len(docs)

	composer := NewComposer(d.sink, d.opts.ImageWidthMM)
	sched := NewScheduler(composer)
	multi := len(docs) > 1

	for _, path := range docs {
		title := ""
		if multi {
			title = CleanTitle(path, d.opts.StripTitleNumbers, d.opts.TitleMaxLength)
		}
		if err := d.convertDocument(ctx, path, title, sched); err != nil {
			sched.Discard()
			return stats, err
		}
	}
	if err := sched.Flush(ctx); err != nil {
		return stats, err
	}

	stats.Pages = sched.Pages()
	stats.Batches = sched.Batches()
	stats.Sheets = composer.Sheets()

	if err := d.sink.Save(d.opts.Output); err != nil {
		return stats, fmt.Errorf("save %s: %w", d.opts.Output, err)
	}
	Logger().Info("conversion finished",
		"documents", stats.Documents, "pages", stats.Pages,
		"batches", stats.Batches, "sheets", stats.Sheets,
		"output", d.opts.Output, "dur", time.Since(start))
	return stats, nil
}

func (d *Driver) convertDocument(ctx context.Context, path, title string, sched *Scheduler) error {
	src, err := d.renderer.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrRenderFailed, path, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			Logger().Warn("close source", "path", path, "err", err)
		}
	}()

	n := src.NumPages()
	Logger().Info("converting document", "path", path, "pages", n, "title", title)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raster, err := src.Render(ctx, i)
		if err != nil {
			return fmt.Errorf("%w: %s page %d: %w", ErrRenderFailed, path, i+1, err)
		}
		page := &Page{Index: sched.Pages(), Title: title, Raster: raster}
		Logger().Debug("rendered page", "path", path, "page", i+1, "index", page.Index)

		if err := d.annotator.Annotate(page); err != nil {
			_ = raster.Release()
			return err
		}
		if err := sched.Add(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

// documents lists the source documents of the run. Folder entries are
// taken in lexical order; sub-directories and dot-files are skipped.
func (d *Driver) documents() ([]string, error) {
	if d.opts.File != "" {
		return []string{d.opts.File}, nil
	}

	entries, err := os.ReadDir(d.opts.Folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", d.opts.Folder, err)
	}
	var docs []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		docs = append(docs, filepath.Join(d.opts.Folder, e.Name()))
	}
	return docs, nil
}
