package booklet

import (
	"context"
	"image"
)

// Raster is a rendered page image together with whatever backs it
// (a temporary file, a pooled buffer). Release frees the backing storage.
type Raster struct {
	Image   *image.RGBA
	release func() error
}

// NewRaster wraps img. release may be nil when nothing backs the image.
func NewRaster(img *image.RGBA, release func() error) *Raster {
	return &Raster{Image: img, release: release}
}

// Release drops the image and frees its backing storage. It is safe to call
// more than once; only the first call reaches the release hook.
func (r *Raster) Release() error {
	if r == nil {
		return nil
	}
	r.Image = nil
	fn := r.release
	r.release = nil
	if fn == nil {
		return nil
	}
	return fn()
}

// Page is one rendered source page on its way to a sheet.
type Page struct {
	// Index is the zero-based position of the page across the whole run.
	Index  int
	Title  string
	Raster *Raster
}

// Renderer opens source documents for rasterisation.
type Renderer interface {
	Open(ctx context.Context, path string) (Source, error)
}

// Source is an opened source document. Pages are addressed zero-based and
// are rendered in the order they are requested.
type Source interface {
	NumPages() int
	Render(ctx context.Context, index int) (*Raster, error)
	Close() error
}

// Sink receives composed sheets and persists the output document.
type Sink interface {
	// NewSheet appends an empty 2x2 grid to the document.
	NewSheet() (Sheet, error)
	// PageBreak ends the current output page.
	PageBreak() error
	// Save writes the document to path. It is called once per run.
	Save(path string) error
}

// Sheet is a grid that accepts images into its cells.
type Sheet interface {
	// Place puts img into the cell at (row, column), scaled to widthMM
	// millimetres wide. The image may be released as soon as Place returns.
	Place(row, column int, img image.Image, widthMM float64) (Region, error)
}

// Region is the paragraph of a cell holding a placed image.
type Region interface {
	SetAlignment(Alignment)
}
