// Package pdf rasterises source documents for booklet conversion and writes
// composed booklet sheets as a PDF document.
package pdf

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
)

// DefaultDPI is the resolution pages are rasterised at.
const DefaultDPI = 200

// RenderOptions contains options for rasterising source documents
type RenderOptions struct {
	DPI      float64 // Resolution in DPI (default 200)
	Gray     bool    // Render in grayscale
	Pdftoppm string  // pdftoppm executable (default "pdftoppm" from PATH)
	Pdfinfo  string  // pdfinfo executable (default "pdfinfo" from PATH)
	TempDir  string  // Directory for transient rasters (default os.TempDir)
	OwnerPwd string  // Owner password
	UserPwd  string  // User password
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Pdftoppm == "" {
		o.Pdftoppm = "pdftoppm"
	}
	if o.Pdfinfo == "" {
		o.Pdfinfo = "pdfinfo"
	}
	return o
}

// Renderer opens source documents by type: image files become single page
// documents, everything else is handed to poppler.
type Renderer struct {
	poppler *PopplerRenderer
	images  *ImageRenderer
}

// NewRenderer creates a renderer for PDF and image sources.
func NewRenderer(options RenderOptions) *Renderer {
	return &Renderer{
		poppler: NewPopplerRenderer(options),
		images:  NewImageRenderer(options),
	}
}

var _ booklet.Renderer = (*Renderer)(nil)

// Open opens the document at path.
func (r *Renderer) Open(ctx context.Context, path string) (booklet.Source, error) {
	if IsImageFile(path) {
		return r.images.Open(ctx, path)
	}
	return r.poppler.Open(ctx, path)
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImageFile reports whether path names a raster image source.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}
