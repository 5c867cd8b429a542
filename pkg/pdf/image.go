package pdf

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
)

// a4WidthMM bounds the width of image sources: an image is never kept wider
// than an A4 page rendered at the configured DPI.
const a4WidthMM = 210.0

// ImageRenderer treats raster image files as single page documents.
type ImageRenderer struct {
	options RenderOptions
}

// NewImageRenderer creates an image file renderer
func NewImageRenderer(options RenderOptions) *ImageRenderer {
	return &ImageRenderer{options: options.withDefaults()}
}

// Open validates that path holds a decodable image.
func (r *ImageRenderer) Open(_ context.Context, path string) (booklet.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unsupported image %s: %w", path, err)
	}
	booklet.Logger().Debug("opened image source", "path", path, "format", format)
	return &imageSource{path: path, options: r.options}, nil
}

type imageSource struct {
	path    string
	options RenderOptions
}

func (s *imageSource) NumPages() int { return 1 }

func (s *imageSource) Render(ctx context.Context, index int) (*booklet.Raster, error) {
	if index != 0 {
		return nil, fmt.Errorf("invalid page number: %d", index+1)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	maxWidth := int(math.Round(a4WidthMM / 25.4 * s.options.DPI))
	img := fitWidth(src, maxWidth)
	if s.options.Gray {
		img = toGray(img)
	}
	return booklet.NewRaster(img, nil), nil
}

func (s *imageSource) Close() error { return nil }

// fitWidth scales src down to maxWidth pixels wide, keeping its aspect
// ratio. Narrower images are only converted.
func fitWidth(src image.Image, maxWidth int) *image.RGBA {
	b := src.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return toRGBA(src)
	}
	height := int(math.Round(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// toRGBA returns img as an *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

func toGray(img *image.RGBA) *image.RGBA {
	gray := image.NewGray(img.Bounds())
	xdraw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return toRGBA(gray)
}
