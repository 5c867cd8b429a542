package booklet

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Reference raster: an A4 page rendered at 200 DPI. Annotation coordinates
// are expressed against it and scaled to the actual raster size.
const (
	refWidth  = 1654
	refHeight = 2339

	refTextY  = 2200
	refLeftX  = 130
	refRightX = 1500
	refTitleX = 270
	refFontPx = 40
)

// PageAnnotator stamps labels onto a page raster before it is scheduled.
type PageAnnotator interface {
	Annotate(page *Page) error
}

// Layout holds the top-left corners of the annotation labels, in pixels.
type Layout struct {
	Counter  image.Point
	Title    image.Point
	FontSize float64
}

// LayoutFor computes label positions for the page with global index on a
// raster with the given bounds. Even indices put the counter at the left
// margin, odd indices at the right margin, so counters land symmetrically
// on facing pages. The title always sits at the left margin.
func LayoutFor(index int, bounds image.Rectangle) Layout {
	sx := float64(bounds.Dx()) / refWidth
	sy := float64(bounds.Dy()) / refHeight

	counterX := refLeftX
	if index%2 == 1 {
		counterX = refRightX
	}
	y := bounds.Min.Y + int(refTextY*sy)
	return Layout{
		Counter:  image.Pt(bounds.Min.X+int(float64(counterX)*sx), y),
		Title:    image.Pt(bounds.Min.X+int(refTitleX*sx), y),
		FontSize: refFontPx * sy,
	}
}

// CounterLabel is the printed page number for a global index.
func CounterLabel(index int) string {
	return fmt.Sprintf("%03d", index+1)
}

// Annotator draws the page counter and document title with a TrueType font.
type Annotator struct {
	font  *truetype.Font
	color color.Color
}

// NewAnnotator creates an annotator drawing black text in f.
func NewAnnotator(f *truetype.Font) *Annotator {
	return &Annotator{font: f, color: color.Black}
}

// Annotate stamps the page in place.
func (a *Annotator) Annotate(page *Page) error {
	if page.Raster == nil || page.Raster.Image == nil {
		return fmt.Errorf("page %d has no raster", page.Index)
	}
	img := page.Raster.Image
	l := LayoutFor(page.Index, img.Bounds())

	face := truetype.NewFace(a.font, &truetype.Options{Size: l.FontSize, DPI: 72})
	defer face.Close()
	ascent := face.Metrics().Ascent

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(a.font)
	c.SetFontSize(l.FontSize)
	c.SetHinting(font.HintingNone)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(a.color))

	draw := func(at image.Point, text string) error {
		pt := fixed.Point26_6{X: fixed.I(at.X), Y: fixed.I(at.Y) + ascent}
		_, err := c.DrawString(text, pt)
		return err
	}

	if err := draw(l.Counter, CounterLabel(page.Index)); err != nil {
		return fmt.Errorf("draw counter on page %d: %w", page.Index, err)
	}
	if page.Title != "" {
		if err := draw(l.Title, page.Title); err != nil {
			return fmt.Errorf("draw title on page %d: %w", page.Index, err)
		}
	}
	return nil
}
