// Package docx writes booklet sheets as a WordprocessingML document: every
// sheet is a 2x2 table of pictures, sheets are separated by page breaks and
// the section has zero margins on an A4 page.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	godocx "github.com/fumiama/go-docx"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
)

// Page geometry in twentieths of a point (twips) and English Metric Units.
const (
	a4WidthTwips  = 11906
	a4HeightTwips = 16838
	cellTwips     = a4WidthTwips / booklet.GridColumns
	emuPerMM      = 36000
)

// Options controls the DOCX writer
type Options struct {
	JPEGQuality int // Quality of embedded page images (default 90)
}

// Writer builds a document in memory; Save packs and writes it.
type Writer struct {
	options Options
	doc     *godocx.Docx
	sheet   *table
	breaks  int
	saved   bool
}

// NewWriter creates an empty document
func NewWriter(options Options) *Writer {
	if options.JPEGQuality <= 0 || options.JPEGQuality > 100 {
		options.JPEGQuality = 90
	}
	return &Writer{
		options: options,
		doc:     godocx.New().WithDefaultTheme(),
	}
}

var _ booklet.Sink = (*Writer)(nil)

// NewSheet appends a 2x2 table. The previous table is closed first.
func (w *Writer) NewSheet() (booklet.Sheet, error) {
	if w.saved {
		return nil, errors.New("document already saved")
	}
	w.closeTable()

	heights := make([]int64, booklet.GridRows)
	widths := make([]int64, booklet.GridColumns)
	for c := range widths {
		widths[c] = cellTwips
	}
	tbl := w.doc.AddTableTwips(heights, widths, 0, nil).Justification("center")
	w.sheet = &table{w: w, tbl: tbl}
	return w.sheet, nil
}

// PageBreak closes the current table and starts a new page.
func (w *Writer) PageBreak() error {
	if w.saved {
		return errors.New("document already saved")
	}
	w.closeTable()
	w.doc.AddParagraph().AddPageBreaks()
	w.breaks++
	return nil
}

// PageBreaks returns the number of page breaks written.
func (w *Writer) PageBreaks() int {
	return w.breaks
}

// Save writes the document package to path atomically.
func (w *Writer) Save(path string) error {
	if w.saved {
		return errors.New("document already saved")
	}
	w.closeTable()
	w.saved = true

	// The section properties close the body.
	w.doc.Document.Body.Items = append(w.doc.Document.Body.Items, &godocx.SectPr{
		PgSz:  &godocx.PgSz{W: a4WidthTwips, H: a4HeightTwips},
		PgMar: &godocx.PgMar{},
	})

	booklet.Logger().Debug("writing docx", "path", path, "breaks", w.breaks)
	return booklet.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := w.doc.WriteTo(out)
		return err
	})
}

// closeTable gives every unfilled cell its mandatory empty paragraph.
func (w *Writer) closeTable() {
	if w.sheet == nil {
		return
	}
	for _, row := range w.sheet.tbl.TableRows {
		for _, cell := range row.TableCells {
			if len(cell.Paragraphs) == 0 {
				cell.AddParagraph()
			}
		}
	}
	w.sheet.closed = true
	w.sheet = nil
}

type picture struct {
	para *godocx.Paragraph
}

func (p *picture) SetAlignment(a booklet.Alignment) {
	if a == booklet.AlignRight {
		p.para.Justification("right")
		return
	}
	if p.para.Properties != nil {
		p.para.Properties.Justification = nil
	}
}

type table struct {
	w      *Writer
	tbl    *godocx.Table
	closed bool
}

// Place embeds img into the cell at (row, column), widthMM wide.
func (t *table) Place(row, column int, img image.Image, widthMM float64) (booklet.Region, error) {
	if t.closed {
		return nil, errors.New("table already closed")
	}
	if row < 0 || row >= booklet.GridRows || column < 0 || column >= booklet.GridColumns {
		return nil, fmt.Errorf("cell (%d,%d) outside the grid", row, column)
	}
	cell := t.tbl.TableRows[row].TableCells[column]
	if len(cell.Paragraphs) > 0 {
		return nil, fmt.Errorf("cell (%d,%d) already filled", row, column)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}
	if widthMM <= 0 {
		return nil, fmt.Errorf("invalid image width %gmm", widthMM)
	}

	var data bytes.Buffer
	if err := jpeg.Encode(&data, img, &jpeg.Options{Quality: t.w.options.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	para := cell.AddParagraph()
	run, err := para.AddInlineDrawing(data.Bytes())
	if err != nil {
		cell.Paragraphs = cell.Paragraphs[:0]
		return nil, fmt.Errorf("add picture: %w", err)
	}

	cx := int64(widthMM * emuPerMM)
	cy := cx * int64(b.Dy()) / int64(b.Dx())
	for _, child := range run.Children {
		if d, ok := child.(*godocx.Drawing); ok && d.Inline != nil {
			d.Inline.Size(cx, cy)
		}
	}
	return &picture{para: para}, nil
}
