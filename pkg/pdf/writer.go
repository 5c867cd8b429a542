package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
)

// PaperSize is an output page size in points (1" = 72pt).
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

// A4 is 210mm x 297mm.
var A4 = PaperSize{Name: "A4", Width: 595.27559, Height: 841.88976}

const mmToPt = 72 / 25.4

// WriterOptions controls the PDF sheet writer
type WriterOptions struct {
	Paper       PaperSize // Output page size (default A4)
	JPEGQuality int       // Quality of embedded page images (default 90)
	NoBorders   bool      // Omit the cell grid lines
}

// Reserved object numbers, written last by Save.
const (
	catalogObj = 1
	pagesObj   = 2
)

// SheetWriter is an append-only PDF writer for booklet sheets. Every sheet
// becomes one full-bleed page split into a 2x2 grid of equal cells. Page
// images are embedded as soon as they are placed, so callers can release
// their rasters immediately.
type SheetWriter struct {
	options WriterOptions
	buf     bytes.Buffer
	offsets map[int]int
	nextObj int
	pages   []int
	sheet   *pdfSheet
	saved   bool
}

// NewSheetWriter creates an empty document
func NewSheetWriter(options WriterOptions) *SheetWriter {
	if options.Paper.Width <= 0 || options.Paper.Height <= 0 {
		options.Paper = A4
	}
	if options.JPEGQuality <= 0 || options.JPEGQuality > 100 {
		options.JPEGQuality = 90
	}
	w := &SheetWriter{
		options: options,
		offsets: make(map[int]int),
		nextObj: pagesObj + 1,
	}
	w.buf.WriteString("%PDF-1.4\n")
	w.buf.WriteString("%\xe2\xe3\xcf\xd3\n") // Binary marker
	return w
}

var _ booklet.Sink = (*SheetWriter)(nil)

// PageCount returns the number of finished pages.
func (w *SheetWriter) PageCount() int {
	return len(w.pages)
}

// NewSheet starts a new grid. The previous sheet must have been ended with
// PageBreak.
func (w *SheetWriter) NewSheet() (booklet.Sheet, error) {
	if w.saved {
		return nil, errors.New("document already saved")
	}
	if w.sheet != nil {
		return nil, errors.New("previous sheet not ended by a page break")
	}
	w.sheet = &pdfSheet{w: w, cells: make(map[[2]int]*placedImage)}
	return w.sheet, nil
}

// PageBreak writes the current sheet as a page. Without an open sheet it
// emits a blank page.
func (w *SheetWriter) PageBreak() error {
	if w.saved {
		return errors.New("document already saved")
	}
	paper := w.options.Paper

	var content bytes.Buffer
	var xobjects []string
	if !w.options.NoBorders && w.sheet != nil {
		writeGrid(&content, paper)
	}
	if w.sheet != nil {
		for _, p := range w.sheet.ordered() {
			x, y := imageOrigin(paper, p.row, p.column, p.width, p.height, p.align)
			fmt.Fprintf(&content, "q %.4f 0 0 %.4f %.4f %.4f cm /%s Do Q\n", p.width, p.height, x, y, p.name)
			xobjects = append(xobjects, fmt.Sprintf("/%s %d 0 R", p.name, p.obj))
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(content.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	contentsObj := w.beginObject()
	w.writeStream("/Filter /FlateDecode", compressed.Bytes())
	w.endObject()

	pageObj := w.beginObject()
	w.buf.WriteString("<< /Type /Page /Parent 2 0 R ")
	fmt.Fprintf(&w.buf, "/MediaBox [0 0 %.5f %.5f] ", paper.Width, paper.Height)
	fmt.Fprintf(&w.buf, "/Resources << /XObject << %s >> >> ", strings.Join(xobjects, " "))
	fmt.Fprintf(&w.buf, "/Contents %d 0 R >>\n", contentsObj)
	w.endObject()

	w.pages = append(w.pages, pageObj)
	w.sheet = nil
	return nil
}

// Save finishes the document and writes it to path atomically. An open
// sheet is ended first.
func (w *SheetWriter) Save(path string) error {
	if w.saved {
		return errors.New("document already saved")
	}
	if w.sheet != nil {
		if err := w.PageBreak(); err != nil {
			return err
		}
	}

	w.startObject(pagesObj)
	w.buf.WriteString("<< /Type /Pages /Kids [")
	for i, obj := range w.pages {
		if i > 0 {
			w.buf.WriteString(" ")
		}
		fmt.Fprintf(&w.buf, "%d 0 R", obj)
	}
	fmt.Fprintf(&w.buf, "] /Count %d >>\n", len(w.pages))
	w.endObject()

	w.startObject(catalogObj)
	w.buf.WriteString("<< /Type /Catalog /Pages 2 0 R >>\n")
	w.endObject()

	infoObj := w.beginObject()
	w.buf.WriteString("<< /Producer (pdfbooklet) >>\n")
	w.endObject()

	sum := blake2b.Sum256(w.buf.Bytes())
	id := hex.EncodeToString(sum[:16])

	// Write xref
	xrefOffset := w.buf.Len()
	w.buf.WriteString("xref\n")
	fmt.Fprintf(&w.buf, "0 %d\n", w.nextObj)
	w.buf.WriteString("0000000000 65535 f \n")
	for obj := 1; obj < w.nextObj; obj++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[obj])
	}

	// Write trailer
	w.buf.WriteString("trailer\n")
	fmt.Fprintf(&w.buf, "<< /Size %d /Root %d 0 R /Info %d 0 R /ID [<%s> <%s>] >>\n",
		w.nextObj, catalogObj, infoObj, id, id)
	w.buf.WriteString("startxref\n")
	fmt.Fprintf(&w.buf, "%d\n", xrefOffset)
	w.buf.WriteString("%%EOF\n")
	w.saved = true

	booklet.Logger().Debug("writing pdf", "path", path, "pages", len(w.pages), "bytes", w.buf.Len())
	return booklet.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := out.Write(w.buf.Bytes())
		return err
	})
}

func (w *SheetWriter) beginObject() int {
	obj := w.nextObj
	w.nextObj++
	w.startObject(obj)
	return obj
}

func (w *SheetWriter) startObject(obj int) {
	w.offsets[obj] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n", obj)
}

func (w *SheetWriter) endObject() {
	w.buf.WriteString("endobj\n")
}

func (w *SheetWriter) writeStream(dict string, data []byte) {
	fmt.Fprintf(&w.buf, "<< %s /Length %d >>\n", dict, len(data))
	w.buf.WriteString("stream\n")
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\n")
}

// writeImage embeds img as a JPEG image XObject and returns its object number.
func (w *SheetWriter) writeImage(img image.Image) (int, error) {
	var data bytes.Buffer
	if err := jpeg.Encode(&data, img, &jpeg.Options{Quality: w.options.JPEGQuality}); err != nil {
		return 0, fmt.Errorf("encode image: %w", err)
	}
	colorSpace := "/DeviceRGB"
	if _, ok := img.(*image.Gray); ok {
		colorSpace = "/DeviceGray"
	}
	b := img.Bounds()

	obj := w.beginObject()
	w.writeStream(fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent 8 /Filter /DCTDecode",
		b.Dx(), b.Dy(), colorSpace), data.Bytes())
	w.endObject()
	return obj, nil
}

type pdfSheet struct {
	w     *SheetWriter
	cells map[[2]int]*placedImage
}

type placedImage struct {
	name          string
	obj           int
	row, column   int
	width, height float64
	align         booklet.Alignment
}

func (p *placedImage) SetAlignment(a booklet.Alignment) { p.align = a }

// Place embeds img in the cell at (row, column).
func (s *pdfSheet) Place(row, column int, img image.Image, widthMM float64) (booklet.Region, error) {
	if s.w.sheet != s {
		return nil, errors.New("sheet already ended")
	}
	if row < 0 || row >= booklet.GridRows || column < 0 || column >= booklet.GridColumns {
		return nil, fmt.Errorf("cell (%d,%d) outside the grid", row, column)
	}
	key := [2]int{row, column}
	if _, ok := s.cells[key]; ok {
		return nil, fmt.Errorf("cell (%d,%d) already filled", row, column)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}
	if widthMM <= 0 {
		return nil, fmt.Errorf("invalid image width %gmm", widthMM)
	}

	obj, err := s.w.writeImage(img)
	if err != nil {
		return nil, err
	}
	width, height := fitCell(s.w.options.Paper, widthMM*mmToPt, float64(b.Dy())/float64(b.Dx()))
	p := &placedImage{
		name:   fmt.Sprintf("Im%d", obj),
		obj:    obj,
		row:    row,
		column: column,
		width:  width,
		height: height,
		align:  booklet.AlignLeft,
	}
	s.cells[key] = p
	return p, nil
}

func (s *pdfSheet) ordered() []*placedImage {
	out := make([]*placedImage, 0, len(s.cells))
	for _, p := range s.cells {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].row != out[j].row {
			return out[i].row < out[j].row
		}
		return out[i].column < out[j].column
	})
	return out
}

func cellSize(paper PaperSize) (float64, float64) {
	return paper.Width / booklet.GridColumns, paper.Height / booklet.GridRows
}

// fitCell sizes an image of the given aspect ratio (height/width) to width
// points, shrinking it if it would overflow its cell.
func fitCell(paper PaperSize, width, aspect float64) (float64, float64) {
	cellW, cellH := cellSize(paper)
	if width > cellW {
		width = cellW
	}
	height := width * aspect
	if height > cellH {
		height = cellH
		width = height / aspect
	}
	return width, height
}

// imageOrigin returns the lower-left corner, in PDF user space, of an image
// hanging from the top of its cell with the given horizontal alignment.
func imageOrigin(paper PaperSize, row, column int, width, height float64, align booklet.Alignment) (float64, float64) {
	cellW, cellH := cellSize(paper)
	x := float64(column) * cellW
	if align == booklet.AlignRight {
		x += cellW - width
	}
	y := paper.Height - float64(row)*cellH - height
	return x, y
}

func writeGrid(content *bytes.Buffer, paper PaperSize) {
	cellW, cellH := cellSize(paper)
	content.WriteString("0.5 w 0 G\n")
	for row := 0; row < booklet.GridRows; row++ {
		for col := 0; col < booklet.GridColumns; col++ {
			fmt.Fprintf(content, "%.4f %.4f %.4f %.4f re S\n",
				float64(col)*cellW, paper.Height-float64(row+1)*cellH, cellW, cellH)
		}
	}
}
