package booklet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
)

type cell struct {
	row, column int
}

type placedImage struct {
	img   image.Image
	width float64
	align Alignment
}

type recordedSheet struct {
	cells map[cell]*placedImage
}

func (s *recordedSheet) Place(row, column int, img image.Image, widthMM float64) (Region, error) {
	if row < 0 || row >= GridRows || column < 0 || column >= GridColumns {
		return nil, fmt.Errorf("cell (%d,%d) outside grid", row, column)
	}
	c := cell{row, column}
	if _, ok := s.cells[c]; ok {
		return nil, fmt.Errorf("cell (%d,%d) filled twice", row, column)
	}
	p := &placedImage{img: img, width: widthMM}
	s.cells[c] = p
	return p, nil
}

func (p *placedImage) SetAlignment(a Alignment) { p.align = a }

// recordingSink keeps sheets in memory and logs the call sequence.
type recordingSink struct {
	sheets []*recordedSheet
	calls  []string
	saved  []string
	failOn string
}

func (s *recordingSink) NewSheet() (Sheet, error) {
	if s.failOn == "sheet" {
		return nil, errors.New("sink full")
	}
	s.calls = append(s.calls, "sheet")
	sh := &recordedSheet{cells: make(map[cell]*placedImage)}
	s.sheets = append(s.sheets, sh)
	return sh, nil
}

func (s *recordingSink) PageBreak() error {
	s.calls = append(s.calls, "break")
	return nil
}

func (s *recordingSink) Save(path string) error {
	s.saved = append(s.saved, path)
	return nil
}

// pageOf returns the page index stamped into a test raster.
func pageOf(img image.Image) int {
	return int(img.(*image.RGBA).Pix[0])
}

func newTestPage(index int, released *[]int) *Page {
	img := image.NewRGBA(image.Rect(0, 0, 10, 14))
	img.Pix[0] = uint8(index)
	return &Page{
		Index: index,
		Raster: NewRaster(img, func() error {
			if released != nil {
				*released = append(*released, index)
			}
			return nil
		}),
	}
}

func newTestBatch(n int, released *[]int) []*Page {
	batch := make([]*Page, n)
	for i := range batch {
		batch[i] = newTestPage(i, released)
	}
	return batch
}

// TestComposeFullBatch tests the duplex layout of eight pages
func TestComposeFullBatch(t *testing.T) {
	sink := &recordingSink{}
	c := NewComposer(sink, 0)

	var released []int
	if err := c.Compose(context.Background(), newTestBatch(8, &released)); err != nil {
		t.Fatalf("Compose: %v", err)
	}

	wantCalls := []string{"sheet", "break", "sheet", "break"}
	if fmt.Sprint(sink.calls) != fmt.Sprint(wantCalls) {
		t.Fatalf("calls = %v, want %v", sink.calls, wantCalls)
	}

	front := map[cell]int{{0, 0}: 0, {0, 1}: 2, {1, 0}: 4, {1, 1}: 6}
	back := map[cell]int{{0, 1}: 1, {0, 0}: 3, {1, 1}: 5, {1, 0}: 7}
	for side, want := range []map[cell]int{front, back} {
		sheet := sink.sheets[side]
		if len(sheet.cells) != len(want) {
			t.Fatalf("side %d: %d cells filled, want %d", side, len(sheet.cells), len(want))
		}
		for pos, page := range want {
			got, ok := sheet.cells[pos]
			if !ok {
				t.Fatalf("side %d: cell %v empty", side, pos)
			}
			if pageOf(got.img) != page {
				t.Errorf("side %d cell %v holds page %d, want %d", side, pos, pageOf(got.img), page)
			}
			wantAlign := AlignRight
			if side == 1 {
				wantAlign = AlignLeft
			}
			if got.align != wantAlign {
				t.Errorf("side %d cell %v alignment %v, want %v", side, pos, got.align, wantAlign)
			}
			if got.width != DefaultImageWidthMM {
				t.Errorf("width = %g, want %d", got.width, DefaultImageWidthMM)
			}
		}
	}

	if len(released) != 8 {
		t.Errorf("released %d rasters, want 8", len(released))
	}
	if c.Sheets() != 2 {
		t.Errorf("Sheets() = %d, want 2", c.Sheets())
	}
}

// TestComposeReadingOrder unfolds the back sheet mirror and checks that the
// front/back cells read back as the original page order.
func TestComposeReadingOrder(t *testing.T) {
	sink := &recordingSink{}
	if err := NewComposer(sink, 0).Compose(context.Background(), newTestBatch(8, nil)); err != nil {
		t.Fatal(err)
	}

	var order []int
	for k := 0; k < SheetCells; k++ {
		row, col := k/GridColumns, k%GridColumns
		order = append(order, pageOf(sink.sheets[0].cells[cell{row, col}].img))
		order = append(order, pageOf(sink.sheets[1].cells[cell{row, MirrorColumn(col)}].img))
	}
	for i, p := range order {
		if p != i {
			t.Fatalf("unfolded order = %v, want 0..7", order)
		}
	}
}

// TestComposePartialBatches checks every batch size keeps all pages
func TestComposePartialBatches(t *testing.T) {
	for n := 1; n <= BatchSize; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			sink := &recordingSink{}
			var released []int
			if err := NewComposer(sink, 0).Compose(context.Background(), newTestBatch(n, &released)); err != nil {
				t.Fatal(err)
			}
			if len(sink.sheets) != 2 {
				t.Fatalf("emitted %d sheets, want 2", len(sink.sheets))
			}

			seen := make(map[int]bool)
			for _, sh := range sink.sheets {
				for _, p := range sh.cells {
					idx := pageOf(p.img)
					if seen[idx] {
						t.Fatalf("page %d placed twice", idx)
					}
					seen[idx] = true
				}
			}
			if len(seen) != n {
				t.Errorf("placed %d pages, want %d", len(seen), n)
			}
			if len(released) != n {
				t.Errorf("released %d rasters, want %d", len(released), n)
			}
			if front, back := len(sink.sheets[0].cells), len(sink.sheets[1].cells); front < back {
				t.Errorf("front has %d cells, back %d", front, back)
			}
		})
	}
}

func TestComposeSinglePageEmitsEmptyBack(t *testing.T) {
	sink := &recordingSink{}
	if err := NewComposer(sink, 0).Compose(context.Background(), newTestBatch(1, nil)); err != nil {
		t.Fatal(err)
	}
	if len(sink.sheets[0].cells) != 1 || sink.sheets[0].cells[cell{0, 0}] == nil {
		t.Errorf("front sheet = %v, want page at (0,0)", sink.sheets[0].cells)
	}
	if len(sink.sheets[1].cells) != 0 {
		t.Errorf("back sheet has %d cells, want 0", len(sink.sheets[1].cells))
	}
	if len(sink.calls) != 4 {
		t.Errorf("calls = %v", sink.calls)
	}
}

func TestComposeRejectsBadBatch(t *testing.T) {
	c := NewComposer(&recordingSink{}, 0)
	for _, n := range []int{0, BatchSize + 1} {
		if err := c.Compose(context.Background(), newTestBatch(n, nil)); !errors.Is(err, ErrBatchSize) {
			t.Errorf("Compose(%d pages) error = %v, want ErrBatchSize", n, err)
		}
	}
}

// TestComposeReleaseFailure tests that a failing release does not abort
func TestComposeReleaseFailure(t *testing.T) {
	batch := newTestBatch(3, nil)
	img := batch[1].Raster.Image
	batch[1].Raster = NewRaster(img, func() error { return errors.New("busy") })

	sink := &recordingSink{}
	if err := NewComposer(sink, 0).Compose(context.Background(), batch); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(sink.sheets[1].cells) != 1 {
		t.Errorf("back sheet has %d cells, want 1", len(sink.sheets[1].cells))
	}
	if batch[1].Raster.Image != nil {
		t.Errorf("raster image kept after release")
	}
}

func TestComposeSinkError(t *testing.T) {
	sink := &recordingSink{failOn: "sheet"}
	if err := NewComposer(sink, 0).Compose(context.Background(), newTestBatch(2, nil)); err == nil {
		t.Fatal("expected error from failing sink")
	}
}

func TestComposeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewComposer(&recordingSink{}, 0).Compose(ctx, newTestBatch(2, nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
