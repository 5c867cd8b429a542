package booklet

import (
	"context"
	"fmt"
)

// DefaultImageWidthMM is the printed width of one page image.
const DefaultImageWidthMM = 95

// Composer lays a batch of pages onto a front and a back sheet.
type Composer struct {
	sink    Sink
	widthMM float64
	sheets  int
}

// NewComposer creates a composer writing into sink. A non-positive width
// falls back to DefaultImageWidthMM.
func NewComposer(sink Sink, widthMM float64) *Composer {
	if widthMM <= 0 {
		widthMM = DefaultImageWidthMM
	}
	return &Composer{sink: sink, widthMM: widthMM}
}

// Sheets returns the number of sheets emitted so far.
func (c *Composer) Sheets() int {
	return c.sheets
}

// Compose emits the front sheet then the back sheet for batch, each followed
// by a page break. Both sheets are always emitted, so a batch of one page
// still produces an empty back sheet. Every page's raster is released right
// after it is placed.
func (c *Composer) Compose(ctx context.Context, batch []*Page) error {
	if n := len(batch); n == 0 || n > BatchSize {
		return fmt.Errorf("%w: %d pages", ErrBatchSize, n)
	}
	for i, page := range batch {
		if page == nil || page.Raster == nil || page.Raster.Image == nil {
			return fmt.Errorf("batch slot %d has no raster", i)
		}
	}

	for _, side := range []Side{Front, Back} {
		if err := ctx.Err(); err != nil {
			return err
		}
		sheet, err := c.sink.NewSheet()
		if err != nil {
			return fmt.Errorf("new %s sheet: %w", side, err)
		}
		for i := int(side); i < len(batch); i += 2 {
			if err := c.place(sheet, i, batch[i]); err != nil {
				return err
			}
		}
		if err := c.sink.PageBreak(); err != nil {
			return fmt.Errorf("page break after %s sheet: %w", side, err)
		}
		c.sheets++
	}
	return nil
}

func (c *Composer) place(sheet Sheet, slot int, page *Page) error {
	p, err := PlacementFor(slot)
	if err != nil {
		return err
	}
	region, err := sheet.Place(p.Row, p.Column, page.Raster.Image, c.widthMM)
	if err != nil {
		return fmt.Errorf("place page %d on %s (%d,%d): %w", page.Index, p.Side, p.Row, p.Column, err)
	}
	region.SetAlignment(p.Align)
	Logger().Debug("placed page", "page", page.Index, "side", p.Side.String(), "row", p.Row, "column", p.Column, "align", p.Align.String())

	if err := page.Raster.Release(); err != nil {
		Logger().Warn("release raster", "page", page.Index, "err", err)
	}
	return nil
}
