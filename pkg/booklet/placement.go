package booklet

import "fmt"

// Sheet geometry. A batch fills one front and one back sheet of a 2x2 grid.
const (
	GridRows    = 2
	GridColumns = 2
	SheetCells  = GridRows * GridColumns
	BatchSize   = 2 * SheetCells
)

// Side is the face of a physical sheet.
type Side int

const (
	Front Side = iota
	Back
)

func (s Side) String() string {
	switch s {
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Alignment is the horizontal alignment of an image inside its cell.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

func (a Alignment) String() string {
	if a == AlignRight {
		return "right"
	}
	return "left"
}

// Placement is the physical position of a page within its batch's sheets.
type Placement struct {
	Side   Side
	Row    int
	Column int
	Align  Alignment
}

// PlacementFor maps a batch-relative index (0..BatchSize-1) to its cell.
//
// Even indices fill the front sheet row-major. Odd indices fill the back
// sheet row-major with mirrored columns, since the sheet is turned over
// between the two printing passes.
func PlacementFor(index int) (Placement, error) {
	if index < 0 || index >= BatchSize {
		return Placement{}, fmt.Errorf("%w: index %d", ErrBatchSize, index)
	}

	k := index / 2
	p := Placement{
		Side:   Side(index % 2),
		Row:    k / GridColumns,
		Column: k % GridColumns,
		Align:  AlignRight,
	}
	if p.Side == Back {
		p.Column = MirrorColumn(p.Column)
		p.Align = AlignLeft
	}
	return p, nil
}

// MirrorColumn returns the physical column of a back-side cell.
func MirrorColumn(column int) int {
	return GridColumns - 1 - column
}
