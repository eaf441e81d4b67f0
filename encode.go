package flipdot

import "fmt"

// Shift register select bits.
const (
	colClearSide = 0x20 // column driver: low side, dot flips to off
	rowSetSide   = 0x40 // row driver: high side, dot flips to on
	rowClearSide = 0x20 // row driver: low side
)

// PixelUpdate is a single dot state change.
type PixelUpdate struct {
	X, Y int
	On   bool
}

func (u PixelUpdate) String() string {
	if u.On {
		return fmt.Sprintf("(%d,%d) on", u.X, u.Y)
	}
	return fmt.Sprintf("(%d,%d) off", u.X, u.Y)
}

// Geometry describes how dots are wired to the column and row driver chips.
type Geometry struct {
	// Cols is the display width in dots, across all panels.
	Cols int

	// Rows is the display height in dots.
	Rows int

	// ColumnsPerChip is the number of columns one column decoder drives.
	ColumnsPerChip int

	// ChipsPerPanel is the number of column decoders on one panel.
	ChipsPerPanel int

	// RowsPerChip is the number of rows one row decoder drives.
	RowsPerChip int
}

// DefaultGeometry is four 28x19 panels.
var DefaultGeometry = Geometry{
	Cols:           112,
	Rows:           19,
	ColumnsPerChip: 7,
	ChipsPerPanel:  4,
	RowsPerChip:    7,
}

// PanelWidth is the number of columns on one panel.
func (g Geometry) PanelWidth() int {
	return g.ColumnsPerChip * g.ChipsPerPanel
}

// In reports whether (x, y) is a dot on the display.
func (g Geometry) In(x, y int) bool {
	return x >= 0 && x < g.Cols && y >= 0 && y < g.Rows
}

func (g Geometry) validate() error {
	if g.Cols <= 0 || g.Rows <= 0 || g.ColumnsPerChip <= 0 || g.ChipsPerPanel <= 0 || g.RowsPerChip <= 0 {
		return fmt.Errorf("flipdot: invalid geometry %+v", g)
	}
	if panels := (g.Cols + g.PanelWidth() - 1) / g.PanelWidth(); panels > 8 {
		return fmt.Errorf("flipdot: %d panels don't fit the panel select register", panels)
	}
	return nil
}

// Encode returns the three shift register bytes that select the coil for u.
//
// Byte 0 selects the panel (one-hot), byte 1 the column decoder and column,
// byte 2 the row decoder and row. Decoder outputs are 1-based, output 0 is
// the idle state.
func (g Geometry) Encode(u PixelUpdate) [3]byte {
	var data [3]byte

	panelWidth := g.PanelWidth()
	panel := u.X / panelWidth
	data[0] = 1 << panel

	var (
		panelCol = u.X - panel*panelWidth
		colChip  = panelCol / g.ColumnsPerChip
		col      = panelCol - colChip*g.ColumnsPerChip + 1
	)
	data[1] = byte(colChip&0x3)<<3 | byte(col&0x7)
	if !u.On {
		data[1] |= colClearSide
	}

	var (
		rowChip = u.Y / g.RowsPerChip
		row     = u.Y - rowChip*g.RowsPerChip + 1
	)
	data[2] = byte(rowChip&0x3)<<3 | byte(row&0x7)
	if u.On {
		data[2] |= rowSetSide
	} else {
		data[2] |= rowClearSide
	}

	return data
}
