// internal/grid/grid.go
//
// Grid topology for a Double Speak board.
// Responsibilities:
//   - Row-major cell addressing (index = row*cols + col).
//   - Arrow geometry (RIGHT links i -> i+1, DOWN links i -> i+cols).
//   - Neighbour lookup and the "used cell" rule.
//
// Notes:
//   - Everything here is pure; nothing holds state between calls.
//   - An out-of-range index is a programming error and panics.

package grid

import (
	"encoding/json"
	"fmt"
)

// MaxSide bounds both rows and cols of any grid.
const MaxSide = 12

// Index addresses a cell in row-major order.
type Index int

// Dir is the reading direction of an arrow.
type Dir string

const (
	Right Dir = "right"
	Down  Dir = "down"
)

// UnmarshalJSON accepts "right"/"down" (case-sensitive) and rejects anything else.
func (d *Dir) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch Dir(s) {
	case Right, Down:
		*d = Dir(s)
		return nil
	}
	return fmt.Errorf("grid: unknown arrow direction %q", s)
}

// Cell is one tile. A cell with Fixed set carries a pre-supplied clue word.
type Cell struct {
	Fixed string `json:"fixed,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// IsFixed reports whether the cell holds a clue word.
func (c Cell) IsFixed() bool { return c.Fixed != "" }

// Arrow links two adjacent cells in reading order. It carries no letters.
type Arrow struct {
	From Index `json:"from"`
	To   Index `json:"to"`
	Dir  Dir   `json:"dir"`
}

// Grid is the rectangular board.
type Grid struct {
	Rows   int     `json:"rows"`
	Cols   int     `json:"cols"`
	Cells  []Cell  `json:"cells"`
	Arrows []Arrow `json:"arrows"`
}

// New returns a rows x cols grid of blank cells with no arrows.
func New(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Cells: make([]Cell, rows*cols), Arrows: []Arrow{}}
}

// Len is the number of addressable cells.
func (g Grid) Len() int { return g.Rows * g.Cols }

// InBounds reports whether i addresses a cell.
func (g Grid) InBounds(i Index) bool { return i >= 0 && int(i) < g.Len() }

func (g Grid) mustIndex(i Index) {
	if !g.InBounds(i) {
		panic(fmt.Sprintf("grid: index %d out of range [0,%d)", i, g.Len()))
	}
}

// At converts (row, col) to an index.
func (g Grid) At(row, col int) Index { return Index(row*g.Cols + col) }

// RowCol converts an index to (row, col).
func (g Grid) RowCol(i Index) (row, col int) {
	g.mustIndex(i)
	return int(i) / g.Cols, int(i) % g.Cols
}

// Cell returns the cell at i.
func (g Grid) Cell(i Index) Cell {
	g.mustIndex(i)
	return g.Cells[i]
}

// Neighbors holds the right/down neighbours of a cell; a nil field means the
// cell sits on that edge.
type Neighbors struct {
	Right *Index `json:"right,omitempty"`
	Down  *Index `json:"down,omitempty"`
}

// NeighborsOf returns the right and down neighbours of i.
func (g Grid) NeighborsOf(i Index) Neighbors {
	row, col := g.RowCol(i)
	var n Neighbors
	if col < g.Cols-1 {
		r := i + 1
		n.Right = &r
	}
	if row < g.Rows-1 {
		d := i + Index(g.Cols)
		n.Down = &d
	}
	return n
}

// Link builds the arrow leaving i in direction d. ok is false when i sits on
// the edge that direction would cross.
func (g Grid) Link(i Index, d Dir) (Arrow, bool) {
	n := g.NeighborsOf(i)
	switch {
	case d == Right && n.Right != nil:
		return Arrow{From: i, To: *n.Right, Dir: Right}, true
	case d == Down && n.Down != nil:
		return Arrow{From: i, To: *n.Down, Dir: Down}, true
	}
	return Arrow{}, false
}

// ValidArrow reports whether a has in-range endpoints that match its direction.
func (g Grid) ValidArrow(a Arrow) bool {
	if !g.InBounds(a.From) || !g.InBounds(a.To) {
		return false
	}
	want, ok := g.Link(a.From, a.Dir)
	return ok && want == a
}

// IsUsed reports whether i participates in the puzzle: it is fixed, has a
// solution, or is an endpoint of an arrow.
func IsUsed[W any](g Grid, solutions map[Index]W, i Index) bool {
	if g.Cell(i).IsFixed() {
		return true
	}
	if _, ok := solutions[i]; ok {
		return true
	}
	for _, a := range g.Arrows {
		if a.From == i || a.To == i {
			return true
		}
	}
	return false
}

// UsedCells lists every used index in ascending order.
func UsedCells[W any](g Grid, solutions map[Index]W) []Index {
	used := make([]Index, 0, g.Len())
	for i := Index(0); int(i) < g.Len(); i++ {
		if IsUsed(g, solutions, i) {
			used = append(used, i)
		}
	}
	return used
}
