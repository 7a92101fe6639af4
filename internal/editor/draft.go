// internal/editor/draft.go
//
// Grid authoring: the editable form of a puzzle.
// Responsibilities:
//   - Hold per-cell authoring data (clue word, hint, answer, right/down link flags).
//   - Resize / insert / delete rows and columns while keeping cell content aligned.
//   - Trim blank border rows and columns down to the used bounding box.
//   - Export a Puzzle whose arrows are always recomputed from the link flags.
//
// Notes:
//   - Link flags are the only stored form of arrows; Arrows() derives them.
//   - Sizes are clamped to 1..grid.MaxSide on both axes.

package editor

import (
	"fmt"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/puzzle"
)

// Edge selects where a row or column is inserted.
type Edge string

const (
	Top    Edge = "top"
	Bottom Edge = "bottom"
	Left   Edge = "left"
	Right  Edge = "right"
)

// DraftCell is one tile as the author sees it.
type DraftCell struct {
	Fixed    string `json:"fixed,omitempty"`
	Hint     string `json:"hint,omitempty"`
	Solution string `json:"solution,omitempty"`
	Right    bool   `json:"right,omitempty"`
	Down     bool   `json:"down,omitempty"`
}

// Draft is a puzzle under construction.
type Draft struct {
	ID     string      `json:"id,omitempty"`
	Date   string      `json:"date"`
	Title  string      `json:"title,omitempty"`
	Author string      `json:"author,omitempty"`
	Rows   int         `json:"rows"`
	Cols   int         `json:"cols"`
	Cells  []DraftCell `json:"cells"`
}

func clamp(n int) int {
	return min(max(n, 1), grid.MaxSide)
}

// NewDraft returns a blank draft of the given (clamped) size.
func NewDraft(rows, cols int) *Draft {
	rows, cols = clamp(rows), clamp(cols)
	return &Draft{Rows: rows, Cols: cols, Cells: make([]DraftCell, rows*cols)}
}

// FromPuzzle opens an existing puzzle for editing.
func FromPuzzle(p *puzzle.Puzzle) *Draft {
	d := &Draft{
		ID: p.ID, Date: p.Date, Title: p.Title, Author: p.Author,
		Rows: p.Grid.Rows, Cols: p.Grid.Cols,
		Cells: make([]DraftCell, len(p.Grid.Cells)),
	}
	for i, c := range p.Grid.Cells {
		d.Cells[i] = DraftCell{Fixed: c.Fixed, Hint: c.Hint, Solution: p.Solutions[grid.Index(i)]}
	}
	for _, a := range p.Grid.Arrows {
		if !p.Grid.ValidArrow(a) {
			continue
		}
		switch a.Dir {
		case grid.Right:
			d.Cells[a.From].Right = true
		case grid.Down:
			d.Cells[a.From].Down = true
		}
	}
	return d
}

func (d *Draft) at(row, col int) int { return row*d.Cols + col }

// rebuild copies every cell to a rows x cols layout using src to map a
// destination position back to a source position. Positions that map outside
// the old grid stay blank.
func (d *Draft) rebuild(rows, cols int, src func(row, col int) (int, int)) {
	cells := make([]DraftCell, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sr, sc := src(r, c)
			if sr >= 0 && sr < d.Rows && sc >= 0 && sc < d.Cols {
				cells[r*cols+c] = d.Cells[d.at(sr, sc)]
			}
		}
	}
	d.Rows, d.Cols, d.Cells = rows, cols, cells
}

// Resize changes the dimensions, keeping content aligned by row and column.
// Cells outside the new bounds are dropped; new cells are blank.
func (d *Draft) Resize(rows, cols int) {
	d.rebuild(clamp(rows), clamp(cols), func(r, c int) (int, int) { return r, c })
}

// InsertRow adds a blank row at the top or bottom edge. It reports false
// when the grid is already at the maximum height or the edge is not a row edge.
func (d *Draft) InsertRow(e Edge) bool {
	if d.Rows >= grid.MaxSide || (e != Top && e != Bottom) {
		return false
	}
	shift := 0
	if e == Top {
		shift = 1
	}
	d.rebuild(d.Rows+1, d.Cols, func(r, c int) (int, int) { return r - shift, c })
	return true
}

// InsertCol adds a blank column at the left or right edge.
func (d *Draft) InsertCol(e Edge) bool {
	if d.Cols >= grid.MaxSide || (e != Left && e != Right) {
		return false
	}
	shift := 0
	if e == Left {
		shift = 1
	}
	d.rebuild(d.Rows, d.Cols+1, func(r, c int) (int, int) { return r, c - shift })
	return true
}

// DeleteRow removes row r. The last remaining row cannot be deleted.
func (d *Draft) DeleteRow(row int) bool {
	if d.Rows <= 1 || row < 0 || row >= d.Rows {
		return false
	}
	d.rebuild(d.Rows-1, d.Cols, func(r, c int) (int, int) {
		if r >= row {
			r++
		}
		return r, c
	})
	return true
}

// DeleteCol removes column c. The last remaining column cannot be deleted.
func (d *Draft) DeleteCol(col int) bool {
	if d.Cols <= 1 || col < 0 || col >= d.Cols {
		return false
	}
	d.rebuild(d.Rows, d.Cols-1, func(r, c int) (int, int) {
		if c >= col {
			c++
		}
		return r, c
	})
	return true
}

// Arrows derives the arrow list from the link flags: RIGHT for every
// right-linked cell off the last column, DOWN for every down-linked cell off
// the last row. Ordered by source index, RIGHT before DOWN.
func (d *Draft) Arrows() []grid.Arrow {
	arrows := []grid.Arrow{}
	for i, c := range d.Cells {
		row, col := i/d.Cols, i%d.Cols
		if c.Right && col < d.Cols-1 {
			arrows = append(arrows, grid.Arrow{From: grid.Index(i), To: grid.Index(i + 1), Dir: grid.Right})
		}
		if c.Down && row < d.Rows-1 {
			arrows = append(arrows, grid.Arrow{From: grid.Index(i), To: grid.Index(i + d.Cols), Dir: grid.Down})
		}
	}
	return arrows
}

// Check reports a draft whose dimensions and cell count disagree. Every other
// operation assumes a draft that passes Check.
func (d *Draft) Check() error {
	if d.Rows < 1 || d.Rows > grid.MaxSide || d.Cols < 1 || d.Cols > grid.MaxSide || len(d.Cells) != d.Rows*d.Cols {
		return &puzzle.ValidationError{Problems: []string{
			fmt.Sprintf("draft is %dx%d with %d cells", d.Rows, d.Cols, len(d.Cells)),
		}}
	}
	return nil
}

// build returns the playable grid and answer key.
func (d *Draft) build() (grid.Grid, map[grid.Index]string) {
	g := grid.Grid{Rows: d.Rows, Cols: d.Cols, Cells: make([]grid.Cell, len(d.Cells)), Arrows: d.Arrows()}
	solutions := map[grid.Index]string{}
	for i, c := range d.Cells {
		g.Cells[i] = grid.Cell{Fixed: c.Fixed, Hint: c.Hint}
		if w := puzzle.NormalizeWord(c.Solution); w != "" {
			solutions[grid.Index(i)] = w
		}
	}
	return g, solutions
}

// Used reports whether cell i takes part in the puzzle under the same rule
// the play engine uses.
func (d *Draft) Used(i int) bool {
	g, solutions := d.build()
	return grid.IsUsed(g, solutions, grid.Index(i))
}

// Trim shrinks the draft to the bounding box of its used cells. A draft with
// no used cells is left unchanged.
func (d *Draft) Trim() {
	g, solutions := d.build()
	used := grid.UsedCells(g, solutions)
	if len(used) == 0 {
		return
	}
	minR, minC := d.Rows, d.Cols
	maxR, maxC := -1, -1
	for _, i := range used {
		r, c := g.RowCol(i)
		minR, maxR = min(minR, r), max(maxR, r)
		minC, maxC = min(minC, c), max(maxC, c)
	}
	d.rebuild(maxR-minR+1, maxC-minC+1, func(r, c int) (int, int) { return r + minR, c + minC })
}

// Export produces the puzzle definition. The id is always the date and the
// arrows are recomputed from the link flags. Drafts that would not make a
// playable puzzle are rejected with a *puzzle.ValidationError.
func (d *Draft) Export() (*puzzle.Puzzle, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	g, solutions := d.build()
	p := &puzzle.Puzzle{
		ID:        d.Date,
		Date:      d.Date,
		Title:     d.Title,
		Author:    d.Author,
		Grid:      g,
		Solutions: solutions,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d.ID = p.ID
	return p, nil
}
