package puzzle

import (
	"fmt"
	"strings"

	"github.com/hugolynch/double-speak/internal/grid"
)

// ValidationError lists every structural problem found in a puzzle.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid puzzle: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks the structural rules a playable puzzle must satisfy:
//   - 1..12 rows and cols, exactly rows*cols cells, a real YYYY-MM-DD date;
//   - every solution key in range, on a non-fixed cell, with a non-empty word;
//   - every arrow geometrically valid (RIGHT = +1 off the last column, DOWN = +cols off the last row);
//   - no arrow joining two fixed cells, and no arrow endpoint that is neither fixed nor a solution cell.
func (p *Puzzle) Validate() error {
	var probs []string
	add := func(format string, args ...any) { probs = append(probs, fmt.Sprintf(format, args...)) }

	g := p.Grid
	if g.Rows < 1 || g.Rows > grid.MaxSide || g.Cols < 1 || g.Cols > grid.MaxSide {
		add("grid size %dx%d outside 1..%d", g.Rows, g.Cols, grid.MaxSide)
	}
	if len(g.Cells) != g.Rows*g.Cols {
		add("grid has %d cells, want %d", len(g.Cells), g.Rows*g.Cols)
		// Index checks below would be meaningless.
		return &ValidationError{Problems: probs}
	}
	if !ValidDate(p.Date) {
		add("date %q is not YYYY-MM-DD", p.Date)
	}

	for _, i := range p.SolutionIndices() {
		switch {
		case !g.InBounds(i):
			add("solution %d out of range", i)
		case g.Cells[i].IsFixed():
			add("solution %d is on a fixed cell", i)
		case NormalizeWord(p.Solutions[i]) == "":
			add("solution %d is empty", i)
		}
	}

	endpoint := func(i grid.Index) bool {
		_, sol := p.Solutions[i]
		return sol || g.Cells[i].IsFixed()
	}
	for _, a := range g.Arrows {
		if !g.ValidArrow(a) {
			add("arrow %d->%d (%s) is not a valid link", a.From, a.To, a.Dir)
			continue
		}
		if g.Cells[a.From].IsFixed() && g.Cells[a.To].IsFixed() {
			add("arrow %d->%d joins two fixed cells", a.From, a.To)
		}
		for _, i := range []grid.Index{a.From, a.To} {
			if !endpoint(i) {
				add("arrow %d->%d touches cell %d which is neither fixed nor a solution", a.From, a.To, i)
			}
		}
	}

	if len(probs) > 0 {
		return &ValidationError{Problems: probs}
	}
	return nil
}
