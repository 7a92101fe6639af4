// internal/score/score.go
//
// Scoring for a Double Speak session.
// Responsibilities:
//   - Attribute (elapsed time, submit count) to each solution cell the first time it locks.
//   - Derive per-cell score (time * submits), the total, and the one-submit-clear bonus.
//   - Group completed cells into submit rounds for the result breakdown.
//
// Notes:
//   - Time is supplied by the caller; nothing here reads a clock.
//   - Lower totals are better.

package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/puzzle"
)

// Completion is recorded when a cell first locks.
type Completion struct {
	Time    int `json:"time"`    // elapsed seconds at the locking submit
	Submits int `json:"submits"` // attempts count at the locking submit
}

// Value is the cell's contribution to the total.
func (c Completion) Value() int { return c.Time * c.Submits }

// Record stores c for i unless i already has a completion. Returns whether it was stored.
func Record(completions map[grid.Index]Completion, i grid.Index, c Completion) bool {
	if _, ok := completions[i]; ok {
		return false
	}
	completions[i] = c
	return true
}

// Round groups the cells locked by one submit.
type Round struct {
	Submits int      `json:"submits"`
	Time    int      `json:"time"`
	Words   []string `json:"words"`
}

// Report is the derived score view of a session.
type Report struct {
	Total          int                `json:"total"`
	PerCell        map[grid.Index]int `json:"perCell"`
	OneSubmitClear bool               `json:"oneSubmitClear"`
	Rounds         []Round            `json:"rounds"`
}

// scoredCells are the used, non-fixed cells of p.
func scoredCells(p *puzzle.Puzzle) []grid.Index {
	var out []grid.Index
	for _, i := range grid.UsedCells(p.Grid, p.Solutions) {
		if !p.Grid.Cells[i].IsFixed() {
			out = append(out, i)
		}
	}
	return out
}

// Compute derives the report for p from the recorded completions. Cells that
// never locked contribute nothing to the total and rule out the bonus.
func Compute(p *puzzle.Puzzle, completions map[grid.Index]Completion) Report {
	rep := Report{PerCell: map[grid.Index]int{}, Rounds: []Round{}}
	cells := scoredCells(p)
	rep.OneSubmitClear = len(cells) > 0

	bySubmits := map[int]*Round{}
	for _, i := range cells {
		c, ok := completions[i]
		if !ok {
			rep.OneSubmitClear = false
			continue
		}
		v := c.Value()
		rep.PerCell[i] = v
		rep.Total += v
		if c.Submits != 1 {
			rep.OneSubmitClear = false
		}

		r := bySubmits[c.Submits]
		if r == nil {
			r = &Round{Submits: c.Submits, Time: c.Time}
			bySubmits[c.Submits] = r
		}
		if c.Time > r.Time {
			r.Time = c.Time
		}
		if w, ok := p.Solutions[i]; ok {
			r.Words = append(r.Words, w)
		}
	}

	for _, r := range bySubmits {
		sort.Strings(r.Words)
		rep.Rounds = append(rep.Rounds, *r)
	}
	sort.Slice(rep.Rounds, func(a, b int) bool {
		if rep.Rounds[a].Time != rep.Rounds[b].Time {
			return rep.Rounds[a].Time < rep.Rounds[b].Time
		}
		return rep.Rounds[a].Submits < rep.Rounds[b].Submits
	})
	return rep
}

// Share renders the plain-text result a player copies after solving.
func Share(p *puzzle.Puzzle, rep Report) string {
	var b strings.Builder
	title := p.Date
	if p.Title != "" {
		title = p.Title + " (" + p.Date + ")"
	}
	fmt.Fprintf(&b, "Double Speak %s\n", title)
	for _, r := range rep.Rounds {
		fmt.Fprintf(&b, "#%d @ %s: %s\n", r.Submits, clock(r.Time), strings.Join(r.Words, ", "))
	}
	fmt.Fprintf(&b, "Score: %d", rep.Total)
	if rep.OneSubmitClear {
		b.WriteString(" (one-submit clear)")
	}
	return b.String()
}

// clock formats seconds as m:ss.
func clock(sec int) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
