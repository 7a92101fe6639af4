// internal/puzzle/puzzle.go
//
// Puzzle definition: one immutable daily board plus its answer key.
// Responsibilities:
//   - JSON shape shared by the puzzle files, the catalog and the editor export.
//   - Lowercase normalization of solution words on load.
//   - Structural validation (used by the editor before export and by the catalog on fetch).
//   - Summaries for the archive index, sorted newest first.

package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hugolynch/double-speak/internal/grid"
)

// DateLayout is the canonical YYYY-MM-DD date format; the date is also the puzzle id.
const DateLayout = "2006-01-02"

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid puzzle")

// Puzzle is a single puzzle instance.
type Puzzle struct {
	ID        string                `json:"id"`
	Date      string                `json:"date"`
	Title     string                `json:"title,omitempty"`
	Author    string                `json:"author,omitempty"`
	Grid      grid.Grid             `json:"grid"`
	Solutions map[grid.Index]string `json:"solutions"`
}

// Summary is the archive index entry for a puzzle.
type Summary struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// Decode reads one puzzle from r and normalizes its solution words.
func Decode(r io.Reader) (*Puzzle, error) {
	var p Puzzle
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode puzzle: %w", err)
	}
	p.Normalize()
	return &p, nil
}

// Normalize lowercases and trims solution words and fills nil collections.
func (p *Puzzle) Normalize() {
	if p.Solutions == nil {
		p.Solutions = map[grid.Index]string{}
	}
	for i, w := range p.Solutions {
		p.Solutions[i] = NormalizeWord(w)
	}
	if p.Grid.Arrows == nil {
		p.Grid.Arrows = []grid.Arrow{}
	}
}

// NormalizeWord is the single lowercase rule applied to every compared value.
func NormalizeWord(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Summary returns the index entry for p.
func (p *Puzzle) Summary() Summary {
	return Summary{ID: p.ID, Date: p.Date, Title: p.Title, Author: p.Author}
}

// Solution returns the answer for i, if i is a solution cell.
func (p *Puzzle) Solution(i grid.Index) (string, bool) {
	w, ok := p.Solutions[i]
	return w, ok
}

// IsSolutionCell reports whether i is a non-fixed cell with an answer.
func (p *Puzzle) IsSolutionCell(i grid.Index) bool {
	if !p.Grid.InBounds(i) || p.Grid.Cells[i].IsFixed() {
		return false
	}
	_, ok := p.Solutions[i]
	return ok
}

// SolutionIndices lists the answer-key cells in ascending order.
func (p *Puzzle) SolutionIndices() []grid.Index {
	out := make([]grid.Index, 0, len(p.Solutions))
	for i := range p.Solutions {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Public returns a copy of p with the answer key stripped, safe to hand to players.
func (p *Puzzle) Public() *Puzzle {
	cp := *p
	cp.Solutions = nil
	return &cp
}

// SortByDateDesc orders summaries newest first; ties fall back to id.
func SortByDateDesc(list []Summary) {
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].Date != list[b].Date {
			return list[a].Date > list[b].Date
		}
		return list[a].ID > list[b].ID
	})
}

// ValidDate reports whether s is a real YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
