// internal/play/types.go
//
// Core type definitions for the play engine.
// Defines:
//   - Set: unordered set of cell indices (locked / incorrect cells).
//   - State: per-session fill-in state for one puzzle.
//   - Result: outcome of a submit.

package play

import (
	"sort"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/score"
)

// NoFocus marks a state with no focused cell.
const NoFocus grid.Index = -1

// Set is an unordered set of cell indices.
type Set map[grid.Index]struct{}

func (s Set) Has(i grid.Index) bool { _, ok := s[i]; return ok }
func (s Set) Add(i grid.Index)      { s[i] = struct{}{} }
func (s Set) Remove(i grid.Index)   { delete(s, i) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []grid.Index {
	out := make([]grid.Index, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// SetOf builds a set from a slice.
func SetOf(ids ...grid.Index) Set {
	s := make(Set, len(ids))
	for _, i := range ids {
		s.Add(i)
	}
	return s
}

// State is the mutable play state of one puzzle session.
//
// Entries hold only what the player typed past the revealed prefix; the value
// compared against the answer is always Reveals[i] + Entries[i].
type State struct {
	Entries     map[grid.Index]string
	Reveals     map[grid.Index]string
	Locked      Set
	Incorrect   Set
	Focused     grid.Index
	Attempts    int
	Completions map[grid.Index]score.Completion
}

// Result reports what a submit changed.
type Result struct {
	AllCorrect bool         `json:"allCorrect"`
	Locked     []grid.Index `json:"locked"`    // cells locked by this submit
	Incorrect  []grid.Index `json:"incorrect"` // cells flagged wrong by this submit
}
