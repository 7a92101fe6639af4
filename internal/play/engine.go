// internal/play/engine.go
//
// Cell lifecycle for a single puzzle session.
// Responsibilities:
//   - Player edits (SetEntry) that can never erase a revealed prefix.
//   - Hints (RevealLetter) that grow the revealed prefix one letter at a time.
//   - Submission (Submit) that locks correct cells and flags wrong ones.
//   - Focus handling and full reset.
//
// Per-cell states: EMPTY -> TYPING -> {LOCKED | INCORRECT} -> TYPING -> ...
// LOCKED is terminal until Reset.

package play

import (
	"strings"
	"unicode/utf8"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/puzzle"
	"github.com/hugolynch/double-speak/internal/score"
)

// New returns the initial state of a freshly loaded puzzle.
func New() *State {
	return &State{
		Entries:     map[grid.Index]string{},
		Reveals:     map[grid.Index]string{},
		Locked:      Set{},
		Incorrect:   Set{},
		Focused:     NoFocus,
		Completions: map[grid.Index]score.Completion{},
	}
}

// Reset replaces the state with a fresh one.
func (s *State) Reset() { *s = *New() }

// Display is the value shown in cell i: revealed prefix followed by the entry.
func (s *State) Display(i grid.Index) string { return s.Reveals[i] + s.Entries[i] }

// SetEntry records raw as the full visible value of cell i. Only solution
// cells take entries; locked cells are frozen, and a value shorter than the
// revealed prefix is rejected. Reports whether the state changed.
func (s *State) SetEntry(p *puzzle.Puzzle, i grid.Index, raw string) bool {
	if p == nil || !p.IsSolutionCell(i) || s.Locked.Has(i) {
		return false
	}
	v := strings.ToLower(raw)
	rev := utf8.RuneCountInString(s.Reveals[i])
	runes := []rune(v)
	if len(runes) < rev {
		return false
	}
	if entry := string(runes[rev:]); entry == "" {
		delete(s.Entries, i)
	} else {
		s.Entries[i] = entry
	}
	s.Incorrect.Remove(i)
	return true
}

// RevealLetter extends the revealed prefix of the focused cell by one letter of
// its answer and clears whatever the player had typed there. It does nothing
// when no cell is focused, the cell is fixed, locked or has no answer, or the
// whole answer is already revealed.
func (s *State) RevealLetter(p *puzzle.Puzzle) bool {
	if p == nil || s.Focused == NoFocus {
		return false
	}
	i := s.Focused
	if p.Grid.Cell(i).IsFixed() || s.Locked.Has(i) {
		return false
	}
	sol, ok := p.Solution(i)
	if !ok {
		return false
	}
	answer := []rune(puzzle.NormalizeWord(sol))
	n := utf8.RuneCountInString(s.Reveals[i])
	if n >= len(answer) {
		return false
	}
	s.Reveals[i] = string(answer[:n+1])
	delete(s.Entries, i)
	s.Incorrect.Remove(i)
	return true
}

// Focus moves the cursor to i. A negative index clears it.
func (s *State) Focus(p *puzzle.Puzzle, i grid.Index) {
	if i < 0 {
		s.Focused = NoFocus
		return
	}
	p.Grid.Cell(i) // range check
	s.Focused = i
}

// FocusNext moves the cursor to the next unlocked solution cell after the
// current one in reading order, wrapping around. Focus is cleared when every
// solution cell is locked.
func (s *State) FocusNext(p *puzzle.Puzzle) {
	open := s.openCells(p)
	if len(open) == 0 {
		s.Focused = NoFocus
		return
	}
	for _, i := range open {
		if i > s.Focused {
			s.Focused = i
			return
		}
	}
	s.Focused = open[0]
}

// openCells lists unlocked solution cells in ascending order.
func (s *State) openCells(p *puzzle.Puzzle) []grid.Index {
	var out []grid.Index
	for _, i := range p.SolutionIndices() {
		if !s.Locked.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// IsSolved reports whether every solution cell of p is locked.
func (s *State) IsSolved(p *puzzle.Puzzle) bool {
	if p == nil {
		return false
	}
	for i := range p.Solutions {
		if !s.Locked.Has(i) {
			return false
		}
	}
	return true
}

// Submit checks every unlocked solution cell against the answer key.
//
//  1. Attempts is incremented (also when the puzzle is already solved).
//  2. A cell whose display equals its answer is locked and its completion recorded
//     at (elapsed, Attempts); a wrong cell with a typed entry has the entry cleared
//     and is flagged incorrect. Untouched cells are left alone.
//  3. Focus moves off a cell that just locked.
//
// A nil puzzle is a no-op that reports not solved.
func (s *State) Submit(p *puzzle.Puzzle, elapsed int) Result {
	if p == nil {
		return Result{}
	}
	s.Attempts++

	res := Result{Locked: []grid.Index{}, Incorrect: []grid.Index{}}
	for _, i := range p.SolutionIndices() {
		if s.Locked.Has(i) {
			continue
		}
		if s.Display(i) == puzzle.NormalizeWord(p.Solutions[i]) {
			s.Locked.Add(i)
			s.Incorrect.Remove(i)
			score.Record(s.Completions, i, score.Completion{Time: elapsed, Submits: s.Attempts})
			res.Locked = append(res.Locked, i)
			continue
		}
		if s.Entries[i] != "" {
			delete(s.Entries, i)
			s.Incorrect.Add(i)
			res.Incorrect = append(res.Incorrect, i)
		}
	}

	if s.Focused == NoFocus || s.Locked.Has(s.Focused) {
		s.FocusNext(p)
	}
	res.AllCorrect = s.IsSolved(p)
	return res
}
