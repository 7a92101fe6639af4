// internal/play/game.go
//
// Game binds a Puzzle to its State for one player and serializes access.
// Responsibilities:
//   - Guard every transition with a single mutex (Submit/SetEntry/RevealLetter
//     all read-modify-write the same maps).
//   - Start the session clock on the first interaction and attribute elapsed
//     seconds to submits.
//   - Translate out-of-range cell indices from callers into errors instead of panics.

package play

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/puzzle"
	"github.com/hugolynch/double-speak/internal/score"
)

// ErrBadCell is returned when a caller addresses a cell outside the grid.
var ErrBadCell = errors.New("cell out of range")

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Game is one player's session on one puzzle.
type Game struct {
	mu             sync.Mutex
	puzzle         *puzzle.Puzzle
	state          *State
	startedAt      time.Time // zero until the first interaction
	completionTime *int
	now            Clock
}

// NewGame starts a fresh session on p. A nil clock means time.Now.
func NewGame(p *puzzle.Puzzle, now Clock) *Game {
	if now == nil {
		now = time.Now
	}
	return &Game{puzzle: p, state: New(), now: now}
}

// Resume rebuilds a session from previously saved state.
func Resume(p *puzzle.Puzzle, st *State, startedAt time.Time, completionTime *int, now Clock) *Game {
	g := NewGame(p, now)
	if st != nil {
		g.state = st
	}
	g.startedAt = startedAt
	g.completionTime = completionTime
	return g
}

// Puzzle returns the puzzle this session plays.
func (g *Game) Puzzle() *puzzle.Puzzle { return g.puzzle }

// touch starts the clock on first interaction.
func (g *Game) touch() {
	if g.startedAt.IsZero() {
		g.startedAt = g.now()
	}
}

func (g *Game) elapsed() int {
	if g.startedAt.IsZero() {
		return 0
	}
	return int(g.now().Sub(g.startedAt) / time.Second)
}

func (g *Game) check(i grid.Index) error {
	if g.puzzle == nil || !g.puzzle.Grid.InBounds(i) {
		return ErrBadCell
	}
	return nil
}

// SetEntry applies a player edit to cell i.
func (g *Game) SetEntry(i grid.Index, raw string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(i); err != nil {
		return false, err
	}
	if !g.state.SetEntry(g.puzzle, i, raw) {
		return false, nil
	}
	g.touch()
	return true, nil
}

// Focus moves the cursor; a negative index clears it.
func (g *Game) Focus(i grid.Index) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i >= 0 {
		if err := g.check(i); err != nil {
			return err
		}
	}
	g.state.Focus(g.puzzle, i)
	return nil
}

// FocusNext moves the cursor to the next open solution cell.
func (g *Game) FocusNext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.puzzle != nil {
		g.state.FocusNext(g.puzzle)
	}
}

// RevealLetter reveals one more letter of the focused cell.
func (g *Game) RevealLetter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.RevealLetter(g.puzzle) {
		return false
	}
	g.touch()
	return true
}

// Submit checks the board and, once solved, fixes the completion time.
func (g *Game) Submit() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.puzzle == nil {
		return Result{}
	}
	g.touch()
	res := g.state.Submit(g.puzzle, g.elapsed())
	if res.AllCorrect && g.completionTime == nil {
		t := g.elapsed()
		g.completionTime = &t
	}
	return res
}

// Reset discards all progress, including the clock.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Reset()
	g.startedAt = time.Time{}
	g.completionTime = nil
}

// Score derives the current score report.
func (g *Game) Score() score.Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.puzzle == nil {
		return score.Report{PerCell: map[grid.Index]int{}, Rounds: []score.Round{}}
	}
	return score.Compute(g.puzzle, g.state.Completions)
}

// Snapshot is a consistent copy of a session for persistence and display.
type Snapshot struct {
	PuzzleID       string
	State          State
	Solved         bool
	StartedAt      time.Time
	Elapsed        int
	CompletionTime *int
}

// Snapshot copies the session under the lock.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := Snapshot{
		State:     g.state.clone(),
		Solved:    g.state.IsSolved(g.puzzle),
		StartedAt: g.startedAt,
		Elapsed:   g.elapsed(),
	}
	if g.puzzle != nil {
		snap.PuzzleID = g.puzzle.ID
	}
	if g.completionTime != nil {
		t := *g.completionTime
		snap.CompletionTime = &t
		snap.Elapsed = t
	}
	return snap
}

func (s *State) clone() State {
	return State{
		Entries:     maps.Clone(s.Entries),
		Reveals:     maps.Clone(s.Reveals),
		Locked:      maps.Clone(s.Locked),
		Incorrect:   maps.Clone(s.Incorrect),
		Focused:     s.Focused,
		Attempts:    s.Attempts,
		Completions: maps.Clone(s.Completions),
	}
}
