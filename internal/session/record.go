// internal/session/record.go
//
// Persisted session record and the store that reads/writes it.
// Responsibilities:
//   - JSON record shape: entries, reveals, focus, locked/incorrect cells,
//     solved flag, completion time, submit count, per-cell completions.
//   - Key layout "<namespace>-<puzzleId>".
//   - Stale-record guard: a record for another puzzle is never applied.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/play"
	"github.com/hugolynch/double-speak/internal/puzzle"
	"github.com/hugolynch/double-speak/internal/score"
)

// Record is the persisted form of one play session.
type Record struct {
	PuzzleID        string                          `json:"puzzleId"`
	Entries         map[grid.Index]string           `json:"entries"`
	Reveals         map[grid.Index]string           `json:"reveals"`
	FocusedCell     *grid.Index                     `json:"focusedCell"`
	LockedCells     []grid.Index                    `json:"lockedCells"`
	IncorrectCells  []grid.Index                    `json:"incorrectCells"`
	Solved          bool                            `json:"solved"`
	CompletionTime  *int                            `json:"completionTime,omitempty"`
	SubmitCount     int                             `json:"submitCount"`
	TileCompletions map[grid.Index]score.Completion `json:"tileCompletions"`
	StartedAt       *time.Time                      `json:"startedAt,omitempty"`
}

// FromSnapshot converts a session snapshot into its persisted form.
func FromSnapshot(snap play.Snapshot) Record {
	st := snap.State
	rec := Record{
		PuzzleID:        snap.PuzzleID,
		Entries:         st.Entries,
		Reveals:         st.Reveals,
		LockedCells:     st.Locked.Sorted(),
		IncorrectCells:  st.Incorrect.Sorted(),
		Solved:          snap.Solved,
		CompletionTime:  snap.CompletionTime,
		SubmitCount:     st.Attempts,
		TileCompletions: st.Completions,
	}
	if st.Focused != play.NoFocus {
		f := st.Focused
		rec.FocusedCell = &f
	}
	if !snap.StartedAt.IsZero() {
		t := snap.StartedAt.UTC()
		rec.StartedAt = &t
	}
	return rec
}

// Resume rebuilds a game for p from the record. A record for a different
// puzzle yields ErrStale; one that addresses cells outside p's grid yields ErrCorrupt.
func (r Record) Resume(p *puzzle.Puzzle, now play.Clock) (*play.Game, error) {
	if p == nil || r.PuzzleID != p.ID {
		return nil, ErrStale
	}
	in := p.Grid.InBounds
	st := play.New()
	for i, v := range r.Entries {
		if !in(i) {
			return nil, ErrCorrupt
		}
		if v != "" {
			st.Entries[i] = v
		}
	}
	for i, v := range r.Reveals {
		if !in(i) {
			return nil, ErrCorrupt
		}
		if v != "" {
			st.Reveals[i] = v
		}
	}
	for _, i := range r.LockedCells {
		if !in(i) {
			return nil, ErrCorrupt
		}
		st.Locked.Add(i)
	}
	for _, i := range r.IncorrectCells {
		if !in(i) {
			return nil, ErrCorrupt
		}
		st.Incorrect.Add(i)
	}
	for i, c := range r.TileCompletions {
		if !in(i) {
			return nil, ErrCorrupt
		}
		st.Completions[i] = c
	}
	if r.FocusedCell != nil {
		if !in(*r.FocusedCell) {
			return nil, ErrCorrupt
		}
		st.Focused = *r.FocusedCell
	}
	st.Attempts = r.SubmitCount

	var started time.Time
	if r.StartedAt != nil {
		started = *r.StartedAt
	}
	return play.Resume(p, st, started, r.CompletionTime, now), nil
}

// Key is the storage key of a session record.
func Key(namespace, puzzleID string) string { return namespace + "-" + puzzleID }

// Store reads and writes session records under one namespace.
type Store struct {
	kv        KV
	namespace string
}

// NewStore returns a store writing keys under namespace.
func NewStore(kv KV, namespace string) *Store {
	return &Store{kv: kv, namespace: namespace}
}

// For narrows the store to one player's namespace.
func (s *Store) For(player string) *Store {
	return &Store{kv: s.kv, namespace: s.namespace + "." + player}
}

// Load restores the saved game for p. ErrNotFound, ErrStale and ErrCorrupt all
// mean "start fresh"; other errors come from the backing store.
func (s *Store) Load(ctx context.Context, p *puzzle.Puzzle, now play.Clock) (*play.Game, error) {
	raw, err := s.kv.Get(ctx, Key(s.namespace, p.ID))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec.Resume(p, now)
}

// Save persists the current state of g.
func (s *Store) Save(ctx context.Context, g *play.Game) error {
	rec := FromSnapshot(g.Snapshot())
	if rec.PuzzleID == "" {
		return errors.New("session: game has no puzzle")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, Key(s.namespace, rec.PuzzleID), string(b))
}

// Clear removes the saved session for puzzleID.
func (s *Store) Clear(ctx context.Context, puzzleID string) error {
	return s.kv.Delete(ctx, Key(s.namespace, puzzleID))
}

// Fresh reports whether err from Load means there is simply no usable record.
func Fresh(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale) || errors.Is(err, ErrCorrupt)
}
