// Package daily picks the puzzle of the day and keeps the per-day results board.
package daily

import (
	"time"

	"github.com/hugolynch/double-speak/internal/puzzle"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(puzzle.DateLayout)
}

// Pick returns today's puzzle from an index sorted newest first: the entry
// dated today, else the most recent one not after today. ok is false when
// every puzzle is in the future or the index is empty.
func Pick(index []puzzle.Summary, now time.Time) (puzzle.Summary, bool) {
	today := DateKey(now)
	for _, s := range index {
		if s.Date <= today {
			return s, true
		}
	}
	return puzzle.Summary{}, false
}

// Released filters out puzzles dated after today, keeping order.
func Released(index []puzzle.Summary, now time.Time) []puzzle.Summary {
	today := DateKey(now)
	out := make([]puzzle.Summary, 0, len(index))
	for _, s := range index {
		if s.Date <= today {
			out = append(out, s)
		}
	}
	return out
}
