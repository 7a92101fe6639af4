package play

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolynch/double-speak/internal/grid"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestGameAttributesElapsedTime(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	g := NewGame(weather(), clk.Now)

	clk.Advance(time.Hour) // idle time before the first interaction is not counted
	_, err := g.SetEntry(1, "bow")
	require.NoError(t, err)
	_, err = g.SetEntry(2, "strom")
	require.NoError(t, err)

	clk.Advance(12 * time.Second)
	assert.False(t, g.Submit().AllCorrect)

	_, err = g.SetEntry(2, "storm")
	require.NoError(t, err)
	clk.Advance(18 * time.Second)
	assert.True(t, g.Submit().AllCorrect)

	rep := g.Score()
	assert.Equal(t, 12+30*2, rep.Total)

	clk.Advance(time.Minute)
	snap := g.Snapshot()
	assert.True(t, snap.Solved)
	require.NotNil(t, snap.CompletionTime)
	assert.Equal(t, 30, *snap.CompletionTime)
	assert.Equal(t, 30, snap.Elapsed)
	assert.Equal(t, "2025-03-14", snap.PuzzleID)
}

func TestGameRejectsOutOfRange(t *testing.T) {
	g := NewGame(weather(), nil)
	_, err := g.SetEntry(9, "x")
	assert.ErrorIs(t, err, ErrBadCell)
	assert.ErrorIs(t, g.Focus(3), ErrBadCell)
	assert.NoError(t, g.Focus(-1))
}

func TestGameNoOpsLeaveClockStopped(t *testing.T) {
	g := NewGame(weather(), nil)

	assert.False(t, g.RevealLetter(), "no focus")
	require.NoError(t, g.Focus(0))
	assert.False(t, g.RevealLetter(), "fixed cell")
	changed, err := g.SetEntry(0, "hail")
	require.NoError(t, err)
	assert.False(t, changed, "fixed cell")

	snap := g.Snapshot()
	assert.True(t, snap.StartedAt.IsZero())
	assert.Empty(t, snap.State.Entries)

	require.NoError(t, g.Focus(1))
	assert.True(t, g.RevealLetter())
	assert.False(t, g.Snapshot().StartedAt.IsZero())
}

func TestGameResetClearsClock(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	g := NewGame(weather(), clk.Now)
	_, _ = g.SetEntry(1, "bow")
	clk.Advance(5 * time.Second)
	g.Submit()

	g.Reset()
	snap := g.Snapshot()
	assert.True(t, snap.StartedAt.IsZero())
	assert.Equal(t, 0, snap.State.Attempts)
	assert.Empty(t, snap.State.Locked)
}

func TestSnapshotIsACopy(t *testing.T) {
	g := NewGame(weather(), nil)
	_, _ = g.SetEntry(1, "bo")
	snap := g.Snapshot()
	_, _ = g.SetEntry(1, "bow")
	assert.Equal(t, "bo", snap.State.Entries[grid.Index(1)])
}

func TestGameConcurrentUse(t *testing.T) {
	g := NewGame(weather(), nil)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = g.SetEntry(1, "bow")
			} else {
				g.Submit()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, g.Snapshot().State.Attempts)
}
