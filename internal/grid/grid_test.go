package grid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowColRoundTrip(t *testing.T) {
	g := New(3, 4)
	for i := Index(0); int(i) < g.Len(); i++ {
		r, c := g.RowCol(i)
		assert.Equal(t, i, g.At(r, c))
	}
}

func TestNeighborsOfEdges(t *testing.T) {
	g := New(2, 3)

	n := g.NeighborsOf(0)
	require.NotNil(t, n.Right)
	require.NotNil(t, n.Down)
	assert.Equal(t, Index(1), *n.Right)
	assert.Equal(t, Index(3), *n.Down)

	n = g.NeighborsOf(2)
	assert.Nil(t, n.Right)
	require.NotNil(t, n.Down)
	assert.Equal(t, Index(5), *n.Down)

	n = g.NeighborsOf(5)
	assert.Nil(t, n.Right)
	assert.Nil(t, n.Down)
}

func TestOutOfRangePanics(t *testing.T) {
	g := New(2, 2)
	assert.Panics(t, func() { g.NeighborsOf(4) })
	assert.Panics(t, func() { g.Cell(-1) })
}

func TestValidArrow(t *testing.T) {
	g := New(2, 3)
	assert.True(t, g.ValidArrow(Arrow{From: 0, To: 1, Dir: Right}))
	assert.True(t, g.ValidArrow(Arrow{From: 1, To: 4, Dir: Down}))
	assert.False(t, g.ValidArrow(Arrow{From: 2, To: 3, Dir: Right}), "wraps past last column")
	assert.False(t, g.ValidArrow(Arrow{From: 3, To: 6, Dir: Down}), "leaves the grid")
	assert.False(t, g.ValidArrow(Arrow{From: 0, To: 3, Dir: Right}), "direction mismatch")
}

func TestIsUsed(t *testing.T) {
	g := New(2, 3)
	g.Cells[0].Fixed = "rain"
	g.Arrows = []Arrow{{From: 0, To: 1, Dir: Right}}
	solutions := map[Index]string{1: "bow", 4: "storm"}

	assert.True(t, IsUsed(g, solutions, 0))
	assert.True(t, IsUsed(g, solutions, 1))
	assert.True(t, IsUsed(g, solutions, 4))
	assert.False(t, IsUsed(g, solutions, 2))
	assert.Equal(t, []Index{0, 1, 4}, UsedCells(g, solutions))
}

func TestDirJSON(t *testing.T) {
	var a Arrow
	require.NoError(t, json.Unmarshal([]byte(`{"from":0,"to":1,"dir":"right"}`), &a))
	assert.Equal(t, Right, a.Dir)
	assert.Error(t, json.Unmarshal([]byte(`{"from":0,"to":1,"dir":"left"}`), &a))
}
