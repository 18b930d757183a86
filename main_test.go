package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTTKey(t *testing.T) {
	key, err := parseTTKey("0x00000000000000ff")
	require.NoError(t, err)
	require.Equal(t, uint64(255), key)

	key, err = parseTTKey("42")
	require.NoError(t, err)
	require.Equal(t, uint64(42), key)

	_, err = parseTTKey("")
	require.Error(t, err)
	_, err = parseTTKey("zz")
	require.Error(t, err)
}

func TestSolverStatsResponse(t *testing.T) {
	c := newTestController()
	resp := solverStats(c)
	require.Contains(t, resp.Histogram, "stones", "histogram header renders")
	require.Zero(t, resp.Stats.TotalStates)
}

func TestTTCacheStatusAndEntries(t *testing.T) {
	c := newTestController()
	tt := c.Solver().Positions().TT
	tt.Store(1, ResultWin, firstInterior, BitsetOf(firstInterior), 2)
	tt.Store(2, ResultLoss, CellInvalid, Bitset{}, 3)
	for i := 0; i < 5; i++ {
		tt.Probe(1)
	}

	status := ttCacheStatus(c)
	require.Equal(t, 2, status.Count)
	require.Equal(t, tt.Capacity(), status.Capacity)
	require.Greater(t, status.UsedBytes, uint64(0))

	resp := ttCacheEntries(c, 0, 10)
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)
	require.Equal(t, "0x0000000000000001", resp.Items[0].Hash,
		"the most probed entry sorts first")
	require.Equal(t, "win", resp.Items[0].Result)

	resp = ttCacheEntries(c, 1, 10)
	require.Len(t, resp.Items, 1)
	resp = ttCacheEntries(c, 5, 10)
	require.Empty(t, resp.Items)
}
