package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSolver() *DfsSolver {
	tt := NewTranspositionTable(1<<12, 2)
	return NewDfsSolver(&SolverPositions{TT: tt}, NewPriorKnowledge())
}

func TestSolveTerminalPosition(t *testing.T) {
	h, cb := newTestHexBoard(t, 3, 3)
	h.SetState(BitsetOf(cb.Cell(1, 0), cb.Cell(1, 1), cb.Cell(1, 2)), Bitset{})

	s := newTestSolver()
	result, sol := s.Solve(h, White, 0, nil)
	require.Equal(t, ResultLoss, result)
	require.Equal(t, uint64(0), sol.Stats.ExpandedStates)
	require.Equal(t, 0, sol.MovesToConnection)
	require.True(t, sol.Proof.Test(cb.Cell(1, 1)), "the proof is the connecting group")

	// The same stones win for the side owning them.
	result, _ = s.Solve(h, Black, 0, nil)
	require.Equal(t, ResultWin, result)
}

func TestSolveEstablishedConnectionNeedsNoSearch(t *testing.T) {
	h, cb := newTestHexBoard(t, 3, 3)
	// White reaches west directly and east through the double threat at
	// (2,0)/(2,1); black to move cannot cut an established connection.
	h.SetState(Bitset{}, BitsetOf(cb.Cell(0, 1), cb.Cell(1, 1)))

	s := newTestSolver()
	result, sol := s.Solve(h, Black, 0, nil)
	require.Equal(t, ResultLoss, result)
	require.Equal(t, uint64(0), sol.Stats.ExpandedStates)
	require.Equal(t, 1, sol.MovesToConnection)
	require.True(t, sol.Proof.Any())
	require.True(t, sol.Proof.SubsetOf(cb.Cells()))
}

func TestSolveEmptyBoardFirstPlayerWins(t *testing.T) {
	h, cb := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	result, sol := s.Solve(h, Black, 0, nil)
	require.Equal(t, ResultWin, result)
	require.NotEmpty(t, sol.PV)
	require.True(t, sol.PV[0].IsInterior())
	require.True(t, sol.Proof.Any())
	require.True(t, sol.Proof.SubsetOf(cb.Cells()))
	require.GreaterOrEqual(t, sol.MovesToConnection, 1)
	require.False(t, s.Aborted())

	seen := make(map[HexCell]bool)
	for _, m := range sol.PV {
		require.True(t, m.IsInterior())
		require.False(t, seen[m], "a variation never repeats a cell")
		seen[m] = true
	}
}

func TestSolveStoresAndReusesRootResult(t *testing.T) {
	h, _ := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	result, _ := s.Solve(h, Black, 0, nil)
	require.Equal(t, ResultWin, result)

	entry, ok := s.Positions().Lookup(stateHash(h, Black))
	require.True(t, ok, "the solved root lands in the table")
	require.Equal(t, ResultWin, entry.Result)

	again, sol := s.Solve(h, Black, 0, nil)
	require.Equal(t, ResultWin, again)
	require.Equal(t, uint64(0), sol.Stats.ExpandedStates,
		"the second run answers from the table")
}

func TestSolveRootAgainIgnoresTableAtRoot(t *testing.T) {
	h, _ := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	s.SolveRootAgain = true
	_, _ = s.Solve(h, Black, 0, nil)
	_, sol := s.Solve(h, Black, 0, nil)
	require.Greater(t, sol.Stats.ExpandedStates, uint64(0),
		"the root must be searched again even when cached")
}

func TestSolveLossProofStaysInsideMustplay(t *testing.T) {
	h, cb := newTestHexBoard(t, 3, 3)
	h.SetState(BitsetOf(cb.Cell(1, 1)), Bitset{})

	s := newTestSolver()
	result, sol := s.Solve(h, White, 0, nil)
	require.Equal(t, ResultLoss, result)
	require.True(t, sol.Proof.Any())
	require.True(t, sol.Proof.SubsetOf(cb.Cells()))
	require.False(t, sol.Proof.Test(cb.Cell(1, 1)),
		"played stones never carry a loss proof")
}

func TestSolveDecomposesSplitPosition(t *testing.T) {
	h, cb := newTestHexBoard(t, 5, 5)
	// The fully occupied middle row splits the empties into a top and a
	// bottom half. Each half touches both white edges but only one black
	// edge, so white to move solves the halves independently.
	black := BitsetOf(cb.Cell(0, 2), cb.Cell(4, 2))
	white := BitsetOf(cb.Cell(1, 2), cb.Cell(2, 2), cb.Cell(3, 2))
	h.SetState(black, white)

	s := newTestSolver()
	result, sol := s.Solve(h, White, 0, nil)
	require.Equal(t, ResultLoss, result)
	require.Greater(t, sol.Stats.Decompositions, uint64(0),
		"the split position must go through the decomposition path")
	require.Equal(t, uint64(0), sol.Stats.DecompositionsWon)

	// Losing both halves on their own is exactly losing their union.
	var halves [2]Bitset
	for x := 0; x < 5; x++ {
		halves[0].Set(cb.Cell(x, 0))
		halves[0].Set(cb.Cell(x, 1))
		halves[1].Set(cb.Cell(x, 3))
		halves[1].Set(cb.Cell(x, 4))
	}
	for i := range halves {
		sub, _ := newTestHexBoard(t, 5, 5)
		sub.SetState(black.Or(halves[1-i]), white)
		r, _ := newTestSolver().Solve(sub, White, 0, nil)
		require.Equal(t, ResultLoss, r,
			"each half alone loses for the mover")
	}
}

func TestSolveCountsMovesPlayed(t *testing.T) {
	h, _ := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	_, sol := s.Solve(h, Black, 0, nil)
	require.Greater(t, sol.Stats.MovesPlayed, uint64(0))
	require.GreaterOrEqual(t, sol.Stats.MovesPlayed, sol.Stats.Branches,
		"every searched branch plays at least its own move")
}

func TestSolveTracksRootMoveProgress(t *testing.T) {
	h, _ := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	_, _ = s.Solve(h, Black, 0, nil)
	require.Greater(t, s.moveProgress[0].Total, 0,
		"the expanded root records its ordered move count")
	require.LessOrEqual(t, s.moveProgress[0].Done, s.moveProgress[0].Total)
}

func TestProgressSnapshotsCompletedMoves(t *testing.T) {
	s := newTestSolver()
	var got ProgressUpdate
	s.OnProgress = func(p ProgressUpdate) { got = p }
	s.pollDepth = 1
	s.moveProgress[0] = MoveProgress{Done: 2, Total: 5}
	s.moveProgress[1] = MoveProgress{Done: 0, Total: 3}

	s.pollTicker = 63
	s.abort()
	require.Equal(t,
		[]MoveProgress{{Done: 2, Total: 5}, {Done: 0, Total: 3}},
		got.Completed, "snapshots cover root through the polled depth")
	require.Equal(t, 1, got.Depth)
}

func TestSolveHistogramBucketsMustplayAndTableHits(t *testing.T) {
	h, _ := newTestHexBoard(t, 3, 3)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	_, _ = s.Solve(h, Black, 0, nil)
	require.NotEmpty(t, s.Histogram().Mustplay,
		"expanded nodes bucket their mustplay size")

	_, _ = s.Solve(h, Black, 0, nil)
	hist := s.Histogram()
	require.Equal(t, uint64(1), hist.TTHits[0],
		"the cached rerun answers with one hit at the root")
	require.Empty(t, hist.Mustplay, "nothing expands on the cached rerun")
	require.Contains(t, s.HistogramDump(), "tt-hits-depth")
}

func TestSolveAborts(t *testing.T) {
	h, _ := newTestHexBoard(t, 5, 5)
	h.SetState(Bitset{}, Bitset{})

	s := newTestSolver()
	result, _ := s.Solve(h, Black, 0, func() bool { return true })
	require.Equal(t, ResultUnknown, result)
	require.True(t, s.Aborted())
}

func TestResultStringAndOpposite(t *testing.T) {
	require.Equal(t, "win", ResultWin.String())
	require.Equal(t, "loss", ResultLoss.String())
	require.Equal(t, ResultLoss, ResultWin.Opposite())
	require.Equal(t, ResultWin, ResultLoss.Opposite())
	require.Equal(t, ResultUnknown, ResultUnknown.Opposite())
}

func TestBranchStatisticsAdd(t *testing.T) {
	a := BranchStatistics{TotalStates: 3, ExpandedStates: 1, Branches: 2, MovesPlayed: 4}
	a.Add(BranchStatistics{TotalStates: 4, ExpandedStates: 2, Decompositions: 1, MovesPlayed: 6})
	require.Equal(t, uint64(7), a.TotalStates)
	require.Equal(t, uint64(3), a.ExpandedStates)
	require.Equal(t, uint64(2), a.Branches)
	require.Equal(t, uint64(1), a.Decompositions)
	require.Equal(t, uint64(10), a.MovesPlayed)
}

func TestPriorReorderPermutesOnly(t *testing.T) {
	h, cb := newTestHexBoard(t, 5, 5)
	h.SetState(BitsetOf(cb.Cell(2, 2)), Bitset{})

	moves := []HexCell{cb.Cell(0, 0), cb.Cell(2, 1), cb.Cell(4, 4), cb.Cell(2, 3)}
	out := NewPriorKnowledge().Reorder(h, Black, moves)

	require.Len(t, out, len(moves))
	want := make(map[HexCell]bool)
	for _, m := range moves {
		want[m] = true
	}
	for _, m := range out {
		require.True(t, want[m], "reordering must never invent or drop moves")
	}
	require.NotEqual(t, cb.Cell(0, 0), out[0],
		"a central ladder extension outranks the far corner")
}
