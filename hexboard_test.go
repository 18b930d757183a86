package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHexBoard(t *testing.T, width, height int) (*HexBoard, *ConstBoard) {
	t.Helper()
	cb, err := NewConstBoard(width, height)
	require.NoError(t, err)
	return NewHexBoard(cb, newTestICE()), cb
}

func TestPlayMoveUndoMoveIdentity(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.ComputeAll(Black)

	hash := h.Hash()
	empty := h.Board().Empty()
	dead := h.Inferior().Dead()
	logSizes := [2]int{h.VCs(Black).Log().Size(), h.VCs(White).Log().Size()}
	hadFull := h.VCs(Black).FullExists(EdgeNorth, cb.Cell(1, 0))

	h.PlayMove(Black, cb.Cell(1, 1))
	require.Equal(t, 1, h.Depth())
	require.Equal(t, cb.Cell(1, 1), h.LastPlayed())
	require.NotEqual(t, hash, h.Hash())

	h.UndoMove()
	require.Equal(t, 0, h.Depth())
	require.Equal(t, hash, h.Hash())
	require.True(t, empty.Equal(h.Board().Empty()))
	require.True(t, dead.Equal(h.Inferior().Dead()))
	require.Equal(t, logSizes[0], h.VCs(Black).Log().Size())
	require.Equal(t, logSizes[1], h.VCs(White).Log().Size())
	require.Equal(t, hadFull, h.VCs(Black).FullExists(EdgeNorth, cb.Cell(1, 0)))
}

func TestPlayMoveUndoMoveDeepIdentity(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.ComputeAll(Black)
	hash := h.Hash()
	empty := h.Board().Empty()

	moves := []struct {
		color HexColor
		cell  HexCell
	}{
		{Black, cb.Cell(1, 1)},
		{White, cb.Cell(2, 1)},
		{Black, cb.Cell(1, 2)},
	}
	for _, m := range moves {
		h.PlayMove(m.color, m.cell)
	}
	require.Equal(t, 3, h.Depth())

	for range moves {
		h.UndoMove()
	}
	require.Equal(t, 0, h.Depth())
	require.Equal(t, hash, h.Hash())
	require.True(t, empty.Equal(h.Board().Empty()))
}

func TestPlayStonesLeavesHashAlone(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.ComputeAll(Black)
	hash := h.Hash()
	stones := h.Board().NumStones()

	h.PlayStones(White, BitsetOf(cb.Cell(0, 0), cb.Cell(3, 3)), Black)
	require.Equal(t, hash, h.Hash(), "batch placement is hash exempt")
	require.Equal(t, stones+2, h.Board().NumStones())
	require.Equal(t, CellInvalid, h.LastPlayed())

	h.UndoMove()
	require.Equal(t, stones, h.Board().NumStones())
	require.Equal(t, hash, h.Hash())
}

func TestAddStonesRevertsWithParentMove(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.ComputeAll(Black)
	hash := h.Hash()
	empty := h.Board().Empty()

	h.PlayMove(Black, cb.Cell(1, 1))
	h.AddStones(White, BitsetOf(cb.Cell(2, 2)), Black)
	require.Equal(t, 1, h.Depth(), "added stones attach to the frame on top")

	h.UndoMove()
	require.Equal(t, hash, h.Hash())
	require.True(t, empty.Equal(h.Board().Empty()))
}

func TestUndoWithoutBackupRecomputes(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.BackupInferenceInfo = false
	h.ComputeAll(Black)
	dead := h.Inferior().Dead()

	h.PlayMove(Black, cb.Cell(2, 2))
	h.UndoMove()
	require.True(t, dead.Equal(h.Inferior().Dead()))
}

func TestSetStateClearsHistory(t *testing.T) {
	h, cb := newTestHexBoard(t, 4, 4)
	h.ComputeAll(Black)
	h.PlayMove(Black, cb.Cell(1, 1))

	h.SetState(BitsetOf(cb.Cell(0, 0)), Bitset{})
	require.Equal(t, 0, h.Depth())
	require.Equal(t, Black, h.Board().ColorAt(cb.Cell(0, 0)))
	require.Equal(t, 1, h.Board().NumStones())
}

func TestEmptyRegionsSplitByWall(t *testing.T) {
	h, cb := newTestHexBoard(t, 3, 3)
	var wall Bitset
	for x := 0; x < 3; x++ {
		wall.Set(cb.Cell(x, 1))
	}
	h.SetState(wall, Bitset{})

	regions := h.EmptyRegions()
	require.Len(t, regions, 2)

	var top Bitset
	for _, r := range regions {
		if r.Test(cb.Cell(1, 0)) {
			top = r
		}
	}
	require.True(t, top.Any())
	require.True(t, h.RegionTouchesEdges(top, White),
		"the top band still spans east to west")
	require.False(t, h.RegionTouchesEdges(top, Black),
		"the top band reaches north but not south")
}
