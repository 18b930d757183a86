package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildVCSet(t *testing.T, color HexColor, b *StoneBoard) *VCSet {
	t.Helper()
	p := NewPosition(b)
	s := NewVCSet(color)
	s.Build(p)
	return s
}

func TestBuildBaseAdjacency(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)

	s := buildVCSet(t, Black, &b)
	require.True(t, s.FullExists(EdgeNorth, cb.Cell(1, 0)))
	require.True(t, s.FullExists(cb.Cell(0, 0), cb.Cell(1, 0)))

	carrier, ok := s.SmallestFullCarrier(EdgeNorth, cb.Cell(1, 0))
	require.True(t, ok)
	require.True(t, carrier.None(), "adjacency needs no carrier")
}

func TestOpponentStonesAreNotEndpoints(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	b.PlayMove(White, cb.Cell(1, 1))

	s := buildVCSet(t, Black, &b)
	for _, y := range []HexCell{EdgeNorth, cb.Cell(1, 0), cb.Cell(1, 2)} {
		require.False(t, s.FullExists(cb.Cell(1, 1), y))
		require.Empty(t, s.Semis(cb.Cell(1, 1), y))
	}
}

func TestBuildBridgeSemis(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)

	s := buildVCSet(t, Black, &b)
	union := s.SemiCarrierUnion(EdgeNorth, cb.Cell(1, 1))
	require.True(t, union.Test(cb.Cell(1, 0)))
	require.True(t, union.Test(cb.Cell(2, 0)))
}

func TestBuildFindsEstablishedConnection(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	// The white pair reaches west directly and east through the double
	// threat at (2,0)/(2,1); no black reply can cut it.
	b.PlayMove(White, cb.Cell(0, 1))
	b.PlayMove(White, cb.Cell(1, 1))

	white := buildVCSet(t, White, &b)
	require.True(t, white.FullConnectsEdges())

	black := buildVCSet(t, Black, &b)
	require.False(t, black.FullConnectsEdges())
}

func TestTryAddKeepsMinimalCarriers(t *testing.T) {
	s := NewVCSet(Black)
	x, y := firstInterior, firstInterior+5

	small := VC{X: x, Y: y, Type: VCFull, Carrier: BitsetOf(firstInterior + 1)}
	big := VC{X: x, Y: y, Type: VCFull,
		Carrier: BitsetOf(firstInterior+1, firstInterior+2)}

	require.True(t, s.tryAdd(small))
	require.False(t, s.tryAdd(big), "superset carriers add nothing")
	require.Len(t, s.Fulls(x, y), 1)

	// Adding a smaller carrier evicts the superset already present.
	s2 := NewVCSet(Black)
	require.True(t, s2.tryAdd(big))
	require.True(t, s2.tryAdd(small))
	require.Len(t, s2.Fulls(x, y), 1)
	require.True(t, s2.Fulls(x, y)[0].Carrier.Equal(small.Carrier))
}

func TestUndoBuildRestoresPreviousState(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	p := NewPosition(&b)

	s := NewVCSet(Black)
	s.Build(p)
	require.True(t, s.FullExists(EdgeNorth, cb.Cell(1, 0)))

	s.UndoBuild()
	require.False(t, s.FullExists(EdgeNorth, cb.Cell(1, 0)))
	require.Empty(t, s.Fulls(cb.Cell(0, 0), cb.Cell(1, 0)))
}

func TestChangeLogRevertToSize(t *testing.T) {
	cb, err := NewConstBoard(3, 3)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	p := NewPosition(&b)

	s := NewVCSet(Black)
	s.Build(p)
	size := s.Log().Size()

	b.PlayMove(Black, cb.Cell(1, 1))
	p.Rebuild()
	s.Build(p)
	require.Greater(t, s.Log().Size(), size)

	// Unwinding to the recorded size restores the first build exactly.
	b2 := NewStoneBoard(cb)
	p2 := NewPosition(&b2)
	want := NewVCSet(Black)
	want.Build(p2)

	s.Log().RevertToSize(s, size)
	require.Equal(t, size, s.Log().Size())
	require.Equal(t, len(want.Fulls(EdgeNorth, cb.Cell(1, 0))),
		len(s.Fulls(EdgeNorth, cb.Cell(1, 0))))
	union := s.SemiCarrierUnion(EdgeNorth, cb.Cell(1, 1))
	require.True(t, union.Equal(want.SemiCarrierUnion(EdgeNorth, cb.Cell(1, 1))))
}
