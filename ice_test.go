package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestICE() *ICEngine {
	ice := NewICEngine(NewPatternLibrary(""))
	ice.VerifyInvariants = true
	return ice
}

func TestComputeFillinFindsSandwichedDead(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(2, 1), cb.Cell(3, 1), cb.Cell(3, 2), cb.Cell(2, 3)} {
		b.PlayMove(Black, c)
	}
	emptyBefore := b.Empty()

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeFillin(Black, p, &inf, CaptureBoth)

	require.True(t, inf.Dead().Test(cb.Cell(2, 2)))
	require.True(t, inf.All().SubsetOf(emptyBefore))
	require.Equal(t, DeadColor, b.ColorAt(cb.Cell(2, 2)), "dead cells are filled in")
}

func TestComputeFillinReachesFixedPoint(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(2, 1), cb.Cell(3, 1), cb.Cell(3, 2), cb.Cell(2, 3)} {
		b.PlayMove(Black, c)
	}

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeFillin(Black, p, &inf, CaptureBoth)

	// A second run on the already filled position adds no further fill.
	again := NewInferiorCells()
	ice.ComputeFillin(Black, p, &again, CaptureBoth)
	require.True(t, again.Dead().None())
	require.True(t, again.Fillin(Black).None())
	require.True(t, again.Fillin(White).None())
}

func TestComputeFillinCapturedPair(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(3, 0), cb.Cell(2, 1), cb.Cell(1, 1),
		cb.Cell(0, 1), cb.Cell(0, 0)} {
		b.PlayMove(Black, c)
	}

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeFillin(Black, p, &inf, CaptureBoth)

	require.True(t, inf.Captured(Black).Test(cb.Cell(2, 0)))
	require.True(t, inf.Captured(Black).Test(cb.Cell(1, 0)))
	require.Equal(t, Black, b.ColorAt(cb.Cell(2, 0)), "captured cells are filled with the capturing color")
	require.Equal(t, Black, b.ColorAt(cb.Cell(1, 0)))
}

func TestCaptureOnlyGateSkipsFill(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(3, 0), cb.Cell(2, 1), cb.Cell(1, 1),
		cb.Cell(0, 1), cb.Cell(0, 0)} {
		b.PlayMove(Black, c)
	}

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeFillin(Black, p, &inf, CaptureOnly(White))

	require.True(t, inf.Captured(Black).None(),
		"black captures must not fill when only white capturing is allowed")
	require.False(t, b.Color(Black).Test(cb.Cell(2, 0)))
	require.False(t, b.Color(Black).Test(cb.Cell(1, 0)))
}

func TestComputeInferiorCellsCornerDomination(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	b := NewStoneBoard(cb)

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeInferiorCells(Black, p, &inf)

	d, ok := inf.Dominator(cb.Cell(4, 0))
	require.True(t, ok, "the acute corner is dominated on an empty square board")
	require.Equal(t, cb.Cell(3, 1), d)
	d, ok = inf.Dominator(cb.Cell(0, 4))
	require.True(t, ok)
	require.Equal(t, cb.Cell(1, 3), d)
}

func TestCornerDominationSkipsRectangles(t *testing.T) {
	cb, err := NewConstBoard(5, 4)
	require.NoError(t, err)
	b := NewStoneBoard(cb)

	ice := newTestICE()
	p := NewPosition(&b)
	inf := NewInferiorCells()
	ice.ComputeInferiorCells(Black, p, &inf)

	_, ok := inf.Dominator(cb.Cell(4, 0))
	require.False(t, ok, "the mirror argument only holds on square boards")
}

func TestColorSetHas(t *testing.T) {
	require.True(t, CaptureBoth.Has(Black))
	require.True(t, CaptureBoth.Has(White))
	require.True(t, CaptureOnly(Black).Has(Black))
	require.False(t, CaptureOnly(Black).Has(White))
	require.False(t, CaptureNone.Has(Black))
}
