package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitsetBasics(t *testing.T) {
	var b Bitset
	require.True(t, b.None())

	b.Set(EdgeNorth)
	b.Set(firstInterior + 70)
	require.True(t, b.Any())
	require.Equal(t, 2, b.Count())
	require.True(t, b.Test(EdgeNorth))
	require.False(t, b.Test(firstInterior))

	b.Reset(EdgeNorth)
	require.False(t, b.Test(EdgeNorth))
	require.Equal(t, firstInterior+70, b.First())
}

func TestBitsetSetAlgebra(t *testing.T) {
	a := BitsetOf(firstInterior, firstInterior+1, firstInterior+100)
	b := BitsetOf(firstInterior+1, firstInterior+100, firstInterior+150)

	require.Equal(t, 2, a.And(b).Count())
	require.Equal(t, 4, a.Or(b).Count())
	require.Equal(t, 2, a.Xor(b).Count())
	require.True(t, a.Minus(b).Equal(BitsetOf(firstInterior)))
	require.True(t, a.Intersects(b))
	require.False(t, a.SubsetOf(b))
	require.True(t, a.And(b).SubsetOf(a))
}

func TestBitsetCellsAndForEach(t *testing.T) {
	cells := []HexCell{EdgeWest, firstInterior + 3, firstInterior + 64, firstInterior + 130}
	b := BitsetOf(cells...)
	require.Equal(t, cells, b.Cells())

	var visited []HexCell
	b.ForEach(func(c HexCell) { visited = append(visited, c) })
	require.Equal(t, cells, visited)
}
