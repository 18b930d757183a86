package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinPatternsLoad(t *testing.T) {
	lib := NewPatternLibrary("")
	require.Greater(t, lib.Size(), 0)
}

func TestPatternFileMergesAndDegrades(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "extra.txt")
	require.NoError(t, os.WriteFile(good,
		[]byte("extra-dead dead rot2 BBBB** - - -\n"), 0o644))

	base := NewPatternLibrary("")
	withFile := NewPatternLibrary(good)
	require.Greater(t, withFile.Size(), base.Size())

	// A missing file and a malformed file both degrade to the built-ins.
	require.Equal(t, base.Size(), NewPatternLibrary(filepath.Join(dir, "missing.txt")).Size())
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("not a pattern line\n"), 0o644))
	require.Equal(t, base.Size(), NewPatternLibrary(bad).Size())
}

func TestDeadSandwichMatches(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	lib := NewPatternLibrary("")

	b := NewStoneBoard(cb)
	// Four consecutive black neighbours leave (2,2) with two mutually
	// adjacent empty neighbours, so it can never carry a cut.
	for _, c := range []HexCell{cb.Cell(2, 1), cb.Cell(3, 1), cb.Cell(3, 2), cb.Cell(2, 3)} {
		b.PlayMove(Black, c)
	}
	hits := lib.MatchCell(&b, CatDead, Black, cb.Cell(2, 2), StopAtFirstHit)
	require.NotEmpty(t, hits)
	require.Equal(t, CellInvalid, hits[0].Response)

	// The color-flipped shape matches for White.
	w := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(2, 1), cb.Cell(3, 1), cb.Cell(3, 2), cb.Cell(2, 3)} {
		w.PlayMove(White, c)
	}
	require.NotEmpty(t, lib.MatchCell(&w, CatDead, White, cb.Cell(2, 2), StopAtFirstHit))
	require.Empty(t, lib.MatchCell(&w, CatDead, Black, cb.Cell(2, 2), StopAtFirstHit))
}

func TestDeadSandwichUsesEdgesAsStones(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	lib := NewPatternLibrary("")

	b := NewStoneBoard(cb)
	// On the top row the north edge supplies two of the four black ring
	// positions.
	b.PlayMove(Black, cb.Cell(1, 0))
	b.PlayMove(Black, cb.Cell(3, 0))
	hits := lib.MatchCell(&b, CatDead, Black, cb.Cell(2, 0), StopAtFirstHit)
	require.NotEmpty(t, hits)
}

func TestCapturePairMatchAndVerify(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	lib := NewPatternLibrary("")

	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(3, 0), cb.Cell(2, 1), cb.Cell(1, 1),
		cb.Cell(0, 1), cb.Cell(0, 0)} {
		b.PlayMove(Black, c)
	}
	// (2,0) and (1,0) form a pair Black can always answer into.
	hits := lib.MatchCell(&b, CatCaptured, Black, cb.Cell(2, 0), StopAtFirstHit)
	require.NotEmpty(t, hits)
	require.True(t, hits[0].Carrier.Test(cb.Cell(1, 0)))

	// Without (0,0) the partner keeps an empty outside neighbour and the
	// verifier rejects the match.
	open := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(3, 0), cb.Cell(2, 1), cb.Cell(1, 1),
		cb.Cell(0, 1)} {
		open.PlayMove(Black, c)
	}
	require.Empty(t, lib.MatchCell(&open, CatCaptured, Black, cb.Cell(2, 0), StopAtFirstHit))
}

func TestMatchBoardCollectsHits(t *testing.T) {
	cb, err := NewConstBoard(5, 5)
	require.NoError(t, err)
	lib := NewPatternLibrary("")

	b := NewStoneBoard(cb)
	for _, c := range []HexCell{cb.Cell(2, 1), cb.Cell(3, 1), cb.Cell(3, 2), cb.Cell(2, 3)} {
		b.PlayMove(Black, c)
	}
	matched, hits := lib.MatchBoard(&b, CatDead, Black, b.Empty(), StopAtFirstHit)
	require.True(t, matched.Test(cb.Cell(2, 2)))
	require.Contains(t, hits, cb.Cell(2, 2))
}
