package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStorePathAbsoluteUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "positions.gob")
	if got := resolveStorePath(abs); got != abs {
		t.Fatalf("absolute path should pass through, got %q", got)
	}
	if got := resolveStorePath(""); got != "" {
		t.Fatalf("empty path should pass through, got %q", got)
	}
}

func TestResolveStorePathPrefersCacheDir(t *testing.T) {
	original := dockerCacheDir
	t.Cleanup(func() { dockerCacheDir = original })

	dockerCacheDir = t.TempDir()
	want := filepath.Join(dockerCacheDir, "positions.gob")
	if got := resolveStorePath("positions.gob"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	dockerCacheDir = filepath.Join(t.TempDir(), "does-not-exist")
	if got := resolveStorePath("positions.gob"); got != "positions.gob" {
		t.Fatalf("expected relative fallback, got %q", got)
	}
}

func TestPositionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.gob")
	ps := OpenPositionStore(path, 7, 7, 20)
	if ps.Len() != 0 {
		t.Fatalf("fresh store should be empty")
	}

	entry := StoredPosition{
		Result:    ResultWin,
		BestMove:  firstInterior + 3,
		Proof:     BitsetOf(firstInterior, firstInterior+3),
		NumStones: 4,
	}
	if !ps.Put(0xabc, entry) {
		t.Fatalf("expected put to pass the stone gate")
	}
	if err := ps.Flush(); err != nil {
		t.Fatal(err)
	}

	reopened := OpenPositionStore(path, 7, 7, 20)
	got, ok := reopened.Get(0xabc)
	if !ok {
		t.Fatalf("entry missing after reopen")
	}
	if got.Result != entry.Result || got.BestMove != entry.BestMove ||
		got.NumStones != entry.NumStones || !got.Proof.Equal(entry.Proof) {
		t.Fatalf("entry mismatch after reopen: %+v", got)
	}
}

func TestPositionStoreStoneGate(t *testing.T) {
	ps := OpenPositionStore("", 7, 7, 5)
	if ps.Put(1, StoredPosition{NumStones: 6}) {
		t.Fatalf("entry above the stone threshold must be rejected")
	}
	if !ps.Put(2, StoredPosition{NumStones: 5}) {
		t.Fatalf("entry at the stone threshold must be accepted")
	}
}

func TestPositionStoreDiscardsMismatchedBoardSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.gob")
	ps := OpenPositionStore(path, 7, 7, 20)
	ps.Put(42, StoredPosition{Result: ResultLoss, BestMove: CellInvalid})
	if err := ps.Flush(); err != nil {
		t.Fatal(err)
	}

	other := OpenPositionStore(path, 9, 9, 20)
	if other.Len() != 0 {
		t.Fatalf("snapshot for a different board size must be discarded")
	}
}

func TestPositionStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "positions.gob")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("precondition: file should not exist")
	}
	ps := OpenPositionStore(path, 7, 7, 20)
	if ps.Len() != 0 {
		t.Fatalf("missing file should yield an empty store")
	}
}

func TestSolverPositionsPrefersStore(t *testing.T) {
	tt := NewTranspositionTable(64, 1)
	tt.Store(7, ResultLoss, CellInvalid, Bitset{}, 2)

	store := OpenPositionStore("", 7, 7, 20)
	store.Put(7, StoredPosition{Result: ResultWin, BestMove: firstInterior, NumStones: 2})

	sp := &SolverPositions{Store: store, TT: tt}
	entry, ok := sp.Lookup(7)
	if !ok || entry.Result != ResultWin {
		t.Fatalf("store entry should win over the TT entry, got %+v", entry)
	}

	sp.Record(9, ResultWin, firstInterior+1, Bitset{}, 3)
	if _, ok := store.Get(9); !ok {
		t.Fatalf("record should reach the store")
	}
	if _, ok := tt.Probe(9); !ok {
		t.Fatalf("record should reach the TT")
	}
}
