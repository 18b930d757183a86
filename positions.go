package main

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var dockerCacheDir = "/cache_logs"

// StoredPosition is one solved position in the persistent store.
type StoredPosition struct {
	Result    Result
	BestMove  HexCell
	Proof     Bitset
	NumStones uint8
}

type positionSnapshot struct {
	Width   int
	Height  int
	Entries map[uint64]StoredPosition
}

// PositionStore is the on-disk database of solved positions, loaded
// whole at open and written back on Flush. Entries are gated by a stone
// count threshold so only positions near the root are persisted.
type PositionStore struct {
	path      string
	width     int
	height    int
	maxStones int

	mu      sync.Mutex
	entries map[uint64]StoredPosition
	dirty   bool
}

// OpenPositionStore loads the store at path, tolerating a missing file.
// A snapshot recorded for different board dimensions is discarded.
func OpenPositionStore(path string, width, height, maxStones int) *PositionStore {
	ps := &PositionStore{
		path:      resolveStorePath(path),
		width:     width,
		height:    height,
		maxStones: maxStones,
		entries:   make(map[uint64]StoredPosition),
	}
	if ps.path == "" {
		return ps
	}
	file, err := os.Open(ps.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", ps.path).
				Warn("position store: open failed, starting empty")
		}
		return ps
	}
	defer file.Close()

	var snapshot positionSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		logrus.WithError(err).WithField("path", ps.path).
			Warn("position store: decode failed, starting empty")
		return ps
	}
	if snapshot.Width != width || snapshot.Height != height {
		logrus.WithFields(logrus.Fields{
			"path":     ps.path,
			"snapshot": [2]int{snapshot.Width, snapshot.Height},
			"board":    [2]int{width, height},
		}).Warn("position store: board size mismatch, starting empty")
		return ps
	}
	ps.entries = snapshot.Entries
	if ps.entries == nil {
		ps.entries = make(map[uint64]StoredPosition)
	}
	logrus.WithFields(logrus.Fields{
		"path":    ps.path,
		"entries": len(ps.entries),
	}).Info("position store restored")
	return ps
}

func (ps *PositionStore) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.entries)
}

func (ps *PositionStore) Get(hash uint64) (StoredPosition, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e, ok := ps.entries[hash]
	return e, ok
}

// Put records a solved position if it passes the stone-count gate.
func (ps *PositionStore) Put(hash uint64, e StoredPosition) bool {
	if ps.maxStones > 0 && int(e.NumStones) > ps.maxStones {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.entries[hash] = e
	ps.dirty = true
	return true
}

// Flush writes the store back to disk when anything changed.
func (ps *PositionStore) Flush() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.path == "" || !ps.dirty {
		return nil
	}
	dir := filepath.Dir(ps.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.WithError(err).WithField("dir", dir).
				Warn("position store: unable to create directory")
			return err
		}
	}
	file, err := os.Create(ps.path)
	if err != nil {
		logrus.WithError(err).WithField("path", ps.path).
			Warn("position store: create failed")
		return err
	}
	defer file.Close()
	snapshot := positionSnapshot{
		Width:   ps.width,
		Height:  ps.height,
		Entries: ps.entries,
	}
	if err := gob.NewEncoder(file).Encode(&snapshot); err != nil {
		logrus.WithError(err).WithField("path", ps.path).
			Warn("position store: encode failed")
		return err
	}
	ps.dirty = false
	logrus.WithFields(logrus.Fields{
		"path":    ps.path,
		"entries": len(ps.entries),
	}).Info("position store written")
	return nil
}

// Relative store paths land in the shared cache volume when it exists.
func resolveStorePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if stat, err := os.Stat(dockerCacheDir); err == nil && stat.IsDir() {
		return filepath.Join(dockerCacheDir, path)
	}
	return path
}

// SolverPositions layers the persistent store over the in-memory table.
// Lookups hit the store first; stores go to both, each applying its own
// gate.
type SolverPositions struct {
	Store *PositionStore
	TT    *TranspositionTable
}

func (sp *SolverPositions) Lookup(hash uint64) (TTEntry, bool) {
	if sp == nil {
		return TTEntry{}, false
	}
	if sp.Store != nil {
		if e, ok := sp.Store.Get(hash); ok {
			return TTEntry{
				Key:       hash,
				Result:    e.Result,
				BestMove:  e.BestMove,
				Proof:     e.Proof,
				NumStones: e.NumStones,
				Valid:     true,
			}, true
		}
	}
	if sp.TT != nil {
		return sp.TT.Probe(hash)
	}
	return TTEntry{}, false
}

func (sp *SolverPositions) Record(hash uint64, result Result, best HexCell,
	proof Bitset, numStones int) {

	if sp == nil {
		return
	}
	if sp.Store != nil {
		sp.Store.Put(hash, StoredPosition{
			Result:    result,
			BestMove:  best,
			Proof:     proof,
			NumStones: clampToUint8(numStones),
		})
	}
	if sp.TT != nil {
		sp.TT.Store(hash, result, best, proof, numStones)
	}
}
