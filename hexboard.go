package main

import (
	"github.com/sirupsen/logrus"
)

// HistoryFrame snapshots everything needed to restore the position before
// a move group: the board (fill-in included), the accumulated inferior
// cells, whose turn it was, the cell played, and the connection log sizes
// at push time.
type HistoryFrame struct {
	board      StoneBoard
	inf        InferiorCells
	toPlay     HexColor
	lastPlayed HexCell
	logSize    [2]int
}

// HexBoard keeps a board consistent with its group decomposition,
// inferior-cell record, and per-color connection sets across a sequence
// of moves, with exact rollback. Each PlayMove or PlayStones pushes one
// history frame and must be matched by exactly one UndoMove; AddStones
// attaches to the frame already on top.
type HexBoard struct {
	brd StoneBoard
	pos Position
	ice *ICEngine
	inf InferiorCells
	vcs [2]*VCSet

	history []HistoryFrame

	UseConnections      bool
	UseInference        bool
	UseDecompositions   bool
	BackupInferenceInfo bool
}

func NewHexBoard(cb *ConstBoard, ice *ICEngine) *HexBoard {
	h := &HexBoard{
		ice:                 ice,
		brd:                 NewStoneBoard(cb),
		vcs:                 [2]*VCSet{NewVCSet(Black), NewVCSet(White)},
		UseConnections:      true,
		UseInference:        true,
		UseDecompositions:   true,
		BackupInferenceInfo: true,
	}
	h.pos = Position{Board: &h.brd}
	h.pos.Rebuild()
	h.inf = NewInferiorCells()
	return h
}

func (h *HexBoard) Board() *StoneBoard       { return &h.brd }
func (h *HexBoard) Position() *Position      { return &h.pos }
func (h *HexBoard) Groups() *Groups          { return h.pos.Groups }
func (h *HexBoard) Inferior() *InferiorCells { return &h.inf }
func (h *HexBoard) Hash() uint64             { return h.brd.Hash() }
func (h *HexBoard) Depth() int               { return len(h.history) }

func (h *HexBoard) VCs(color HexColor) *VCSet {
	return h.vcs[colorIdx(color)]
}

func (h *HexBoard) LastPlayed() HexCell {
	if len(h.history) == 0 {
		return CellInvalid
	}
	return h.history[len(h.history)-1].lastPlayed
}

// SetState replaces the played stones and clears the history. ComputeAll
// must run before incremental play.
func (h *HexBoard) SetState(black, white Bitset) {
	h.brd.SetPlayed(black, white)
	h.pos.Rebuild()
	h.inf.Clear()
	h.history = h.history[:0]
}

// ComputeAll clears the history and fully recomputes groups, inferior
// cells, and connections from the played stones.
func (h *HexBoard) ComputeAll(toPlay HexColor) {
	h.history = h.history[:0]
	played := h.brd.Played()
	h.brd.SetPlayed(played.And(h.brd.Color(Black)), played.And(h.brd.Color(White)))
	h.pos.Rebuild()

	h.inf.Clear()
	if h.UseInference {
		h.ice.ComputeInferiorCells(toPlay, &h.pos, &h.inf)
	}
	if h.UseConnections {
		for _, s := range h.vcs {
			s.Log().Clear()
			s.Build(&h.pos)
		}
	}
	logrus.WithFields(logrus.Fields{
		"toPlay": toPlay,
		"stones": h.brd.NumStones(),
		"empty":  h.brd.Empty().Count(),
	}).Trace("hexboard: full recompute")
}

func (h *HexBoard) pushFrame(toPlay HexColor, lastPlayed HexCell) {
	h.history = append(h.history, HistoryFrame{
		board:      h.brd.Clone(),
		inf:        h.inf.Clone(),
		toPlay:     toPlay,
		lastPlayed: lastPlayed,
		logSize:    [2]int{h.vcs[0].Log().Size(), h.vcs[1].Log().Size()},
	})
}

// update reruns inference and connection building after a mutation. The
// newly computed classifications replace the transient ones and extend
// the accumulated fill-in.
func (h *HexBoard) update(toPlay HexColor) {
	h.pos.Rebuild()
	if h.UseInference {
		fresh := NewInferiorCells()
		h.ice.ComputeInferiorCells(toPlay, &h.pos, &fresh)
		UpdateInferiorCells(&h.inf, &fresh)
	}
	if h.UseConnections {
		for _, s := range h.vcs {
			s.Build(&h.pos)
		}
	}
}

// PlayMove pushes a history frame, places the stone with a hash update,
// and brings the derived data up to date for the next side to move.
func (h *HexBoard) PlayMove(color HexColor, cell HexCell) {
	h.pushFrame(color, cell)
	h.brd.PlayMove(color, cell)
	h.update(color.Other())
}

// PlayStones runs the PlayMove pipeline for a batch of cells without
// touching the hash. Must be paired with exactly one UndoMove.
func (h *HexBoard) PlayStones(color HexColor, cells Bitset, nextToMove HexColor) {
	h.pushFrame(color, CellInvalid)
	h.brd.PlayStones(color, cells)
	h.update(nextToMove)
}

// AddStones merges further stones into the current frame: no frame push,
// so the next UndoMove reverts both the preceding move and this addition.
func (h *HexBoard) AddStones(color HexColor, cells Bitset, nextToMove HexColor) {
	h.brd.AddColor(color, cells)
	h.update(nextToMove)
}

// UndoMove pops the top frame. The board and, when backup is enabled,
// the inferior-cell record come back bit-exactly from the frame; the
// connection sets unwind through their change logs.
func (h *HexBoard) UndoMove() {
	n := len(h.history)
	if n == 0 {
		return
	}
	frame := h.history[n-1]
	h.history = h.history[:n-1]

	h.brd = frame.board
	h.pos.Rebuild()

	if h.BackupInferenceInfo || !h.UseInference {
		h.inf = frame.inf
	} else {
		scratch := h.brd.Clone()
		sp := NewPosition(&scratch)
		h.inf = NewInferiorCells()
		h.ice.ComputeInferiorCells(frame.toPlay, sp, &h.inf)
	}
	if h.UseConnections {
		for i, s := range h.vcs {
			s.Log().RevertToSize(s, frame.logSize[i])
		}
	}
}

// EmptyRegions returns the connected components of the empty cells,
// the raw material for decomposition detection.
func (h *HexBoard) EmptyRegions() []Bitset {
	var regions []Bitset
	remaining := h.brd.Empty()
	for remaining.Any() {
		start := remaining.First()
		region := h.brd.Const().
			Reachable(remaining, Bitset{}, start)
		regions = append(regions, region)
		remaining = remaining.Minus(region)
	}
	return regions
}

// RegionTouchesEdges reports whether a region is adjacent to both of a
// color's edges. A region touching only one of them cannot decide the
// game for that color on its own.
func (h *HexBoard) RegionTouchesEdges(region Bitset, color HexColor) bool {
	cb := h.brd.Const()
	touches := func(edge HexCell) bool {
		hit := false
		region.ForEach(func(c HexCell) {
			if cb.Adjacent(c, edge) {
				hit = true
			}
		})
		return hit
	}
	return touches(ColorEdge1(color)) && touches(ColorEdge2(color))
}
