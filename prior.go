package main

import "sort"

// PriorKnowledge scores candidate moves with multiplicative gamma
// weights from cheap local features, then hands them back best first.
// It only reorders: dropping a mustplay candidate would invalidate loss
// proofs, so pruning stays out of the proof search.
type PriorKnowledge struct {
	GammaOwnStone  float64
	GammaOppStone  float64
	GammaOwnEdge   float64
	GammaEmptyPair float64
	CenterHalfLife float64
}

func NewPriorKnowledge() *PriorKnowledge {
	return &PriorKnowledge{
		GammaOwnStone:  1.6,
		GammaOppStone:  1.25,
		GammaOwnEdge:   1.1,
		GammaEmptyPair: 1.05,
		CenterHalfLife: 3.0,
	}
}

// gamma multiplies a feature weight per neighbour of the candidate:
// touching own stones extends a ladder, touching opponent stones blocks,
// own edges anchor, and consecutive empty neighbours keep options open.
func (pk *PriorKnowledge) gamma(h *HexBoard, toPlay HexColor, move HexCell) float64 {
	b := h.Board()
	g := 1.0
	prevEmpty := false
	b.Const().Nbs(move).ForEach(func(n HexCell) {
		switch b.ColorAt(n) {
		case toPlay:
			if n.IsEdge() {
				g *= pk.GammaOwnEdge
			} else {
				g *= pk.GammaOwnStone
			}
			prevEmpty = false
		case toPlay.Other():
			g *= pk.GammaOppStone
			prevEmpty = false
		case Empty:
			if prevEmpty {
				g *= pk.GammaEmptyPair
			}
			prevEmpty = true
		default:
			prevEmpty = false
		}
	})
	if pk.CenterHalfLife > 0 {
		d := float64(b.Const().DistanceFromCenter(move))
		g *= 1.0 / (1.0 + d/pk.CenterHalfLife)
	}
	return g
}

func (pk *PriorKnowledge) Reorder(h *HexBoard, toPlay HexColor,
	moves []HexCell) []HexCell {

	type weighted struct {
		move  HexCell
		gamma float64
	}
	ws := make([]weighted, len(moves))
	for i, m := range moves {
		ws[i] = weighted{move: m, gamma: pk.gamma(h, toPlay, m)}
	}
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].gamma != ws[j].gamma {
			return ws[i].gamma > ws[j].gamma
		}
		return ws[i].move < ws[j].move
	})
	out := make([]HexCell, len(ws))
	for i, w := range ws {
		out[i] = w.move
	}
	return out
}
