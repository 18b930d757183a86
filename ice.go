package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Position pairs a stone board with its current group decomposition.
// Fill-in passes mutate the board and rebuild the groups.
type Position struct {
	Board  *StoneBoard
	Groups *Groups
}

func NewPosition(b *StoneBoard) *Position {
	return &Position{Board: b, Groups: BuildGroups(b)}
}

func (p *Position) Rebuild() {
	p.Groups = BuildGroups(p.Board)
}

// ColorSet selects which colors a fill-in pass may capture for.
type ColorSet uint8

const (
	CaptureNone  ColorSet = 0
	CaptureBlack ColorSet = 1 << iota
	CaptureWhite
	CaptureBoth = CaptureBlack | CaptureWhite
)

func CaptureOnly(c HexColor) ColorSet {
	if c == White {
		return CaptureWhite
	}
	return CaptureBlack
}

func (s ColorSet) Has(c HexColor) bool {
	return s&CaptureOnly(c) != 0
}

// ICEngine proves empty cells dead, captured, permanently inferior,
// vulnerable, reversible, or dominated. Scans never fail; absence of
// proof yields an empty result. The pattern library is loaded once at
// construction and shared by reference.
type ICEngine struct {
	patterns *PatternLibrary

	// Parameters. Defaults follow the production configuration.
	FindPresimplicialPairs    bool
	FindPermanentlyInferior   bool
	FindAllPatternKillers     bool
	FindAllPatternReversers   bool
	FindAllPatternDominators  bool
	UseHandCodedPatterns      bool
	BackupOpponentDead        bool
	FindThreeSidedDeadRegions bool
	IterativeDeadRegions      bool

	// VerifyInvariants enables the internal consistency checks that are
	// disabled in production; a violation panics.
	VerifyInvariants bool
}

func NewICEngine(patterns *PatternLibrary) *ICEngine {
	return &ICEngine{
		patterns:                patterns,
		FindPresimplicialPairs:  true,
		FindPermanentlyInferior: true,
		FindAllPatternKillers:   true,
		UseHandCodedPatterns:    true,
	}
}

func (ice *ICEngine) Patterns() *PatternLibrary { return ice.patterns }

func (ice *ICEngine) assertSubsetOfEmpty(found, empty Bitset, what string) {
	if ice.VerifyInvariants && !found.SubsetOf(empty) {
		panic(fmt.Sprintf("ice: %s set %v not a subset of empty cells %v",
			what, found, empty))
	}
}

//----------------------------------------------------------------------------
// Graph-theoretic dead-region detection (pattern-free).

// edgeUnreachableRegions returns the empty cells not reachable from either
// of color's edges when flow may not pass through stopSet. If the game is
// already decided the caller handles that case separately.
func edgeUnreachableRegions(b *StoneBoard, c HexColor, stopSet Bitset,
	flowFrom1, flowFrom2 bool) Bitset {

	var reachable1, reachable2 Bitset
	flowSet := b.Empty().Or(b.Color(c)).And(b.Const().AllCells())
	if flowFrom1 {
		reachable1 = b.Const().Reachable(flowSet, stopSet, ColorEdge1(c))
	}
	if flowFrom2 {
		reachable2 = b.Const().Reachable(flowSet, stopSet, ColorEdge2(c))
	}
	return b.Empty().Minus(reachable1.Or(reachable2))
}

// computeDeadRegions finds dead regions cut off by a single group's empty
// neighbour set. Single-stone groups are assumed unable to isolate a
// region by themselves; this assumption is inherited unproven from the
// original analysis and must not be strengthened or relaxed.
func (ice *ICEngine) computeDeadRegions(p *Position) Bitset {
	b := p.Board
	if p.Groups.IsGameOver() {
		return b.Empty()
	}
	var dead Bitset
	for _, grp := range p.Groups.All() {
		if grp.Size() == 1 {
			continue
		}
		c := grp.Color
		cliqueCutset := grp.Nbs.And(b.Empty())
		dead = dead.Or(edgeUnreachableRegions(b, c, cliqueCutset,
			grp.Captain != ColorEdge1(c),
			grp.Captain != ColorEdge2(c)))
	}
	ice.assertSubsetOfEmpty(dead, b.Empty(), "dead region")
	return dead
}

// findType1Cliques finds cutsets of three empty cells x,y,z where x,y are
// not directly adjacent but share a stone-group neighbour that z does not
// touch, while z is adjacent to both.
func (ice *ICEngine) findType1Cliques(p *Position) Bitset {
	var dead Bitset
	b := p.Board
	empty := b.Empty().Cells()
	for xi, x := range empty {
		for yi := 0; yi < xi; yi++ {
			y := empty[yi]
			if b.Const().Adjacent(x, y) {
				continue
			}
			xyNbs := p.Groups.StoneGroupCaptains(x).And(p.Groups.StoneGroupCaptains(y))
			if xyNbs.None() {
				continue
			}
			for _, z := range empty {
				if !b.Const().Adjacent(x, z) || !b.Const().Adjacent(y, z) {
					continue
				}
				xyExclusive := xyNbs.Minus(p.Groups.StoneGroupCaptains(z))
				if xyExclusive.None() {
					continue
				}
				clique := BitsetOf(x, y, z)
				// The specific groups common to x and y do not change the
				// stop set, so reachability runs at most once per color.
				if xyExclusive.Intersects(b.Color(Black)) {
					dead = dead.Or(edgeUnreachableRegions(b, Black, clique, true, true))
				}
				if xyExclusive.Intersects(b.Color(White)) {
					dead = dead.Or(edgeUnreachableRegions(b, White, clique, true, true))
				}
			}
		}
	}
	ice.assertSubsetOfEmpty(dead, b.Empty(), "type1 clique")
	return dead
}

// findType2Cliques finds cutsets built from two same-colored non-edge
// groups: their common empty neighbours plus one adjacent pair of
// exclusive neighbours.
func (ice *ICEngine) findType2Cliques(p *Position) Bitset {
	var dead Bitset
	b := p.Board
	for _, c := range BothColors {
		grps := p.Groups.OfColor(c)
		for i, g1 := range grps {
			if g1.IsEdgeGroup() {
				continue
			}
			g1nbs := p.Groups.EmptyNbs(g1)
			for j := 0; j < i; j++ {
				g2 := grps[j]
				if g2.IsEdgeGroup() {
					continue
				}
				g2nbs := p.Groups.EmptyNbs(g2)
				common := g1nbs.And(g2nbs)
				if common.None() {
					continue
				}
				g1Exclusive := g1nbs.Minus(g2nbs)
				g2Exclusive := g2nbs.Minus(g1nbs)
				if g1Exclusive.None() || g2Exclusive.None() {
					continue
				}
				g1Exclusive.ForEach(func(x HexCell) {
					g2Exclusive.ForEach(func(y HexCell) {
						if !b.Const().Adjacent(x, y) {
							return
						}
						clique := common
						clique.Set(x)
						clique.Set(y)
						dead = dead.Or(edgeUnreachableRegions(b, c, clique, true, true))
					})
				})
			}
		}
	}
	ice.assertSubsetOfEmpty(dead, b.Empty(), "type2 clique")
	return dead
}

// findType3Cliques finds cutsets formed by three same-colored non-edge
// groups whose empty neighbour sets pairwise intersect; the union of the
// pairwise intersections is the cutset.
func (ice *ICEngine) findType3Cliques(p *Position) Bitset {
	var dead Bitset
	b := p.Board
	for _, c := range BothColors {
		grps := p.Groups.OfColor(c)
		for i, g1 := range grps {
			if g1.IsEdgeGroup() {
				continue
			}
			g1nbs := p.Groups.EmptyNbs(g1)
			for j := 0; j < i; j++ {
				g2 := grps[j]
				if g2.IsEdgeGroup() {
					continue
				}
				g2nbs := p.Groups.EmptyNbs(g2)
				if g1nbs.And(g2nbs).None() {
					continue
				}
				for k := 0; k < j; k++ {
					g3 := grps[k]
					if g3.IsEdgeGroup() {
						continue
					}
					g3nbs := p.Groups.EmptyNbs(g3)
					if g1nbs.And(g3nbs).None() || g2nbs.And(g3nbs).None() {
						continue
					}
					clique := g1nbs.And(g2nbs).
						Or(g1nbs.And(g3nbs)).
						Or(g2nbs.And(g3nbs))
					dead = dead.Or(edgeUnreachableRegions(b, c, clique, true, true))
				}
			}
		}
	}
	ice.assertSubsetOfEmpty(dead, b.Empty(), "type3 clique")
	return dead
}

func (ice *ICEngine) findThreeSetCliques(p *Position) Bitset {
	if p.Groups.IsGameOver() {
		return p.Board.Empty()
	}
	return ice.findType1Cliques(p).
		Or(ice.findType2Cliques(p)).
		Or(ice.findType3Cliques(p))
}

//----------------------------------------------------------------------------
// Local graph-theoretic dead/vulnerable detection (pattern-free).

// graphTheoryDeadVulnerable classifies each empty candidate by the shape
// of its neighbourhood: simple neighbours (direct empties, or same-color
// groups reduced to exactly one other empty neighbour) versus group
// neighbours (edges, or groups with two or more other empty neighbours).
// Found dead cells are filled in directly.
func (ice *ICEngine) graphTheoryDeadVulnerable(color HexColor, p *Position,
	inf *InferiorCells) {

	b := p.Board
	var simplicial Bitset
	adjToBothEdges := p.Groups.EmptyNbsOfCell(ColorEdge1(color)).
		And(p.Groups.EmptyNbsOfCell(ColorEdge2(color)))
	consider := b.Empty().Minus(adjToBothEdges)

	consider.ForEach(func(cell HexCell) {
		var enbs, cnbs Bitset
		var emptyAdjToGroup Bitset
		adjToEdge := false
		edgeNbr := CellInvalid

		b.Const().Nbs(cell).ForEach(func(nb HexCell) {
			switch b.ColorAt(nb) {
			case Empty:
				enbs.Set(nb)
			case color:
				cap := p.Groups.CaptainOf(nb)
				adj := p.Groups.EmptyNbsOfCell(nb)
				adj.Reset(cell)
				// Groups with no other empty neighbour are ignored; one
				// other neighbour degrades the group to a simple
				// neighbour; otherwise it counts as a group. Edges always
				// count as groups.
				switch {
				case IsColorEdge(cap, color):
					adjToEdge = true
					edgeNbr = cap
					cnbs.Set(cap)
					emptyAdjToGroup = emptyAdjToGroup.Or(adj)
				case adj.Count() == 1:
					enbs.Set(adj.First())
				case adj.Count() >= 2:
					cnbs.Set(cap)
					emptyAdjToGroup = emptyAdjToGroup.Or(adj)
				}
			}
		})

		// Empty neighbours already adjacent to a color neighbour count
		// through the group, not on their own.
		enbs = enbs.Minus(emptyAdjToGroup)

		en, cn := enbs.Count(), cnbs.Count()
		switch {
		case en+cn <= 1:
			simplicial.Set(cell)

		case adjToEdge || cn >= 2:
			if en >= 2 {
				return
			}
			if cn == 1 {
				inf.AddVulnerable(cell, VulnerableKiller{Killer: enbs.First()})
				return
			}
			var killers Bitset
			isPreSimp := false
			cnbs.ForEach(func(i HexCell) {
				// When adjacent to the edge, only the edge can trump the
				// other groups' adjacencies.
				if adjToEdge && i != edgeNbr {
					return
				}
				remaining := emptyAdjToGroup.Minus(p.Groups.EmptyNbsOfCell(i))
				switch {
				case remaining.None():
					if en == 0 {
						simplicial.Set(cell)
					} else {
						isPreSimp = true
						killers.Set(enbs.First())
					}
				case remaining.Count() == 1 && en == 0:
					isPreSimp = true
					killers.Set(remaining.First())
				}
			})
			if !simplicial.Test(cell) && isPreSimp {
				killers.ForEach(func(k HexCell) {
					inf.AddVulnerable(cell, VulnerableKiller{Killer: k})
				})
			}

		case en+cn >= 4:
			// Too many mixed neighbours; no conclusion.

		case cn == 1:
			if en > 1 {
				return
			}
			// The single direct empty neighbour always kills the cell.
			killer := enbs.First()
			inf.AddVulnerable(cell, VulnerableKiller{Killer: killer})
			if emptyAdjToGroup.Count() == 2 {
				// A two-neighbour group may put one or both of its
				// neighbours adjacent to the direct one, yielding more
				// killers.
				vn := enbs.Or(emptyAdjToGroup).Cells()
				for _, ex := range vn {
					if ex == killer {
						continue
					}
					if b.Const().IsClique(vn, ex) {
						inf.AddVulnerable(cell, VulnerableKiller{Killer: ex})
					}
				}
			}

		default:
			// Only simple neighbours: dead if they form a clique, else
			// vulnerable to any cell whose removal leaves a clique.
			vn := enbs.Cells()
			if b.Const().IsClique(vn, CellInvalid) {
				simplicial.Set(cell)
			} else {
				for _, ex := range vn {
					if b.Const().IsClique(vn, ex) {
						inf.AddVulnerable(cell, VulnerableKiller{Killer: ex})
					}
				}
			}
		}
	})

	if simplicial.Any() {
		inf.AddDead(simplicial)
		b.AddColor(DeadColor, simplicial)
		p.Rebuild()
	}
}

//----------------------------------------------------------------------------
// Pattern-based detection.

func (ice *ICEngine) findDead(b *StoneBoard, consider Bitset) Bitset {
	dead, _ := ice.patterns.MatchBoard(b, CatDead, Black, consider, StopAtFirstHit)
	deadW, _ := ice.patterns.MatchBoard(b, CatDead, White, consider, StopAtFirstHit)
	return dead.Or(deadW)
}

func (ice *ICEngine) findCaptured(b *StoneBoard, color HexColor, consider Bitset) Bitset {
	var captured Bitset
	consider.ForEach(func(c HexCell) {
		if captured.Test(c) {
			return
		}
		hits := ice.patterns.MatchCell(b, CatCaptured, color, c, StopAtFirstHit)
		if len(hits) == 0 {
			return
		}
		// Take the carrier only if it does not intersect captures already
		// found in this pass.
		carrier := hits[0].Carrier
		carrier.Set(c)
		if !carrier.Intersects(captured) {
			captured = captured.Or(carrier)
		}
	})
	return captured
}

func (ice *ICEngine) findPermanentlyInferior(b *StoneBoard, color HexColor,
	consider Bitset) (Bitset, Bitset) {

	perm, hits := ice.patterns.MatchBoard(b, CatPermInf, color, consider, StopAtFirstHit)
	var carrier Bitset
	perm.ForEach(func(c HexCell) {
		carrier = carrier.Or(hits[c][0].Carrier)
	})
	return perm, carrier
}

func (ice *ICEngine) findVulnerable(b *StoneBoard, color HexColor,
	consider Bitset, inf *InferiorCells) {

	mode := StopAtFirstHit
	if ice.FindAllPatternKillers {
		mode = MatchAll
	}
	vul, hits := ice.patterns.MatchBoard(b, CatVulnerable, color, consider, mode)
	vul.ForEach(func(c HexCell) {
		for _, hit := range hits[c] {
			inf.AddVulnerable(c, VulnerableKiller{
				Killer:  hit.Response,
				Carrier: hit.Carrier,
			})
		}
	})
}

func (ice *ICEngine) findReversible(b *StoneBoard, color HexColor,
	consider Bitset, inf *InferiorCells) {

	mode := StopAtFirstHit
	if ice.FindAllPatternReversers {
		mode = MatchAll
	}
	rev, hits := ice.patterns.MatchBoard(b, CatReversible, color, consider, mode)
	rev.ForEach(func(c HexCell) {
		for _, hit := range hits[c] {
			inf.AddReversible(c, hit.Response)
			// Every carrier cell is reversible to the same reverser.
			hit.Carrier.And(consider).ForEach(func(cc HexCell) {
				inf.AddReversible(cc, hit.Response)
			})
		}
	})
}

func (ice *ICEngine) findDominated(b *StoneBoard, color HexColor,
	consider Bitset, inf *InferiorCells) {

	mode := StopAtFirstHit
	if ice.FindAllPatternDominators {
		mode = MatchAll
	}
	dom, hits := ice.patterns.MatchBoard(b, CatDominated, color, consider, mode)
	dom.ForEach(func(c HexCell) {
		for _, hit := range hits[c] {
			inf.AddDominated(c, hit.Response)
		}
	})
	if ice.UseHandCodedPatterns {
		ice.findHandCodedDominated(b, color, consider, inf)
	}
}

// findHandCodedDominated checks the hand-coded corner shapes: the acute
// corner cell is dominated by its inward diagonal neighbour. The shapes
// assume mirroring is valid, so they only apply to square boards.
func (ice *ICEngine) findHandCodedDominated(b *StoneBoard, color HexColor,
	consider Bitset, inf *InferiorCells) {

	cb := b.Const()
	if cb.Width() != cb.Height() {
		return
	}
	if cb.Width() < 4 || cb.Height() < 3 {
		return
	}
	w, h := cb.Width(), cb.Height()
	// Top acute corner and its half-turn rotation. The White shape is the
	// mirror with colors flipped, which on a square board lands on the
	// same two corners.
	pairs := [2][2]HexCell{
		{cb.Cell(w-1, 0), cb.Cell(w-2, 1)},
		{cb.Cell(0, h-1), cb.Cell(1, h-2)},
	}
	if color == White {
		pairs = [2][2]HexCell{
			{cb.Cell(0, h-1), cb.Cell(1, h-2)},
			{cb.Cell(w-1, 0), cb.Cell(w-2, 1)},
		}
	}
	for _, pair := range pairs {
		dominatee, dominator := pair[0], pair[1]
		if consider.Test(dominatee) && b.ColorAt(dominator) == Empty {
			inf.AddDominated(dominatee, dominator)
		}
	}
}

//----------------------------------------------------------------------------
// Fill-in passes.

// computeDeadCaptured alternates the dead and captured pattern scans,
// filling matches in until neither finds anything.
func (ice *ICEngine) computeDeadCaptured(p *Position, inf *InferiorCells,
	capture ColorSet) int {

	b := p.Board
	count := 0
	for {
		for {
			dead := ice.findDead(b, b.Empty())
			if dead.None() {
				break
			}
			count += dead.Count()
			inf.AddDead(dead)
			b.AddColor(DeadColor, dead)
		}
		if capture.Has(Black) {
			if black := ice.findCaptured(b, Black, b.Empty()); black.Any() {
				count += black.Count()
				inf.AddCaptured(Black, black)
				b.AddColor(Black, black)
				continue
			}
		}
		if capture.Has(White) {
			if white := ice.findCaptured(b, White, b.Empty()); white.Any() {
				count += white.Count()
				inf.AddCaptured(White, white)
				b.AddColor(White, white)
				continue
			}
		}
		break
	}
	if count > 0 {
		p.Rebuild()
	}
	return count
}

func (ice *ICEngine) fillinPermanentlyInferior(p *Position, color HexColor,
	out *InferiorCells, capture ColorSet) int {

	if !ice.FindPermanentlyInferior || !capture.Has(color) {
		return 0
	}
	b := p.Board
	perm, carrier := ice.findPermanentlyInferior(b, color, b.Empty())
	if perm.Any() {
		out.AddPermInf(color, perm, carrier)
		b.AddColor(color, perm)
		p.Rebuild()
	}
	return perm.Count()
}

func (ice *ICEngine) fillInVulnerable(color HexColor, p *Position,
	inf *InferiorCells, capture ColorSet) int {

	count := 0
	inf.ClearVulnerable()

	ice.graphTheoryDeadVulnerable(color, p, inf)

	// Pattern killers are checked even for cells the graph pass already
	// found, since a pattern may encode another dominator.
	consider := p.Board.Empty().Minus(inf.Dead())
	ice.findVulnerable(p.Board, color, consider, inf)

	// Presimplicial pairs become captures for the other player, but only
	// when fill-in for that player was requested.
	if ice.FindPresimplicialPairs && capture.Has(color.Other()) {
		captured := inf.FindPresimplicialPairs()
		if captured.Any() {
			inf.AddCaptured(color.Other(), captured)
			p.Board.AddColor(color.Other(), captured)
			p.Rebuild()
		}
		count += captured.Count()
	}
	return count
}

func (ice *ICEngine) fillInUnreachable(p *Position, out *InferiorCells) int {
	notReachable := ice.computeDeadRegions(p)
	if ice.FindThreeSidedDeadRegions {
		notReachable = notReachable.Or(ice.findThreeSetCliques(p))
	}
	if notReachable.Any() {
		out.AddDead(notReachable)
		p.Board.AddColor(DeadColor, notReachable)
		p.Rebuild()
	}
	return notReachable.Count()
}

// ComputeFillin runs the fixed-point loop over the fill-in passes for the
// given color to move, then folds in the unreachable-region pass.
func (ice *ICEngine) ComputeFillin(color HexColor, p *Position,
	out *InferiorCells, capture ColorSet) {

	out.Clear()
	for {
		count := 0
		count += ice.computeDeadCaptured(p, out, capture)
		count += ice.fillinPermanentlyInferior(p, color, out, capture)
		count += ice.fillinPermanentlyInferior(p, color.Other(), out, capture)
		count += ice.fillInVulnerable(color.Other(), p, out, capture)
		count += ice.fillInVulnerable(color, p, out, capture)
		if ice.IterativeDeadRegions {
			count += ice.fillInUnreachable(p, out)
		}
		if count == 0 {
			break
		}
	}
	if !ice.IterativeDeadRegions {
		ice.fillInUnreachable(p, out)
	}
}

// ComputeInferiorCells computes the full classification for the color to
// move: fill-in first, then reversible and dominated on what remains.
func (ice *ICEngine) ComputeInferiorCells(color HexColor, p *Position,
	out *InferiorCells) {

	start := time.Now()
	ice.ComputeFillin(color, p, out, CaptureBoth)

	consider := p.Board.Empty().Minus(out.Vulnerable())
	ice.findReversible(p.Board, color, consider, out)

	consider = p.Board.Empty().Minus(out.Vulnerable()).Minus(out.Reversible())
	ice.findDominated(p.Board, color, consider, out)

	if ice.BackupOpponentDead {
		if found := ice.backupOpponentDead(color, p.Board, out); found > 0 {
			logrus.WithField("cells", found).
				Debug("ice: cells vulnerable to opponent moves")
		}
	}
	logrus.WithField("elapsed", time.Since(start)).
		Trace("ice: inferior cells computed")
}

// backupOpponentDead plays the opponent in every empty cell of the
// played-stone position; any dead cells the resulting fill-in creates are
// vulnerable to the move played.
func (ice *ICEngine) backupOpponentDead(color HexColor, board *StoneBoard,
	out *InferiorCells) int {

	reversible := out.Reversible()
	dominated := out.Dominated()

	found := 0
	board.Empty().ForEach(func(cell HexCell) {
		brd := NewStoneBoard(board.Const())
		brd.SetPlayed(board.Played().And(board.Color(Black)),
			board.Played().And(board.Color(White)))
		brd.PlayMove(color.Other(), cell)
		p := NewPosition(&brd)

		inf := NewInferiorCells()
		ice.ComputeFillin(color, p, &inf, CaptureBoth)
		filled := inf.Fillin(Black).Or(inf.Fillin(White))

		inf.Dead().ForEach(func(d HexCell) {
			if out.Vulnerable().Test(d) || reversible.Test(d) || dominated.Test(d) {
				return
			}
			carrier := filled
			carrier.Reset(d)
			carrier.Reset(cell)
			out.AddVulnerable(d, VulnerableKiller{Killer: cell, Carrier: carrier})
			found++
		})
	})
	return found
}

// UpdateInferiorCells merges a newly computed record into an accumulated
// one: fresh vulnerable/reversible/dominated replace the old maps, new
// fill-in and dead cells accumulate.
func UpdateInferiorCells(out *InferiorCells, in *InferiorCells) {
	out.ClearVulnerable()
	out.ClearReversible()
	out.ClearDominated()
	for c, ks := range in.vulnerable {
		for _, k := range ks {
			out.AddVulnerable(c, k)
		}
	}
	for c, r := range in.reversible {
		out.AddReversible(c, r)
	}
	for c, d := range in.dominated {
		out.AddDominated(c, d)
	}
	for _, c := range BothColors {
		out.AddCaptured(c, in.Captured(c))
		out.AddPermInf(c, in.PermInf(c), in.PermInfCarrier(c))
	}
	out.AddDead(in.Dead())
}
