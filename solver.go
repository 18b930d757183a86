package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the solver's tri-state outcome for the player to move.
// ResultUnknown always means undetermined within budget, never provably
// absent.
type Result int

const (
	ResultUnknown Result = iota
	ResultWin
	ResultLoss
)

func (r Result) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultLoss:
		return "loss"
	}
	return "unknown"
}

// Opposite flips win and loss; unknown stays unknown.
func (r Result) Opposite() Result {
	switch r {
	case ResultWin:
		return ResultLoss
	case ResultLoss:
		return ResultWin
	}
	return ResultUnknown
}

// Move ordering flags, composable.
const (
	OrderWithMustplay = 1 << iota
	OrderWithResist
	OrderFromCenter
)

// BranchStatistics counts the work done under one node.
type BranchStatistics struct {
	TotalStates       uint64
	ExploredStates    uint64
	ExpandedStates    uint64
	MinimalExplored   uint64
	Branches          uint64
	WinningMoves      uint64
	WinningExpanded   uint64
	MovesToConsider   uint64
	Decompositions    uint64
	DecompositionsWon uint64
	ShrunkProofs      uint64
	CellsRemoved      uint64
	MovesPlayed       uint64
}

func (bs *BranchStatistics) Add(o BranchStatistics) {
	bs.TotalStates += o.TotalStates
	bs.ExploredStates += o.ExploredStates
	bs.ExpandedStates += o.ExpandedStates
	bs.MinimalExplored += o.MinimalExplored
	bs.Branches += o.Branches
	bs.WinningMoves += o.WinningMoves
	bs.WinningExpanded += o.WinningExpanded
	bs.MovesToConsider += o.MovesToConsider
	bs.Decompositions += o.Decompositions
	bs.DecompositionsWon += o.DecompositionsWon
	bs.ShrunkProofs += o.ShrunkProofs
	bs.CellsRemoved += o.CellsRemoved
	bs.MovesPlayed += o.MovesPlayed
}

// Histogram buckets solver activity by stone count, plus mustplay sizes
// at expansion and table hits by depth.
type Histogram struct {
	Terminal map[int]uint64
	States   map[int]uint64
	Winning  map[int]uint64
	Losing   map[int]uint64
	Branches map[int]uint64
	Mustplay map[int]uint64
	TTHits   map[int]uint64
}

func NewHistogram() Histogram {
	return Histogram{
		Terminal: make(map[int]uint64),
		States:   make(map[int]uint64),
		Winning:  make(map[int]uint64),
		Losing:   make(map[int]uint64),
		Branches: make(map[int]uint64),
		Mustplay: make(map[int]uint64),
		TTHits:   make(map[int]uint64),
	}
}

func (h *Histogram) Write() string {
	var keys []int
	for k := range h.States {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "%8s %12s %12s %12s %12s %12s\n",
		"stones", "states", "terminal", "winning", "losing", "branches")
	for _, k := range keys {
		fmt.Fprintf(&b, "%8d %12d %12d %12d %12d %12d\n",
			k, h.States[k], h.Terminal[k], h.Winning[k], h.Losing[k], h.Branches[k])
	}
	writeBuckets(&b, "mustplay-size", h.Mustplay)
	writeBuckets(&b, "tt-hits-depth", h.TTHits)
	return b.String()
}

func writeBuckets(b *strings.Builder, label string, m map[int]uint64) {
	if len(m) == 0 {
		return
	}
	var keys []int
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fmt.Fprintf(b, "%-14s", label)
	for _, k := range keys {
		fmt.Fprintf(b, " %d:%d", k, m[k])
	}
	b.WriteByte('\n')
}

// SolutionSet carries a solved node's certificate: the proof cells, the
// move count to an actual connection, the principal variation, and the
// branch statistics gathered beneath it.
type SolutionSet struct {
	Proof             Bitset
	MovesToConnection int
	PV                []HexCell
	Stats             BranchStatistics
}

// Mixed into the position hash so the same stones with different movers
// never collide.
var turnKeys = [2]uint64{0x9d39247e33776d41, 0x2af7398005aaa5c7}

func stateHash(h *HexBoard, toPlay HexColor) uint64 {
	return h.Hash() ^ turnKeys[colorIdx(toPlay)]
}

// DfsSolver runs a sequential depth-first proof search over a board
// container. One solver drives one run at a time; the shared table and
// store carry their own locking.
type DfsSolver struct {
	positions *SolverPositions
	prior     *PriorKnowledge

	UseDecompositions bool
	MoveOrdering      int
	ShrinkProofs      bool
	SolveRootAgain    bool

	// OnProgress, when set, is invoked at abort-poll intervals.
	OnProgress ProgressFunc

	// run state
	aborted      bool
	deadline     time.Time
	abortFn      func() bool
	pollTicker   int
	pollDepth    int
	noStore      int
	moveProgress [progressDepths]MoveProgress

	statistics BranchStatistics
	histogram  Histogram
	started    time.Time
	elapsed    time.Duration
}

// Shallow depths report how far through their ordered moves the search
// has come; deeper levels churn too fast to be worth snapshotting.
const progressDepths = 4

// MoveProgress counts how many ordered moves at one depth have been
// searched to completion.
type MoveProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ProgressUpdate is a periodic snapshot of a running solve. Completed
// holds one entry per live depth, root first.
type ProgressUpdate struct {
	Elapsed        time.Duration  `json:"elapsed"`
	Depth          int            `json:"depth"`
	TotalStates    uint64         `json:"totalStates"`
	ExpandedStates uint64         `json:"expandedStates"`
	Completed      []MoveProgress `json:"completed"`
}

type ProgressFunc func(ProgressUpdate)

func NewDfsSolver(positions *SolverPositions, prior *PriorKnowledge) *DfsSolver {
	return &DfsSolver{
		positions:         positions,
		prior:             prior,
		UseDecompositions: true,
		MoveOrdering:      OrderWithMustplay | OrderFromCenter,
		ShrinkProofs:      true,
		histogram:         NewHistogram(),
	}
}

func (s *DfsSolver) Positions() *SolverPositions  { return s.positions }
func (s *DfsSolver) Statistics() BranchStatistics { return s.statistics }
func (s *DfsSolver) Histogram() Histogram         { return s.histogram }
func (s *DfsSolver) HistogramDump() string        { return s.histogram.Write() }
func (s *DfsSolver) Aborted() bool                { return s.aborted }

// abort polls the time limit and the external signal at bounded
// intervals. Once tripped it stays tripped for the rest of the run.
func (s *DfsSolver) abort() bool {
	if s.aborted {
		return true
	}
	s.pollTicker++
	if s.pollTicker&63 != 0 {
		return false
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		logrus.WithField("elapsed", time.Since(s.started)).
			Info("solver: time limit reached")
		s.aborted = true
	}
	if s.abortFn != nil && s.abortFn() {
		logrus.Info("solver: external abort")
		s.aborted = true
	}
	if s.OnProgress != nil {
		completed := make([]MoveProgress, 0, progressDepths)
		for d := 0; d <= s.pollDepth && d < progressDepths; d++ {
			completed = append(completed, s.moveProgress[d])
		}
		s.OnProgress(ProgressUpdate{
			Elapsed:        time.Since(s.started),
			Depth:          s.pollDepth,
			TotalStates:    s.statistics.TotalStates,
			ExpandedStates: s.statistics.ExpandedStates,
			Completed:      completed,
		})
	}
	return s.aborted
}

// Solve determines the value of the current position for toPlay. The
// board container is recomputed from scratch first; limit zero means no
// time limit, abortFn nil means no external abort.
func (s *DfsSolver) Solve(h *HexBoard, toPlay HexColor, limit time.Duration,
	abortFn func() bool) (Result, SolutionSet) {

	s.aborted = false
	s.abortFn = abortFn
	s.pollTicker = 0
	s.pollDepth = 0
	s.noStore = 0
	s.moveProgress = [progressDepths]MoveProgress{}
	s.statistics = BranchStatistics{}
	s.histogram = NewHistogram()
	s.started = time.Now()
	s.deadline = time.Time{}
	if limit > 0 {
		s.deadline = s.started.Add(limit)
	}

	h.ComputeAll(toPlay)
	if s.positions != nil && s.positions.TT != nil {
		s.positions.TT.NextGeneration()
	}

	var sol SolutionSet
	result := s.solveState(h, toPlay, 0, &sol)
	s.elapsed = time.Since(s.started)
	s.statistics = sol.Stats

	if s.positions != nil && s.positions.Store != nil {
		if err := s.positions.Store.Flush(); err != nil {
			logrus.WithError(err).Warn("solver: store flush failed")
		}
	}
	logrus.WithFields(logrus.Fields{
		"result":   result,
		"elapsed":  s.elapsed,
		"states":   sol.Stats.TotalStates,
		"expanded": sol.Stats.ExpandedStates,
		"pv":       len(sol.PV),
	}).Info("solver: run finished")
	return result, sol
}

// solveState is the per-node pipeline: terminal check, transposition,
// decomposition, mustplay, ordering, expansion, shrinking, storage.
func (s *DfsSolver) solveState(h *HexBoard, toPlay HexColor, depth int,
	sol *SolutionSet) Result {

	s.pollDepth = depth
	if s.abort() {
		return ResultUnknown
	}
	stones := h.Board().NumStones()
	sol.Stats.TotalStates++
	sol.Stats.ExploredStates++
	sol.Stats.MinimalExplored++
	s.statistics.TotalStates++
	s.histogram.States[stones]++

	// Terminal: an actual edge-to-edge connection on the board.
	if winner := h.Groups().Winner(); winner != Empty {
		s.histogram.Terminal[stones]++
		sol.Proof = h.Groups().WinningCarrier()
		sol.MovesToConnection = 0
		sol.PV = nil
		if winner == toPlay {
			return ResultWin
		}
		return ResultLoss
	}

	// Transposition: store first, then table.
	if depth > 0 || !s.SolveRootAgain {
		if e, ok := s.positions.Lookup(stateHash(h, toPlay)); ok {
			s.histogram.TTHits[depth]++
			sol.Proof = e.Proof
			sol.MovesToConnection = 1
			sol.PV = nil
			if e.BestMove != CellInvalid && e.Result == ResultWin {
				sol.PV = []HexCell{e.BestMove}
			}
			return e.Result
		}
	}

	// Established connections decide the node without expansion.
	opp := toPlay.Other()
	if carrier, ok := h.VCs(toPlay).SmallestFullCarrier(
		ColorEdge1(toPlay), ColorEdge2(toPlay)); ok {
		sol.Proof = carrier
		sol.MovesToConnection = 1
		sol.PV = nil
		s.storeState(h, toPlay, ResultWin, CellInvalid, sol.Proof)
		return ResultWin
	}
	if carrier, ok := h.VCs(opp).SmallestFullCarrier(
		ColorEdge1(opp), ColorEdge2(opp)); ok {
		sol.Proof = carrier
		sol.MovesToConnection = 1
		sol.PV = nil
		s.storeState(h, toPlay, ResultLoss, CellInvalid, sol.Proof)
		return ResultLoss
	}

	if s.UseDecompositions && h.UseDecompositions {
		if result, done := s.solveDecomposed(h, toPlay, depth, sol); done {
			if result != ResultUnknown {
				s.storeState(h, toPlay, result, CellInvalid, sol.Proof)
			}
			return result
		}
	}

	// Mustplay: the opponent's winning semi carriers. Empty means the
	// opponent cannot connect even moving first.
	mustplay := h.VCs(opp).SemiCarrierUnion(ColorEdge1(opp), ColorEdge2(opp)).
		And(h.Board().Empty())
	if mustplay.None() {
		sol.Proof = h.Board().Empty()
		sol.MovesToConnection = 1
		sol.PV = nil
		s.storeState(h, toPlay, ResultWin, CellInvalid, sol.Proof)
		return ResultWin
	}

	candidates, early := s.orderMoves(h, toPlay, depth, mustplay)
	if s.aborted {
		return ResultUnknown
	}
	sol.Stats.MovesToConsider += uint64(len(candidates))
	sol.Stats.MovesPlayed += uint64(early.played)
	s.histogram.Branches[stones] += uint64(len(candidates))
	s.histogram.Mustplay[mustplay.Count()]++
	if depth < progressDepths {
		s.moveProgress[depth] = MoveProgress{Total: len(candidates)}
	}

	sol.Stats.ExpandedStates++
	s.statistics.ExpandedStates++

	lossProof := mustplay
	for _, e := range early.dropped {
		lossProof = lossProof.And(e.proof.Or(BitsetOf(e.move)))
	}

	bestLoss := SolutionSet{}
	var minimalSum uint64
	branches := uint64(0)
	remaining := mustplay
	for _, move := range candidates {
		if !remaining.Test(move) {
			if depth < progressDepths {
				s.moveProgress[depth].Done++
			}
			continue
		}
		branches++

		var child SolutionSet
		h.PlayMove(toPlay, move)
		sol.Stats.MovesPlayed++
		childResult := s.solveState(h, opp, depth+1, &child)
		h.UndoMove()
		if depth < progressDepths {
			s.moveProgress[depth].Done++
		}
		sol.Stats.Add(child.Stats)
		sol.Stats.Branches++
		minimalSum += child.Stats.MinimalExplored

		if childResult == ResultUnknown {
			return ResultUnknown
		}
		if childResult == ResultLoss {
			// The opponent loses the child: this move wins.
			sol.Proof = child.Proof
			sol.Proof.Set(move)
			sol.MovesToConnection = child.MovesToConnection + 1
			sol.PV = append([]HexCell{move}, child.PV...)
			sol.Stats.WinningMoves += branches
			sol.Stats.WinningExpanded++
			sol.Stats.MinimalExplored = 1 + child.Stats.MinimalExplored
			s.histogram.Winning[stones]++
			if s.ShrinkProofs {
				sol.Proof = s.shrinkProof(h, toPlay, sol.Proof, &sol.Stats)
			}
			s.storeState(h, toPlay, ResultWin, move, sol.Proof)
			return ResultWin
		}
		// Moves outside the child's proof lose by the same certificate.
		lossProof = lossProof.And(child.Proof.Or(BitsetOf(move)))
		remaining = remaining.And(child.Proof)
		if child.MovesToConnection >= bestLoss.MovesToConnection {
			bestLoss = child
			bestLoss.PV = append([]HexCell{move}, child.PV...)
		}
	}

	sol.Proof = lossProof
	sol.MovesToConnection = bestLoss.MovesToConnection + 1
	sol.PV = bestLoss.PV
	sol.Stats.MinimalExplored = 1 + minimalSum
	s.histogram.Losing[stones]++
	s.storeState(h, toPlay, ResultLoss, CellInvalid, sol.Proof)
	return ResultLoss
}

type droppedCandidate struct {
	move  HexCell
	proof Bitset
}

type orderingInfo struct {
	dropped []droppedCandidate
	played  int
}

type scoredMove struct {
	move     HexCell
	mustplay int
	resist   int
	center   int
}

// orderMoves prunes provably inferior candidates and sorts the rest per
// the configured ordering flags. Candidates the table already knows to
// win come back alone; known losses are reported for mustplay shrinking.
func (s *DfsSolver) orderMoves(h *HexBoard, toPlay HexColor, depth int,
	mustplay Bitset) ([]HexCell, orderingInfo) {

	info := orderingInfo{}
	inf := h.Inferior()
	pruned := mustplay.
		Minus(inf.Vulnerable()).
		Minus(inf.Reversible()).
		Minus(inf.Dominated())
	if pruned.None() {
		pruned = mustplay
	}
	candidates := pruned.Cells()
	if s.prior != nil {
		candidates = s.prior.Reorder(h, toPlay, candidates)
	}

	scored := make([]scoredMove, 0, len(candidates))
	opp := toPlay.Other()
	for _, move := range candidates {
		sm := scoredMove{move: move}
		if s.MoveOrdering&OrderFromCenter != 0 {
			sm.center = h.Board().Const().DistanceFromCenter(move)
		}
		if s.MoveOrdering&OrderWithResist != 0 {
			sm.resist = resistanceScore(h, toPlay, move)
		}
		if s.MoveOrdering&OrderWithMustplay != 0 {
			if s.aborted {
				break
			}
			h.PlayMove(toPlay, move)
			info.played++
			if e, ok := s.positions.Lookup(stateHash(h, opp)); ok {
				s.histogram.TTHits[depth+1]++
				h.UndoMove()
				if e.Result == ResultLoss {
					// Known win for us: play it, stop ordering.
					return []HexCell{move}, info
				}
				info.dropped = append(info.dropped,
					droppedCandidate{move: move, proof: e.Proof})
				continue
			}
			sm.mustplay = h.VCs(toPlay).
				SemiCarrierUnion(ColorEdge1(toPlay), ColorEdge2(toPlay)).
				And(h.Board().Empty()).Count()
			h.UndoMove()
		}
		scored = append(scored, sm)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if s.MoveOrdering&OrderWithMustplay != 0 && a.mustplay != b.mustplay {
			return a.mustplay < b.mustplay
		}
		if s.MoveOrdering&OrderWithResist != 0 && a.resist != b.resist {
			return a.resist < b.resist
		}
		if s.MoveOrdering&OrderFromCenter != 0 && a.center != b.center {
			return a.center < b.center
		}
		return a.move < b.move
	})
	out := make([]HexCell, len(scored))
	for i, sm := range scored {
		out[i] = sm.move
	}
	return out, info
}

// resistanceScore is the length of the shortest connecting path forced
// through the candidate; shorter paths mean a more forcing move.
func resistanceScore(h *HexBoard, toPlay HexColor, move HexCell) int {
	flow := h.Board().Empty().Or(h.Board().Color(toPlay))
	d1 := bfsDistances(h.Board().Const(), flow, ColorEdge1(toPlay))
	d2 := bfsDistances(h.Board().Const(), flow, ColorEdge2(toPlay))
	a, b := d1[cellIndex(move)], d2[cellIndex(move)]
	if a < 0 || b < 0 {
		return 1 << 20
	}
	return a + b
}

func bfsDistances(cb *ConstBoard, flow Bitset, start HexCell) []int {
	dist := make([]int, maxCells)
	for i := range dist {
		dist[i] = -1
	}
	dist[cellIndex(start)] = 0
	queue := []HexCell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		cb.Nbs(c).And(flow).ForEach(func(n HexCell) {
			if dist[cellIndex(n)] >= 0 {
				return
			}
			dist[cellIndex(n)] = dist[cellIndex(c)] + 1
			queue = append(queue, n)
		})
	}
	return dist
}

// solveDecomposed handles positions whose empty cells split into
// components that are independent for the mover but not for the
// opponent. The mover wins by winning any one component; losing them all
// loses with the union of the component proofs. Sub-solve results are
// not persisted, since the filled positions share the parent's hash.
func (s *DfsSolver) solveDecomposed(h *HexBoard, toPlay HexColor, depth int,
	sol *SolutionSet) (Result, bool) {

	regions := h.EmptyRegions()
	if len(regions) < 2 {
		return ResultUnknown, false
	}
	opp := toPlay.Other()
	var moverRegions []Bitset
	asymmetric := false
	for _, r := range regions {
		if h.RegionTouchesEdges(r, toPlay) {
			moverRegions = append(moverRegions, r)
			if !h.RegionTouchesEdges(r, opp) {
				asymmetric = true
			}
		}
	}
	if len(moverRegions) == 0 || !asymmetric {
		return ResultUnknown, false
	}

	sol.Stats.Decompositions++
	s.histogram.Branches[h.Board().NumStones()]++
	all := h.Board().Empty()
	var lossProof Bitset
	var lastPV []HexCell
	for _, region := range moverRegions {
		others := all.Minus(region)
		s.noStore++
		h.PlayStones(opp, others, toPlay)
		var child SolutionSet
		result := s.solveState(h, toPlay, depth+1, &child)
		h.UndoMove()
		s.noStore--
		sol.Stats.Add(child.Stats)

		switch result {
		case ResultUnknown:
			return ResultUnknown, true
		case ResultWin:
			sol.Stats.DecompositionsWon++
			sol.Proof = child.Proof.And(region.Or(h.Board().Occupied()))
			sol.MovesToConnection = child.MovesToConnection
			sol.PV = child.PV
			return ResultWin, true
		case ResultLoss:
			lossProof = lossProof.Or(child.Proof.And(region))
			lastPV = child.PV
		}
	}
	sol.Proof = lossProof
	sol.MovesToConnection = 1
	sol.PV = lastPV
	return ResultLoss, true
}

// shrinkProof gives every empty cell outside the proof to the loser,
// reruns fill-in for the loser, and drops proof cells the fill-in claims.
// If handing over the complement would complete a loser connection the
// original proof stands.
func (s *DfsSolver) shrinkProof(h *HexBoard, winner HexColor, proof Bitset,
	stats *BranchStatistics) Bitset {

	board := h.Board()
	loser := winner.Other()
	winnerStones := board.Played().And(board.Color(winner))
	loserStones := board.Played().And(board.Color(loser)).
		Or(board.Empty().Minus(proof))

	scratch := NewStoneBoard(board.Const())
	if winner == Black {
		scratch.SetPlayed(winnerStones, loserStones)
	} else {
		scratch.SetPlayed(loserStones, winnerStones)
	}
	p := NewPosition(&scratch)
	if p.Groups.Winner() == loser {
		return proof
	}
	inf := NewInferiorCells()
	h.ice.ComputeFillin(loser, p, &inf, CaptureOnly(loser))
	if p.Groups.Winner() == loser {
		return proof
	}
	shrunk := proof.Minus(inf.Fillin(loser))
	if removed := proof.Count() - shrunk.Count(); removed > 0 {
		stats.ShrunkProofs++
		stats.CellsRemoved += uint64(removed)
	}
	return shrunk
}

// storeState persists a solved node unless the run aborted or the node
// sits inside a decomposition sub-solve.
func (s *DfsSolver) storeState(h *HexBoard, toPlay HexColor, result Result,
	best HexCell, proof Bitset) {

	if s.aborted || s.noStore > 0 || s.positions == nil {
		return
	}
	s.positions.Record(stateHash(h, toPlay), result, best, proof,
		h.Board().NumStones())
}

// DumpStats renders the run statistics for offline tuning.
func (s *DfsSolver) DumpStats(sol *SolutionSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "elapsed       %v\n", s.elapsed)
	fmt.Fprintf(&b, "states        %d\n", sol.Stats.TotalStates)
	fmt.Fprintf(&b, "explored      %d\n", sol.Stats.ExploredStates)
	fmt.Fprintf(&b, "expanded      %d\n", sol.Stats.ExpandedStates)
	fmt.Fprintf(&b, "minimal       %d\n", sol.Stats.MinimalExplored)
	fmt.Fprintf(&b, "branches      %d\n", sol.Stats.Branches)
	fmt.Fprintf(&b, "winning-moves %d\n", sol.Stats.WinningMoves)
	fmt.Fprintf(&b, "considered    %d\n", sol.Stats.MovesToConsider)
	fmt.Fprintf(&b, "moves-played  %d\n", sol.Stats.MovesPlayed)
	fmt.Fprintf(&b, "decomps       %d (%d won)\n",
		sol.Stats.Decompositions, sol.Stats.DecompositionsWon)
	fmt.Fprintf(&b, "shrunk        %d proofs, %d cells\n",
		sol.Stats.ShrunkProofs, sol.Stats.CellsRemoved)
	if len(sol.PV) > 0 {
		moves := make([]string, len(sol.PV))
		for i, m := range sol.PV {
			moves[i] = m.String()
		}
		fmt.Fprintf(&b, "pv            %s\n", strings.Join(moves, " "))
	}
	b.WriteString(s.histogram.Write())
	return b.String()
}
