package main

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// VCType separates established connections from those needing one more
// move by the owner.
type VCType int

const (
	VCFull VCType = iota
	VCSemi
)

// VC is a virtual connection between two endpoints: group captains or
// empty cells. The carrier holds the empty cells the connection consumes;
// a semi's key (the move completing it) is part of the carrier.
type VC struct {
	X, Y    HexCell
	Type    VCType
	Key     HexCell
	Carrier Bitset
}

type vcPair [2]HexCell

func pairOf(x, y HexCell) vcPair {
	if x > y {
		x, y = y, x
	}
	return vcPair{x, y}
}

const (
	softLimitFull = 25
	softLimitSemi = 50

	// Bound on AND/OR worklist pops per build.
	maxBuildSteps = 100000
)

// VCSet holds the virtual connections of one color for the current
// position. Builds mutate through the change log only, so UndoBuild can
// restore the previous position's connections exactly.
type VCSet struct {
	color HexColor
	full  map[vcPair][]VC
	semi  map[vcPair][]VC
	log   ChangeLog
}

func NewVCSet(color HexColor) *VCSet {
	return &VCSet{
		color: color,
		full:  make(map[vcPair][]VC),
		semi:  make(map[vcPair][]VC),
	}
}

func (s *VCSet) Color() HexColor { return s.color }
func (s *VCSet) Log() *ChangeLog { return &s.log }

func (s *VCSet) listFor(vc VC) *map[vcPair][]VC {
	if vc.Type == VCSemi {
		return &s.semi
	}
	return &s.full
}

func (s *VCSet) addRaw(vc VC) {
	m := *s.listFor(vc)
	key := pairOf(vc.X, vc.Y)
	m[key] = append(m[key], vc)
}

func (s *VCSet) removeRaw(vc VC) {
	m := *s.listFor(vc)
	key := pairOf(vc.X, vc.Y)
	list := m[key]
	for i := range list {
		if list[i].Key == vc.Key && list[i].Carrier.Equal(vc.Carrier) {
			m[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// tryAdd inserts a connection unless an existing one with a carrier
// subset makes it redundant. Existing supersets are evicted. All
// mutations go through the log.
func (s *VCSet) tryAdd(vc VC) bool {
	m := *s.listFor(vc)
	key := pairOf(vc.X, vc.Y)
	list := m[key]
	for i := range list {
		if list[i].Carrier.SubsetOf(vc.Carrier) {
			return false
		}
	}
	kept := list[:0]
	for i := range list {
		if vc.Carrier.SubsetOf(list[i].Carrier) {
			s.log.PushRemove(list[i])
			continue
		}
		kept = append(kept, list[i])
	}
	limit := softLimitFull
	if vc.Type == VCSemi {
		limit = softLimitSemi
	}
	if len(kept) >= limit {
		m[key] = kept
		return false
	}
	m[key] = append(kept, vc)
	s.log.PushAdd(vc)
	return true
}

func (s *VCSet) Fulls(x, y HexCell) []VC { return s.full[pairOf(x, y)] }
func (s *VCSet) Semis(x, y HexCell) []VC { return s.semi[pairOf(x, y)] }

func (s *VCSet) FullExists(x, y HexCell) bool {
	return len(s.full[pairOf(x, y)]) > 0
}

// SmallestFullCarrier returns the full connection with the fewest carrier
// cells between x and y.
func (s *VCSet) SmallestFullCarrier(x, y HexCell) (Bitset, bool) {
	list := s.full[pairOf(x, y)]
	if len(list) == 0 {
		return Bitset{}, false
	}
	best := list[0].Carrier
	for _, vc := range list[1:] {
		if vc.Carrier.Count() < best.Count() {
			best = vc.Carrier
		}
	}
	return best, true
}

// SemiCarrierUnion returns the union of all semi carriers between x and
// y, keys included.
func (s *VCSet) SemiCarrierUnion(x, y HexCell) Bitset {
	var out Bitset
	for _, vc := range s.semi[pairOf(x, y)] {
		out = out.Or(vc.Carrier)
	}
	return out
}

// FullConnectsEdges reports an established connection between the owning
// color's two edges.
func (s *VCSet) FullConnectsEdges() bool {
	return s.FullExists(ColorEdge1(s.color), ColorEdge2(s.color))
}

// SemisBetweenEdges returns the semi connections between the owning
// color's edges.
func (s *VCSet) SemisBetweenEdges() []VC {
	return s.Semis(ColorEdge1(s.color), ColorEdge2(s.color))
}

// UndoBuild unwinds the most recent Build, restoring the connections of
// the previous position.
func (s *VCSet) UndoBuild() {
	s.log.RevertTo(s)
}

//----------------------------------------------------------------------------
// Build.

// nodeOf maps a board cell to its connection endpoint for this color:
// empty cells stand alone, own stones contract to their group captain,
// anything else is not a node.
func (s *VCSet) nodeOf(p *Position, c HexCell) HexCell {
	switch p.Board.ColorAt(c) {
	case Empty:
		return c
	case s.color:
		return p.Groups.CaptainOf(c)
	}
	return CellInvalid
}

func (s *VCSet) nodeNbs(p *Position, node HexCell) Bitset {
	if grp := p.Groups.GroupAt(node); grp != nil {
		return grp.Nbs
	}
	return p.Board.Const().Nbs(node)
}

// Build recomputes the connection set for the current position with a
// bounded AND/OR closure over the endpoint graph. The previous contents
// are removed first; every mutation is logged behind a single marker so
// UndoBuild restores the prior state.
func (s *VCSet) Build(p *Position) {
	s.log.PushMarker()
	for _, m := range []map[vcPair][]VC{s.full, s.semi} {
		for _, list := range m {
			for _, vc := range list {
				s.log.PushRemove(vc)
			}
		}
	}
	s.full = make(map[vcPair][]VC)
	s.semi = make(map[vcPair][]VC)

	var nodes []HexCell
	for _, grp := range p.Groups.OfColor(s.color) {
		nodes = append(nodes, grp.Captain)
	}
	p.Board.Empty().ForEach(func(c HexCell) {
		nodes = append(nodes, c)
	})
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var queue []VC
	push := func(vc VC) {
		if s.tryAdd(vc) {
			queue = append(queue, vc)
		}
	}

	// Base case: adjacent endpoints connect with an empty carrier.
	seen := make(map[vcPair]bool)
	for _, x := range nodes {
		s.nodeNbs(p, x).ForEach(func(n HexCell) {
			y := s.nodeOf(p, n)
			if y == CellInvalid || y == x {
				return
			}
			key := pairOf(x, y)
			if seen[key] {
				return
			}
			seen[key] = true
			push(VC{X: key[0], Y: key[1], Type: VCFull, Key: CellInvalid})
		})
	}

	steps := 0
	for len(queue) > 0 && steps < maxBuildSteps {
		steps++
		vc := queue[0]
		queue = queue[1:]
		if vc.Type == VCFull {
			s.andRule(p, vc, push)
		} else {
			s.orRule(vc.X, vc.Y, push)
		}
	}
	if steps >= maxBuildSteps {
		logrus.WithFields(logrus.Fields{
			"color": s.color,
			"steps": steps,
		}).Debug("vc: build truncated at step limit")
	}
}

// andRule combines a new full connection with established fulls sharing
// an endpoint. Through an own-colored group the result is full; through
// an empty cell it is a semi keyed on that cell.
func (s *VCSet) andRule(p *Position, vc VC, push func(VC)) {
	ends := [2][2]HexCell{{vc.X, vc.Y}, {vc.Y, vc.X}}
	for _, e := range ends {
		through, other := e[0], e[1]
		throughEmpty := p.Board.ColorAt(through) == Empty
		for key, list := range s.full {
			var far HexCell
			switch through {
			case key[0]:
				far = key[1]
			case key[1]:
				far = key[0]
			default:
				continue
			}
			if far == other {
				continue
			}
			for _, fc := range list {
				if fc.Carrier.Intersects(vc.Carrier) {
					continue
				}
				carrier := fc.Carrier.Or(vc.Carrier)
				if carrier.Test(other) || carrier.Test(far) {
					continue
				}
				if throughEmpty {
					carrier.Set(through)
					push(VC{X: other, Y: far, Type: VCSemi, Key: through, Carrier: carrier})
				} else {
					push(VC{X: other, Y: far, Type: VCFull, Key: CellInvalid, Carrier: carrier})
				}
			}
		}
	}
}

// orRule upgrades semis between a pair to a full when a subset of their
// carriers has an empty common intersection. The greedy pass keeps
// shrinking the running intersection with the semi that cuts it most;
// missing a combination costs completeness, never soundness.
func (s *VCSet) orRule(x, y HexCell, push func(VC)) {
	semis := s.semi[pairOf(x, y)]
	if len(semis) < 2 {
		return
	}
	for start := range semis {
		inter := semis[start].Carrier
		union := semis[start].Carrier
		used := map[int]bool{start: true}
		for inter.Any() {
			best, bestCount := -1, inter.Count()
			for i := range semis {
				if used[i] {
					continue
				}
				if n := inter.And(semis[i].Carrier).Count(); n < bestCount {
					best, bestCount = i, n
				}
			}
			if best < 0 {
				break
			}
			used[best] = true
			inter = inter.And(semis[best].Carrier)
			union = union.Or(semis[best].Carrier)
		}
		if inter.None() {
			push(VC{X: x, Y: y, Type: VCFull, Key: CellInvalid, Carrier: union})
			return
		}
	}
}
