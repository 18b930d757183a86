package main

// Group is a maximal set of same-colored cells connected by adjacency.
// The captain is the lowest member cell, which puts edges first since
// edge sentinels have the lowest indices. Groups are never mutated in
// place; BuildGroups recomputes them from the board.
type Group struct {
	Color   HexColor
	Captain HexCell
	Members Bitset
	Nbs     Bitset
}

func (g *Group) Size() int {
	return g.Members.Count()
}

func (g *Group) IsEdgeGroup() bool {
	return g.Captain.IsEdge()
}

// Groups is the connected-group decomposition of a board.
type Groups struct {
	board   *StoneBoard
	list    []*Group
	groupAt [maxCells]*Group
}

func BuildGroups(b *StoneBoard) *Groups {
	g := &Groups{board: b}
	for _, color := range BothColors {
		stones := b.Color(color).And(b.Const().AllCells())
		seen := Bitset{}
		stones.ForEach(func(c HexCell) {
			if seen.Test(c) {
				return
			}
			members := b.Const().Reachable(stones, Bitset{}, c)
			seen = seen.Or(members)
			grp := &Group{
				Color:   color,
				Captain: members.First(),
				Members: members,
			}
			members.ForEach(func(m HexCell) {
				grp.Nbs = grp.Nbs.Or(b.Const().Nbs(m))
				g.groupAt[cellIndex(m)] = grp
			})
			grp.Nbs = grp.Nbs.Minus(members)
			g.list = append(g.list, grp)
		})
	}
	return g
}

func (g *Groups) Board() *StoneBoard { return g.board }

// GroupAt returns the group containing c, or nil for empty/dead cells.
func (g *Groups) GroupAt(c HexCell) *Group {
	if c == CellInvalid {
		return nil
	}
	return g.groupAt[cellIndex(c)]
}

func (g *Groups) CaptainOf(c HexCell) HexCell {
	if grp := g.GroupAt(c); grp != nil {
		return grp.Captain
	}
	return c
}

// OfColor returns all groups of one color, edge groups included.
func (g *Groups) OfColor(color HexColor) []*Group {
	out := make([]*Group, 0, len(g.list))
	for _, grp := range g.list {
		if grp.Color == color {
			out = append(out, grp)
		}
	}
	return out
}

func (g *Groups) All() []*Group { return g.list }

// EmptyNbs returns the empty cells bordering a group.
func (g *Groups) EmptyNbs(grp *Group) Bitset {
	return grp.Nbs.And(g.board.Empty())
}

// EmptyNbsOfCell returns the empty cells adjacent to c, using group
// expansion when c sits in a group.
func (g *Groups) EmptyNbsOfCell(c HexCell) Bitset {
	if grp := g.GroupAt(c); grp != nil {
		return g.EmptyNbs(grp)
	}
	return g.board.Const().Nbs(c).And(g.board.Empty())
}

// StoneGroupCaptains returns the captains of stone groups adjacent to an
// empty cell.
func (g *Groups) StoneGroupCaptains(c HexCell) Bitset {
	var caps Bitset
	g.board.Const().Nbs(c).ForEach(func(n HexCell) {
		if grp := g.groupAt[cellIndex(n)]; grp != nil {
			caps.Set(grp.Captain)
		}
	})
	return caps
}

// Winner returns the color owning a completed edge-to-edge connection,
// or Empty if the game is undecided.
func (g *Groups) Winner() HexColor {
	for _, color := range BothColors {
		if g.CaptainOf(ColorEdge1(color)) == g.CaptainOf(ColorEdge2(color)) {
			return color
		}
	}
	return Empty
}

func (g *Groups) IsGameOver() bool {
	return g.Winner() != Empty
}

// WinningCarrier returns the interior cells of the winner's connecting
// group, or an empty set if the game is undecided.
func (g *Groups) WinningCarrier() Bitset {
	winner := g.Winner()
	if winner == Empty {
		return Bitset{}
	}
	grp := g.GroupAt(ColorEdge1(winner))
	return grp.Members.And(g.board.Const().Cells())
}
