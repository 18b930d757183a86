package main

// StoneBoard holds the stones of a position: one bitset per color, the
// neutral dead fill, and the set of actually played stones. Fill-in added
// through AddColor never touches the played set or the hash; only
// PlayMove does.
type StoneBoard struct {
	cb     *ConstBoard
	black  Bitset
	white  Bitset
	dead   Bitset
	played Bitset
	hash   uint64
}

func NewStoneBoard(cb *ConstBoard) StoneBoard {
	b := StoneBoard{cb: cb}
	b.StartNewGame()
	return b
}

func (b *StoneBoard) StartNewGame() {
	b.black = Bitset{}
	b.white = Bitset{}
	b.dead = Bitset{}
	b.played = Bitset{}
	b.hash = 0
	// Edges are permanent stones of their owning color.
	b.black.Set(EdgeNorth)
	b.black.Set(EdgeSouth)
	b.white.Set(EdgeEast)
	b.white.Set(EdgeWest)
}

func (b *StoneBoard) Const() *ConstBoard { return b.cb }

func (b *StoneBoard) Hash() uint64 { return b.hash }

// Color returns the stone set for a color, edges included.
func (b *StoneBoard) Color(c HexColor) Bitset {
	if c == Black {
		return b.black
	}
	return b.white
}

func (b *StoneBoard) Dead() Bitset { return b.dead }

// Empty returns the playable cells: interior cells with no stone and no
// dead fill.
func (b *StoneBoard) Empty() Bitset {
	return b.cb.Cells().Minus(b.black).Minus(b.white).Minus(b.dead)
}

func (b *StoneBoard) Occupied() Bitset {
	return b.black.Or(b.white).Or(b.dead).And(b.cb.Cells())
}

// Played returns the stones that entered the board through PlayMove or
// SetPlayed, as opposed to fill-in.
func (b *StoneBoard) Played() Bitset {
	return b.played.And(b.cb.Cells())
}

func (b *StoneBoard) NumStones() int {
	return b.Played().Count()
}

func (b *StoneBoard) ColorAt(c HexCell) HexColor {
	if c == CellInvalid {
		return Border
	}
	switch {
	case b.black.Test(c):
		return Black
	case b.white.Test(c):
		return White
	case b.dead.Test(c):
		return DeadColor
	}
	return Empty
}

func (b *StoneBoard) IsPlayed(c HexCell) bool {
	return b.played.Test(c)
}

// PlayMove places a played stone and folds it into the hash.
func (b *StoneBoard) PlayMove(color HexColor, c HexCell) {
	b.addCell(color, c)
	b.played.Set(c)
	b.hash ^= zobristFor(b.cb).stone(c, color)
}

// PlayStones places a batch of played stones. The hash is deliberately
// left alone; batch placement is for provisional exploration and must be
// unwound by the caller.
func (b *StoneBoard) PlayStones(color HexColor, cells Bitset) {
	b.AddColor(color, cells)
	b.played = b.played.Or(cells.And(b.cb.Cells()))
}

// AddColor adds fill-in stones for color. The hash and played set are
// deliberately left alone.
func (b *StoneBoard) AddColor(color HexColor, cells Bitset) {
	cells.ForEach(func(c HexCell) {
		b.addCell(color, c)
	})
}

func (b *StoneBoard) addCell(color HexColor, c HexCell) {
	switch color {
	case Black:
		b.black.Set(c)
	case White:
		b.white.Set(c)
	case DeadColor:
		b.dead.Set(c)
	}
}

// SetPlayed replaces the played stones wholesale and recomputes the hash.
// Fill-in and dead cells are discarded.
func (b *StoneBoard) SetPlayed(black, white Bitset) {
	b.StartNewGame()
	interior := b.cb.Cells()
	b.black = b.black.Or(black.And(interior))
	b.white = b.white.Or(white.And(interior))
	b.played = black.And(interior).Or(white.And(interior))
	b.recomputeHash()
}

func (b *StoneBoard) recomputeHash() {
	z := zobristFor(b.cb)
	var hash uint64
	b.played.And(b.cb.Cells()).ForEach(func(c HexCell) {
		if b.black.Test(c) {
			hash ^= z.stone(c, Black)
		} else if b.white.Test(c) {
			hash ^= z.stone(c, White)
		}
	})
	b.hash = hash
}

// Clone returns an independent copy. StoneBoard is all value fields apart
// from the shared immutable geometry, so assignment is enough.
func (b StoneBoard) Clone() StoneBoard {
	return b
}
