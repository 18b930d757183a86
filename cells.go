package main

import "fmt"

// HexCell indexes a cell on the board. The four edge sentinels come first;
// interior cells follow row by row.
type HexCell int

const (
	CellInvalid HexCell = -1

	EdgeNorth HexCell = iota - 1
	EdgeEast
	EdgeSouth
	EdgeWest

	firstInterior
)

const (
	MinBoardSize = 3
	MaxBoardSize = 13
	maxCells     = int(firstInterior) + MaxBoardSize*MaxBoardSize
)

func (c HexCell) IsEdge() bool {
	return c >= EdgeNorth && c < firstInterior
}

func (c HexCell) IsInterior() bool {
	return c >= firstInterior
}

func (c HexCell) String() string {
	switch c {
	case CellInvalid:
		return "invalid"
	case EdgeNorth:
		return "north"
	case EdgeEast:
		return "east"
	case EdgeSouth:
		return "south"
	case EdgeWest:
		return "west"
	}
	return fmt.Sprintf("cell-%d", int(c))
}

// Black connects north to south, White connects east to west.
func ColorEdge1(c HexColor) HexCell {
	if c == Black {
		return EdgeNorth
	}
	return EdgeEast
}

func ColorEdge2(c HexColor) HexCell {
	if c == Black {
		return EdgeSouth
	}
	return EdgeWest
}

func EdgeColor(c HexCell) HexColor {
	switch c {
	case EdgeNorth, EdgeSouth:
		return Black
	case EdgeEast, EdgeWest:
		return White
	}
	return Empty
}

func IsColorEdge(c HexCell, color HexColor) bool {
	return c.IsEdge() && EdgeColor(c) == color
}

// ConstBoard holds the immutable geometry of a board: dimensions,
// adjacency, and the cell universe. It is shared by reference and never
// mutated after construction.
type ConstBoard struct {
	width  int
	height int

	cells Bitset // interior cells only
	all   Bitset // interior cells plus edges
	nbs   [maxCells]Bitset
}

func NewConstBoard(width, height int) (*ConstBoard, error) {
	if width < MinBoardSize || height < MinBoardSize ||
		width > MaxBoardSize || height > MaxBoardSize {
		return nil, fmt.Errorf("board size %dx%d out of range [%d..%d]",
			width, height, MinBoardSize, MaxBoardSize)
	}
	cb := &ConstBoard{width: width, height: height}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cb.cells.Set(cb.Cell(x, y))
		}
	}
	cb.all = cb.cells
	for _, e := range [4]HexCell{EdgeNorth, EdgeEast, EdgeSouth, EdgeWest} {
		cb.all.Set(e)
	}
	cb.buildAdjacency()
	return cb, nil
}

// hexDirs lists the six neighbour offsets in clockwise ring order;
// consecutive directions share an adjacency, which the clique reasoning
// in the inference engine relies on.
var hexDirs = [6][2]int{
	{0, -1}, {1, -1}, {1, 0}, {0, 1}, {-1, 1}, {-1, 0},
}

func (cb *ConstBoard) buildAdjacency() {
	addNb := func(a, b HexCell) {
		cb.nbs[cellIndex(a)].Set(b)
		cb.nbs[cellIndex(b)].Set(a)
	}
	for y := 0; y < cb.height; y++ {
		for x := 0; x < cb.width; x++ {
			c := cb.Cell(x, y)
			for _, d := range hexDirs {
				nx, ny := x+d[0], y+d[1]
				if cb.InBounds(nx, ny) {
					cb.nbs[cellIndex(c)].Set(cb.Cell(nx, ny))
				}
			}
			if y == 0 {
				addNb(c, EdgeNorth)
			}
			if y == cb.height-1 {
				addNb(c, EdgeSouth)
			}
			if x == 0 {
				addNb(c, EdgeWest)
			}
			if x == cb.width-1 {
				addNb(c, EdgeEast)
			}
		}
	}
	// Edges meeting at the obtuse corners touch each other.
	addNb(EdgeNorth, EdgeEast)
	addNb(EdgeNorth, EdgeWest)
	addNb(EdgeSouth, EdgeEast)
	addNb(EdgeSouth, EdgeWest)
}

// cellIndex maps a HexCell to a dense array index (edges occupy 0..3).
func cellIndex(c HexCell) int {
	return int(c)
}

func (cb *ConstBoard) Width() int  { return cb.width }
func (cb *ConstBoard) Height() int { return cb.height }

func (cb *ConstBoard) Cell(x, y int) HexCell {
	return firstInterior + HexCell(y*cb.width+x)
}

func (cb *ConstBoard) Coords(c HexCell) (int, int) {
	i := int(c - firstInterior)
	return i % cb.width, i / cb.width
}

func (cb *ConstBoard) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < cb.width && y < cb.height
}

// Cells returns the interior cell universe.
func (cb *ConstBoard) Cells() Bitset { return cb.cells }

// AllCells returns interior cells plus the four edges.
func (cb *ConstBoard) AllCells() Bitset { return cb.all }

func (cb *ConstBoard) Nbs(c HexCell) Bitset {
	return cb.nbs[cellIndex(c)]
}

func (cb *ConstBoard) Adjacent(a, b HexCell) bool {
	return cb.nbs[cellIndex(a)].Test(b)
}

// IsClique reports whether the given cells are pairwise adjacent,
// skipping any comparison involving exclude.
func (cb *ConstBoard) IsClique(cells []HexCell, exclude HexCell) bool {
	for i := 0; i < len(cells); i++ {
		if cells[i] == exclude {
			continue
		}
		for j := i + 1; j < len(cells); j++ {
			if cells[j] == exclude {
				continue
			}
			if !cb.Adjacent(cells[i], cells[j]) {
				return false
			}
		}
	}
	return true
}

// DistanceFromCenter is the rough hex distance from a cell to the middle
// of the board, used as the default move-ordering tie break.
func (cb *ConstBoard) DistanceFromCenter(c HexCell) int {
	x, y := cb.Coords(c)
	cx, cy := (cb.width-1)/2, (cb.height-1)/2
	dx, dy := x-cx, y-cy
	if (dx < 0) == (dy < 0) {
		return abs(dx + dy)
	}
	return max(abs(dx), abs(dy))
}

// Reachable flood-fills from start over cells in flowSet, never expanding
// through stopSet. Start must be in flowSet. Cells of stopSet adjacent to
// the fill are included in the result but not expanded.
func (cb *ConstBoard) Reachable(flowSet, stopSet Bitset, start HexCell) Bitset {
	var reached Bitset
	if !flowSet.Test(start) {
		return reached
	}
	reached.Set(start)
	queue := []HexCell{start}
	for len(queue) > 0 {
		c := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		nbs := cb.Nbs(c).And(flowSet).Minus(reached)
		nbs.ForEach(func(n HexCell) {
			reached.Set(n)
			if !stopSet.Test(n) {
				queue = append(queue, n)
			}
		})
	}
	return reached
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
