package main

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

var renderProfile = termenv.ColorProfile()

func renderStone(c HexColor, highlight bool) string {
	s := termenv.String("·")
	switch c {
	case Black:
		s = termenv.String("●").Foreground(renderProfile.Color("1"))
	case White:
		s = termenv.String("●").Foreground(renderProfile.Color("4"))
	case DeadColor:
		s = termenv.String("x").Foreground(renderProfile.Color("8"))
	}
	if highlight {
		s = s.Bold().Underline()
	}
	return s.String()
}

// RenderBoard draws the board with the usual hex skew: each row shifts
// half a cell right. Highlighted cells (a proof, a principal variation)
// come out bold.
func RenderBoard(b *StoneBoard, highlight Bitset) string {
	cb := b.Const()
	var out strings.Builder

	out.WriteString("   ")
	for x := 0; x < cb.Width(); x++ {
		fmt.Fprintf(&out, "%c ", 'a'+x)
	}
	out.WriteByte('\n')

	for y := 0; y < cb.Height(); y++ {
		out.WriteString(strings.Repeat(" ", y))
		fmt.Fprintf(&out, "%2d ", y+1)
		for x := 0; x < cb.Width(); x++ {
			c := cb.Cell(x, y)
			out.WriteString(renderStone(b.ColorAt(c), highlight.Test(c)))
			out.WriteByte(' ')
		}
		fmt.Fprintf(&out, "%d\n", y+1)
	}

	out.WriteString(strings.Repeat(" ", cb.Height()+3))
	for x := 0; x < cb.Width(); x++ {
		fmt.Fprintf(&out, "%c ", 'a'+x)
	}
	out.WriteByte('\n')
	return out.String()
}

// CellName renders a cell in the usual a1 notation.
func CellName(cb *ConstBoard, c HexCell) string {
	if !c.IsInterior() {
		return c.String()
	}
	x, y := cb.Coords(c)
	return fmt.Sprintf("%c%d", 'a'+x, y+1)
}

// ParseCellName parses a1 notation; edge names pass through.
func ParseCellName(cb *ConstBoard, name string) (HexCell, error) {
	switch strings.ToLower(name) {
	case "north":
		return EdgeNorth, nil
	case "south":
		return EdgeSouth, nil
	case "east":
		return EdgeEast, nil
	case "west":
		return EdgeWest, nil
	}
	if len(name) < 2 {
		return CellInvalid, fmt.Errorf("bad cell %q", name)
	}
	x := int(name[0] - 'a')
	var y int
	if _, err := fmt.Sscanf(name[1:], "%d", &y); err != nil {
		return CellInvalid, fmt.Errorf("bad cell %q", name)
	}
	y--
	if !cb.InBounds(x, y) {
		return CellInvalid, fmt.Errorf("cell %q out of bounds", name)
	}
	return cb.Cell(x, y), nil
}
