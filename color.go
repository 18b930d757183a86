package main

// HexColor is the closed set of values a cell can take. Edges belong to the
// color they bound, dead cells are neutral fill-in, and Border is returned
// for queries that fall outside the playing area.
type HexColor int8

const (
	Empty HexColor = iota
	Black
	White
	DeadColor
	Border
)

func (c HexColor) Valid() bool {
	return c >= Empty && c <= Border
}

func (c HexColor) IsStone() bool {
	return c == Black || c == White
}

func (c HexColor) Other() HexColor {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return c
}

func (c HexColor) String() string {
	switch c {
	case Empty:
		return "empty"
	case Black:
		return "black"
	case White:
		return "white"
	case DeadColor:
		return "dead"
	case Border:
		return "border"
	}
	return "invalid"
}

// BothColors is used anywhere a pass runs once per player.
var BothColors = [2]HexColor{Black, White}
