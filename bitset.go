package main

import (
	"math/bits"
	"strings"
)

// bitsetWords*64 bits cover the largest supported board (13x13 interior
// cells plus the four edge sentinels).
const bitsetWords = 4

// Bitset is a fixed-width cell set. Value semantics: methods that mutate
// take a pointer receiver, set algebra returns new values.
type Bitset [bitsetWords]uint64

func (b *Bitset) Set(c HexCell) {
	b[c>>6] |= 1 << (uint(c) & 63)
}

func (b *Bitset) Reset(c HexCell) {
	b[c>>6] &^= 1 << (uint(c) & 63)
}

func (b Bitset) Test(c HexCell) bool {
	return b[c>>6]&(1<<(uint(c)&63)) != 0
}

func (b Bitset) Any() bool {
	for i := 0; i < bitsetWords; i++ {
		if b[i] != 0 {
			return true
		}
	}
	return false
}

func (b Bitset) None() bool {
	return !b.Any()
}

func (b Bitset) Count() int {
	n := 0
	for i := 0; i < bitsetWords; i++ {
		n += bits.OnesCount64(b[i])
	}
	return n
}

func (b Bitset) And(o Bitset) Bitset {
	var out Bitset
	for i := 0; i < bitsetWords; i++ {
		out[i] = b[i] & o[i]
	}
	return out
}

func (b Bitset) Or(o Bitset) Bitset {
	var out Bitset
	for i := 0; i < bitsetWords; i++ {
		out[i] = b[i] | o[i]
	}
	return out
}

func (b Bitset) Xor(o Bitset) Bitset {
	var out Bitset
	for i := 0; i < bitsetWords; i++ {
		out[i] = b[i] ^ o[i]
	}
	return out
}

// Minus returns the cells of b not in o.
func (b Bitset) Minus(o Bitset) Bitset {
	var out Bitset
	for i := 0; i < bitsetWords; i++ {
		out[i] = b[i] &^ o[i]
	}
	return out
}

func (b Bitset) Intersects(o Bitset) bool {
	for i := 0; i < bitsetWords; i++ {
		if b[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (b Bitset) SubsetOf(o Bitset) bool {
	for i := 0; i < bitsetWords; i++ {
		if b[i]&^o[i] != 0 {
			return false
		}
	}
	return true
}

func (b Bitset) Equal(o Bitset) bool {
	return b == o
}

// First returns the lowest set cell, or CellInvalid if empty.
func (b Bitset) First() HexCell {
	for i := 0; i < bitsetWords; i++ {
		if b[i] != 0 {
			return HexCell(i<<6 + bits.TrailingZeros64(b[i]))
		}
	}
	return CellInvalid
}

// Cells expands the set into a slice, lowest cell first.
func (b Bitset) Cells() []HexCell {
	out := make([]HexCell, 0, b.Count())
	for i := 0; i < bitsetWords; i++ {
		w := b[i]
		for w != 0 {
			out = append(out, HexCell(i<<6+bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
	return out
}

// ForEach visits every set cell, lowest first.
func (b Bitset) ForEach(fn func(HexCell)) {
	for i := 0; i < bitsetWords; i++ {
		w := b[i]
		for w != 0 {
			fn(HexCell(i<<6 + bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
}

func BitsetOf(cells ...HexCell) Bitset {
	var b Bitset
	for _, c := range cells {
		b.Set(c)
	}
	return b
}

func (b Bitset) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	b.ForEach(func(c HexCell) {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(c.String())
	})
	sb.WriteByte('}')
	return sb.String()
}
