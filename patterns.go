package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// PatternCategory selects which classification a pattern proves.
type PatternCategory int

const (
	CatDead PatternCategory = iota
	CatCaptured
	CatPermInf
	CatVulnerable
	CatReversible
	CatDominated
)

var categoryNames = map[string]PatternCategory{
	"dead":       CatDead,
	"captured":   CatCaptured,
	"perminf":    CatPermInf,
	"vulnerable": CatVulnerable,
	"reversible": CatReversible,
	"dominated":  CatDominated,
}

// MatchMode trades completeness for cost, per category.
type MatchMode int

const (
	StopAtFirstHit MatchMode = iota
	MatchAll
)

// PatternHit is one successful match: the primary partner cell
// (killer/reverser/dominator, CellInvalid when the category has none) and
// the secondary carrier.
type PatternHit struct {
	Name     string
	Response HexCell
	Carrier  Bitset
}

// Patterns are defined on the radius-1 ring around the candidate cell,
// from Black's perspective. Constraints per ring position: '.' empty,
// 'B' black stone or black edge, 'W' white stone or white edge, '*' any.
// sym "rot2" generates the two board rotations; "rot6" additionally
// generates all six ring shifts and is only valid for patterns whose
// proof is a pure adjacency argument.
type sourcePattern struct {
	name     string
	category PatternCategory
	sym      string
	ring     [6]byte
	response int
	carrier  []int
	verify   string
}

type compiledPattern struct {
	name     string
	response int
	carrier  []int
	verify   verifyFunc
}

type verifyFunc func(b *StoneBoard, color HexColor, cell HexCell, hit *PatternHit) bool

type patKey struct {
	cat   PatternCategory
	color HexColor
}

// PatternLibrary is the pattern-matching collaborator: hashed ring lookup
// by category and color plus the hand-coded corner shapes. Built once at
// engine construction and shared by reference; never mutated afterwards.
type PatternLibrary struct {
	byKey map[patKey]map[uint16][]*compiledPattern
	count int
}

// The built-in set keeps only patterns with a rotation-independent
// adjacency proof: the sandwich dead cell (four consecutive friendly
// neighbours leave the remaining two adjacent to each other) and the
// standard captured pair.
const builtinPatternsText = `
# name        category  sym   ring    response carrier verify
dead-sandwich dead      rot6  BBBB**  -        -       -
capture-pair  captured  rot6  BBBBB.  -        5       capture-pair
`

var patternVerifiers = map[string]verifyFunc{
	"capture-pair": verifyCapturePair,
}

// verifyCapturePair checks the partner cell of the pair: all of its
// neighbours apart from the candidate must be the capturing color.
func verifyCapturePair(b *StoneBoard, color HexColor, cell HexCell, hit *PatternHit) bool {
	q := hit.Carrier.First()
	if q == CellInvalid {
		return false
	}
	ok := true
	b.Const().Nbs(q).ForEach(func(n HexCell) {
		if n == cell {
			return
		}
		if b.ColorAt(n) != color {
			ok = false
		}
	})
	return ok
}

// NewPatternLibrary compiles the built-in patterns and, when path is
// non-empty, merges patterns from the file. Any load failure degrades to
// whatever was parsed so far (possibly zero patterns) with a warning;
// pattern loading is never fatal.
func NewPatternLibrary(path string) *PatternLibrary {
	lib := &PatternLibrary{byKey: make(map[patKey]map[uint16][]*compiledPattern)}
	if err := lib.loadText(strings.NewReader(builtinPatternsText)); err != nil {
		logrus.WithError(err).Warn("pattern library: built-in patterns rejected, running with zero patterns")
		lib.byKey = make(map[patKey]map[uint16][]*compiledPattern)
		lib.count = 0
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			logrus.WithError(err).WithField("path", path).
				Warn("pattern library: extra pattern file not loaded")
		} else {
			defer file.Close()
			if err := lib.loadText(file); err != nil {
				logrus.WithError(err).WithField("path", path).
					Warn("pattern library: extra pattern file rejected")
			}
		}
	}
	logrus.WithField("patterns", lib.count).Debug("pattern library loaded")
	return lib
}

func (lib *PatternLibrary) Size() int { return lib.count }

func (lib *PatternLibrary) loadText(r interface{ Read([]byte) (int, error) }) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		src, err := parsePatternLine(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		lib.addPattern(src)
	}
	return scanner.Err()
}

func parsePatternLine(text string) (sourcePattern, error) {
	fields := strings.Fields(text)
	if len(fields) < 6 {
		return sourcePattern{}, fmt.Errorf("expected 6+ fields, got %d", len(fields))
	}
	var src sourcePattern
	src.name = fields[0]
	cat, ok := categoryNames[fields[1]]
	if !ok {
		return sourcePattern{}, fmt.Errorf("unknown category %q", fields[1])
	}
	src.category = cat
	src.sym = fields[2]
	if src.sym != "rot2" && src.sym != "rot6" {
		return sourcePattern{}, fmt.Errorf("unknown symmetry %q", src.sym)
	}
	if len(fields[3]) != 6 {
		return sourcePattern{}, fmt.Errorf("ring %q must have 6 positions", fields[3])
	}
	for i := 0; i < 6; i++ {
		ch := fields[3][i]
		if ch != '.' && ch != 'B' && ch != 'W' && ch != '*' {
			return sourcePattern{}, fmt.Errorf("bad ring char %q", ch)
		}
		src.ring[i] = ch
	}
	src.response = -1
	if fields[4] != "-" {
		idx, err := strconv.Atoi(fields[4])
		if err != nil || idx < 0 || idx > 5 {
			return sourcePattern{}, fmt.Errorf("bad response %q", fields[4])
		}
		if src.ring[idx] != '.' {
			return sourcePattern{}, fmt.Errorf("response position %d must be empty", idx)
		}
		src.response = idx
	}
	if fields[5] != "-" {
		for _, part := range strings.Split(fields[5], ",") {
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx > 5 {
				return sourcePattern{}, fmt.Errorf("bad carrier index %q", part)
			}
			if src.ring[idx] != '.' {
				return sourcePattern{}, fmt.Errorf("carrier position %d must be empty", idx)
			}
			src.carrier = append(src.carrier, idx)
		}
	}
	if len(fields) >= 7 && fields[6] != "-" {
		if _, ok := patternVerifiers[fields[6]]; !ok {
			return sourcePattern{}, fmt.Errorf("unknown verifier %q", fields[6])
		}
		src.verify = fields[6]
	}
	return src, nil
}

// addPattern compiles a source pattern into hashed entries for both
// colors. White variants are the mirror (ring reversal) with colors
// flipped, matching how the square-board shapes are tested for the
// second color.
func (lib *PatternLibrary) addPattern(src sourcePattern) {
	shifts := []int{0, 3}
	if src.sym == "rot6" {
		shifts = []int{0, 1, 2, 3, 4, 5}
	}
	for _, color := range BothColors {
		for _, shift := range shifts {
			lib.addVariant(src, color, shift)
		}
	}
	lib.count++
}

func (lib *PatternLibrary) addVariant(src sourcePattern, color HexColor, shift int) {
	transform := func(i int) int {
		if color == White {
			i = 5 - i
		}
		return (i + shift) % 6
	}
	var ring [6]byte
	for i := range ring {
		ring[i] = '*'
	}
	for i := 0; i < 6; i++ {
		ch := src.ring[i]
		if color == White {
			switch ch {
			case 'B':
				ch = 'W'
			case 'W':
				ch = 'B'
			}
		}
		ring[transform(i)] = ch
	}
	cp := &compiledPattern{name: src.name, response: -1}
	if src.response >= 0 {
		cp.response = transform(src.response)
	}
	for _, idx := range src.carrier {
		cp.carrier = append(cp.carrier, transform(idx))
	}
	if src.verify != "" {
		cp.verify = patternVerifiers[src.verify]
	}

	key := patKey{cat: src.category, color: color}
	table := lib.byKey[key]
	if table == nil {
		table = make(map[uint16][]*compiledPattern)
		lib.byKey[key] = table
	}
	enumerateRingCodes(ring, func(code uint16) {
		table[code] = append(table[code], cp)
	})
}

// Ring digits: 0 empty, 1 black, 2 white, 3 dead. Edges carry the digit
// of their owning color.
func ringDigit(c HexColor) uint16 {
	switch c {
	case Black:
		return 1
	case White:
		return 2
	case DeadColor:
		return 3
	}
	return 0
}

func enumerateRingCodes(ring [6]byte, emit func(uint16)) {
	var rec func(pos int, code uint16)
	rec = func(pos int, code uint16) {
		if pos == 6 {
			emit(code)
			return
		}
		mult := uint16(1)
		for i := 0; i < pos; i++ {
			mult *= 4
		}
		switch ring[pos] {
		case '.':
			rec(pos+1, code)
		case 'B':
			rec(pos+1, code+1*mult)
		case 'W':
			rec(pos+1, code+2*mult)
		default: // '*'
			for d := uint16(0); d < 4; d++ {
				rec(pos+1, code+d*mult)
			}
		}
	}
	rec(0, 0)
}

// ringCells resolves the six ring positions around an interior cell.
// Off-board positions resolve to the bounding edge, rows first.
func ringCells(cb *ConstBoard, c HexCell) [6]HexCell {
	var out [6]HexCell
	x, y := cb.Coords(c)
	for i, d := range hexDirs {
		nx, ny := x+d[0], y+d[1]
		switch {
		case cb.InBounds(nx, ny):
			out[i] = cb.Cell(nx, ny)
		case ny < 0:
			out[i] = EdgeNorth
		case ny >= cb.Height():
			out[i] = EdgeSouth
		case nx < 0:
			out[i] = EdgeWest
		default:
			out[i] = EdgeEast
		}
	}
	return out
}

func ringCode(b *StoneBoard, cells [6]HexCell) uint16 {
	var code, mult uint16
	mult = 1
	for i := 0; i < 6; i++ {
		code += ringDigit(b.ColorAt(cells[i])) * mult
		mult *= 4
	}
	return code
}

// MatchCell returns the pattern hits of one category/color at a cell.
func (lib *PatternLibrary) MatchCell(b *StoneBoard, cat PatternCategory,
	color HexColor, cell HexCell, mode MatchMode) []PatternHit {

	table := lib.byKey[patKey{cat: cat, color: color}]
	if table == nil {
		return nil
	}
	ring := ringCells(b.Const(), cell)
	candidates := table[ringCode(b, ring)]
	if len(candidates) == 0 {
		return nil
	}
	var hits []PatternHit
	for _, cp := range candidates {
		hit := PatternHit{Name: cp.name, Response: CellInvalid}
		if cp.response >= 0 {
			hit.Response = ring[cp.response]
		}
		for _, idx := range cp.carrier {
			hit.Carrier.Set(ring[idx])
		}
		if cp.verify != nil && !cp.verify(b, color, cell, &hit) {
			continue
		}
		hits = append(hits, hit)
		if mode == StopAtFirstHit {
			break
		}
	}
	return hits
}

// MatchBoard matches every considered cell, returning the matched set and
// the hits per cell.
func (lib *PatternLibrary) MatchBoard(b *StoneBoard, cat PatternCategory,
	color HexColor, consider Bitset, mode MatchMode) (Bitset, map[HexCell][]PatternHit) {

	var matched Bitset
	hits := make(map[HexCell][]PatternHit)
	consider.ForEach(func(c HexCell) {
		if h := lib.MatchCell(b, cat, color, c, mode); len(h) > 0 {
			matched.Set(c)
			hits[c] = h
		}
	})
	return matched, hits
}
