package main

// VulnerableKiller is one independent proof that a cell is vulnerable: the
// killer move plus the carrier supporting it.
type VulnerableKiller struct {
	Killer  HexCell
	Carrier Bitset
}

func colorIdx(c HexColor) int {
	if c == White {
		return 1
	}
	return 0
}

// InferiorCells collects everything the inference engine proves about the
// current position. It has value semantics via Clone so the board
// container can snapshot it onto the history stack.
type InferiorCells struct {
	dead           Bitset
	captured       [2]Bitset
	permInf        [2]Bitset
	permInfCarrier [2]Bitset
	vulnerable     map[HexCell][]VulnerableKiller
	reversible     map[HexCell]HexCell
	dominated      map[HexCell]HexCell
}

func NewInferiorCells() InferiorCells {
	var inf InferiorCells
	inf.Clear()
	return inf
}

func (inf *InferiorCells) Clear() {
	inf.dead = Bitset{}
	inf.captured = [2]Bitset{}
	inf.permInf = [2]Bitset{}
	inf.permInfCarrier = [2]Bitset{}
	inf.vulnerable = make(map[HexCell][]VulnerableKiller)
	inf.reversible = make(map[HexCell]HexCell)
	inf.dominated = make(map[HexCell]HexCell)
}

func (inf InferiorCells) Clone() InferiorCells {
	out := inf
	out.vulnerable = make(map[HexCell][]VulnerableKiller, len(inf.vulnerable))
	for c, ks := range inf.vulnerable {
		out.vulnerable[c] = append([]VulnerableKiller(nil), ks...)
	}
	out.reversible = make(map[HexCell]HexCell, len(inf.reversible))
	for c, r := range inf.reversible {
		out.reversible[c] = r
	}
	out.dominated = make(map[HexCell]HexCell, len(inf.dominated))
	for c, d := range inf.dominated {
		out.dominated[c] = d
	}
	return out
}

func (inf *InferiorCells) Dead() Bitset { return inf.dead }

func (inf *InferiorCells) Captured(c HexColor) Bitset {
	return inf.captured[colorIdx(c)]
}

func (inf *InferiorCells) PermInf(c HexColor) Bitset {
	return inf.permInf[colorIdx(c)]
}

func (inf *InferiorCells) PermInfCarrier(c HexColor) Bitset {
	return inf.permInfCarrier[colorIdx(c)]
}

func (inf *InferiorCells) Vulnerable() Bitset {
	var out Bitset
	for c := range inf.vulnerable {
		out.Set(c)
	}
	return out
}

func (inf *InferiorCells) Killers(c HexCell) []VulnerableKiller {
	return inf.vulnerable[c]
}

func (inf *InferiorCells) Reversible() Bitset {
	var out Bitset
	for c := range inf.reversible {
		out.Set(c)
	}
	return out
}

func (inf *InferiorCells) Reverser(c HexCell) (HexCell, bool) {
	r, ok := inf.reversible[c]
	return r, ok
}

func (inf *InferiorCells) Dominated() Bitset {
	var out Bitset
	for c := range inf.dominated {
		out.Set(c)
	}
	return out
}

func (inf *InferiorCells) Dominator(c HexCell) (HexCell, bool) {
	d, ok := inf.dominated[c]
	return d, ok
}

// Fillin returns the cells the engine proved best filled for color.
func (inf *InferiorCells) Fillin(c HexColor) Bitset {
	i := colorIdx(c)
	return inf.captured[i].Or(inf.permInf[i])
}

func (inf *InferiorCells) AddDead(cells Bitset) {
	inf.dead = inf.dead.Or(cells)
}

func (inf *InferiorCells) AddCaptured(c HexColor, cells Bitset) {
	inf.captured[colorIdx(c)] = inf.captured[colorIdx(c)].Or(cells)
}

func (inf *InferiorCells) AddPermInf(c HexColor, cells, carrier Bitset) {
	i := colorIdx(c)
	inf.permInf[i] = inf.permInf[i].Or(cells)
	inf.permInfCarrier[i] = inf.permInfCarrier[i].Or(carrier)
}

func (inf *InferiorCells) AddVulnerable(c HexCell, k VulnerableKiller) {
	inf.vulnerable[c] = append(inf.vulnerable[c], k)
}

func (inf *InferiorCells) AddReversible(c, reverser HexCell) {
	if _, ok := inf.reversible[c]; !ok {
		inf.reversible[c] = reverser
	}
}

func (inf *InferiorCells) AddDominated(c, dominator HexCell) {
	if _, ok := inf.dominated[c]; !ok {
		inf.dominated[c] = dominator
	}
}

func (inf *InferiorCells) ClearVulnerable() {
	inf.vulnerable = make(map[HexCell][]VulnerableKiller)
}

func (inf *InferiorCells) ClearReversible() {
	inf.reversible = make(map[HexCell]HexCell)
}

func (inf *InferiorCells) ClearDominated() {
	inf.dominated = make(map[HexCell]HexCell)
}

// All returns every cell with any classification.
func (inf *InferiorCells) All() Bitset {
	out := inf.dead
	for i := 0; i < 2; i++ {
		out = out.Or(inf.captured[i]).Or(inf.permInf[i])
	}
	return out.Or(inf.Vulnerable()).Or(inf.Reversible()).Or(inf.Dominated())
}

// FindPresimplicialPairs finds pairs of cells that are vulnerable to each
// other with no outside carrier. Either player filling one of the pair
// leaves the other dead, so the pair is captured.
func (inf *InferiorCells) FindPresimplicialPairs() Bitset {
	var captured Bitset
	killsBare := func(victim, killer HexCell) bool {
		for _, k := range inf.vulnerable[victim] {
			if k.Killer != killer {
				continue
			}
			pair := BitsetOf(victim, killer)
			if k.Carrier.Minus(pair).None() {
				return true
			}
		}
		return false
	}
	for a, killers := range inf.vulnerable {
		if captured.Test(a) {
			continue
		}
		for _, k := range killers {
			b := k.Killer
			if captured.Test(b) {
				continue
			}
			if killsBare(a, b) && killsBare(b, a) {
				captured.Set(a)
				captured.Set(b)
				break
			}
		}
	}
	return captured
}

// RemoveDominatedCycles drops domination arcs that would erase both ends
// of a mutual pair, keeping the lower cell of each cycle playable.
func (inf *InferiorCells) RemoveDominatedCycles() {
	for c, d := range inf.dominated {
		if back, ok := inf.dominated[d]; ok && back == c && c < d {
			delete(inf.dominated, c)
		}
	}
}
