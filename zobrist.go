package main

import "sync"

type ZobristTable struct {
	cells [maxCells * 2]uint64
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[[2]int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[[2]int]*ZobristTable)}

func zobristFor(cb *ConstBoard) *ZobristTable {
	key := [2]int{cb.Width(), cb.Height()}
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[key]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^
		uint64(key[0])<<32 ^ uint64(key[1])}
	table := &ZobristTable{}
	for i := range table.cells {
		table.cells[i] = rng.next()
	}
	zobristTables.tables[key] = table
	return table
}

func (z *ZobristTable) stone(c HexCell, color HexColor) uint64 {
	idx := cellIndex(c) * 2
	if color == White {
		idx++
	}
	return z.cells[idx]
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
