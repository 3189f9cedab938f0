package main

import (
	"math/bits"
	"sync"
)

// Board hashing uses zobrist keys seeded from splitmix64, one key per
// (square, disc owner). Keys are built once and shared.

type ZobristTable struct {
	player   [64]uint64
	opponent [64]uint64
}

var (
	zobristOnce  sync.Once
	zobristTable *ZobristTable
)

func getZobrist() *ZobristTable {
	zobristOnce.Do(func() {
		rng := splitmix64{state: 0x9e3779b97f4a7c15}
		table := &ZobristTable{}
		for i := 0; i < 64; i++ {
			table.player[i] = rng.next()
			table.opponent[i] = rng.next()
		}
		zobristTable = table
	})
	return zobristTable
}

// HashBoard computes the 64-bit code of a board. Callers hash the canonical
// representative so all symmetry variants share one bucket.
func HashBoard(b Board) uint64 {
	z := getZobrist()
	var hash uint64
	p := b.Player
	for p != 0 {
		hash ^= z.player[bits.TrailingZeros64(p)]
		p &= p - 1
	}
	o := b.Opponent
	for o != 0 {
		hash ^= z.opponent[bits.TrailingZeros64(o)]
		o &= o - 1
	}
	return hash
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
