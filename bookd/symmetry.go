package main

import "math/bits"

// The 8 board symmetries: identity, the two axis mirrors, the two diagonal
// mirrors and the three rotations, indexed 0..7. Index 1 is the horizontal
// mirror, 2 the vertical mirror, 4 the a1-h8 diagonal mirror; the rest are
// their compositions (index bits compose h, v, d in that order).

func mirrorHorizontal(b uint64) uint64 {
	b = ((b >> 1) & 0x5555555555555555) | ((b & 0x5555555555555555) << 1)
	b = ((b >> 2) & 0x3333333333333333) | ((b & 0x3333333333333333) << 2)
	b = ((b >> 4) & 0x0f0f0f0f0f0f0f0f) | ((b & 0x0f0f0f0f0f0f0f0f) << 4)
	return b
}

func mirrorVertical(b uint64) uint64 {
	return bits.ReverseBytes64(b)
}

func mirrorDiagonal(b uint64) uint64 {
	var t uint64
	t = (b ^ (b >> 7)) & 0x00aa00aa00aa00aa
	b ^= t ^ (t << 7)
	t = (b ^ (b >> 14)) & 0x0000cccc0000cccc
	b ^= t ^ (t << 14)
	t = (b ^ (b >> 28)) & 0x00000000f0f0f0f0
	b ^= t ^ (t << 28)
	return b
}

func transformBits(b uint64, sym int) uint64 {
	if sym&1 != 0 {
		b = mirrorHorizontal(b)
	}
	if sym&2 != 0 {
		b = mirrorVertical(b)
	}
	if sym&4 != 0 {
		b = mirrorDiagonal(b)
	}
	return b
}

func transformBoard(b Board, sym int) Board {
	return Board{
		Player:   transformBits(b.Player, sym),
		Opponent: transformBits(b.Opponent, sym),
	}
}

// TransformMove maps a square through symmetry sym. Pass and NoMove are
// fixed points.
func TransformMove(sq int, sym int) int {
	if sq < 0 || sq > 63 {
		return sq
	}
	return bits.TrailingZeros64(transformBits(uint64(1)<<uint(sq), sym))
}

// InverseSymmetry returns the symmetry that undoes sym.
func InverseSymmetry(sym int) int {
	// h, v and d are involutions; only the two compositions with all three
	// bits differ from their own inverse when d does not commute, but
	// applying h, v, d in a fixed order makes every index self-inverse
	// except 5 and 6, which swap.
	switch sym {
	case 5:
		return 6
	case 6:
		return 5
	}
	return sym
}

// Canonicalize returns the lexicographically smallest symmetry variant of b
// (comparing Player then Opponent) and the symmetry index that produced it.
func Canonicalize(b Board) (Board, int) {
	best := b
	bestSym := 0
	for sym := 1; sym < 8; sym++ {
		t := transformBoard(b, sym)
		if t.Player < best.Player || (t.Player == best.Player && t.Opponent < best.Opponent) {
			best = t
			bestSym = sym
		}
	}
	return best, bestSym
}

// IsCanonical reports whether b is its own canonical representative.
func IsCanonical(b Board) bool {
	c, _ := Canonicalize(b)
	return c == b
}
