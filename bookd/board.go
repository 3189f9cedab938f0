package main

import (
	"fmt"
	"math/bits"
	"strings"
)

// Board is a reversi position from the side to move's point of view:
// Player holds the mover's discs, Opponent the other side's.
type Board struct {
	Player   uint64
	Opponent uint64
}

const (
	fileAMask  uint64 = 0x0101010101010101
	fileHMask  uint64 = 0x8080808080808080
	centerMask uint64 = 1<<27 | 1<<28 | 1<<35 | 1<<36
)

func InitialBoard() Board {
	// Black to move: black on d5/e4, white on d4/e5.
	return Board{
		Player:   1<<35 | 1<<28,
		Opponent: 1<<27 | 1<<36,
	}
}

type direction struct {
	shift int
	mask  uint64
}

var directions = [8]direction{
	{1, ^fileAMask},  // east
	{-1, ^fileHMask}, // west
	{8, ^uint64(0)},  // south (toward rank 8)
	{-8, ^uint64(0)}, // north
	{9, ^fileAMask},  // south-east
	{7, ^fileHMask},  // south-west
	{-7, ^fileAMask}, // north-east
	{-9, ^fileHMask}, // north-west
}

func shiftDir(b uint64, d direction) uint64 {
	if d.shift > 0 {
		return (b << uint(d.shift)) & d.mask
	}
	return (b >> uint(-d.shift)) & d.mask
}

// Moves returns the bitmap of legal squares for the side to move.
func (b Board) Moves() uint64 {
	empty := ^(b.Player | b.Opponent)
	var moves uint64
	for _, d := range directions {
		x := shiftDir(b.Player, d) & b.Opponent
		for i := 0; i < 5; i++ {
			x |= shiftDir(x, d) & b.Opponent
		}
		moves |= shiftDir(x, d) & empty
	}
	return moves
}

func (b Board) CanMove() bool {
	return b.Moves() != 0
}

func (b Board) OpponentCanMove() bool {
	return b.Pass().Moves() != 0
}

func (b Board) IsGameOver() bool {
	return !b.CanMove() && !b.OpponentCanMove()
}

// flips returns the discs turned over by playing sq, or 0 if sq is illegal.
func (b Board) flips(sq int) uint64 {
	bit := uint64(1) << uint(sq)
	if bit&(b.Player|b.Opponent) != 0 {
		return 0
	}
	var flipped uint64
	for _, d := range directions {
		f := uint64(0)
		c := shiftDir(bit, d)
		for c&b.Opponent != 0 {
			f |= c
			c = shiftDir(c, d)
		}
		if c&b.Player != 0 {
			flipped |= f
		}
	}
	return flipped
}

// Apply plays sq for the side to move and swaps sides. The second return is
// false when sq is not legal; the board is returned unchanged then.
func (b Board) Apply(sq int) (Board, bool) {
	if sq == Pass {
		if b.CanMove() || !b.OpponentCanMove() {
			return b, false
		}
		return b.Pass(), true
	}
	if sq < 0 || sq > 63 {
		return b, false
	}
	flipped := b.flips(sq)
	if flipped == 0 {
		return b, false
	}
	bit := uint64(1) << uint(sq)
	return Board{
		Player:   b.Opponent &^ flipped,
		Opponent: b.Player | flipped | bit,
	}, true
}

// Pass swaps the side to move without placing a disc.
func (b Board) Pass() Board {
	return Board{Player: b.Opponent, Opponent: b.Player}
}

func (b Board) Empties() int {
	return 64 - bits.OnesCount64(b.Player|b.Opponent)
}

// DiscDiff is the final score from the mover's point of view, with empties
// awarded to the winner as reversi scoring does.
func (b Board) DiscDiff() int {
	p := bits.OnesCount64(b.Player)
	o := bits.OnesCount64(b.Opponent)
	diff := p - o
	if diff > 0 {
		diff += b.Empties()
	} else if diff < 0 {
		diff -= b.Empties()
	}
	return diff
}

// String renders the 65-char text form: 64 squares ('X' mover, 'O' opponent,
// '-' empty) followed by the side-to-move char.
func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(65)
	for sq := 0; sq < 64; sq++ {
		bit := uint64(1) << uint(sq)
		switch {
		case b.Player&bit != 0:
			sb.WriteByte('X')
		case b.Opponent&bit != 0:
			sb.WriteByte('O')
		default:
			sb.WriteByte('-')
		}
	}
	sb.WriteByte('X')
	return sb.String()
}

// ParseBoard reads the 65-char text form. A trailing 'O' flips the point of
// view so Player always holds the mover's discs.
func ParseBoard(s string) (Board, error) {
	s = strings.TrimSpace(s)
	if len(s) != 65 {
		return Board{}, fmt.Errorf("board string must be 65 chars, got %d", len(s))
	}
	var b Board
	for sq := 0; sq < 64; sq++ {
		bit := uint64(1) << uint(sq)
		switch s[sq] {
		case 'X', 'x', '*', 'B', 'b':
			b.Player |= bit
		case 'O', 'o', 'W', 'w':
			b.Opponent |= bit
		case '-', '.':
		default:
			return Board{}, fmt.Errorf("bad square char %q at %d", s[sq], sq)
		}
	}
	switch s[64] {
	case 'X', 'x', '*', 'B', 'b':
	case 'O', 'o', 'W', 'w':
		b = b.Pass()
	default:
		return Board{}, fmt.Errorf("bad side-to-move char %q", s[64])
	}
	return b, nil
}

// Render draws the board as an 8x8 grid for show/debug output.
func (b Board) Render() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for y := 0; y < 8; y++ {
		fmt.Fprintf(&sb, "%d", y+1)
		for x := 0; x < 8; x++ {
			bit := uint64(1) << uint(y*8+x)
			switch {
			case b.Player&bit != 0:
				sb.WriteString(" X")
			case b.Opponent&bit != 0:
				sb.WriteString(" O")
			default:
				sb.WriteString(" -")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
