package main

import (
	"fmt"
	"math/bits"
	"strings"
)

// Square moves are 0..63 (a1=0, h8=63). Pass and NoMove are the two
// out-of-board sentinels carried by links and leaves.
const (
	Pass   = 64
	NoMove = 65
)

// ScoreInf bounds every book score; a link score of -ScoreInf marks the
// bad-link sentinel.
const ScoreInf = 127

func MoveString(sq int) string {
	switch {
	case sq == Pass:
		return "ps"
	case sq == NoMove:
		return "--"
	case sq < 0 || sq > 63:
		return "??"
	}
	return fmt.Sprintf("%c%d", 'a'+sq%8, sq/8+1)
}

func ParseMove(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "ps", "pa", "pass":
		return Pass, nil
	case "--", "":
		return NoMove, nil
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoMove, fmt.Errorf("bad move %q", s)
	}
	return int(s[1]-'1')*8 + int(s[0]-'a'), nil
}

// moveList expands a move bitmap into square indices, low squares first.
func moveList(moves uint64) []int {
	list := make([]int, 0, bits.OnesCount64(moves))
	for moves != 0 {
		sq := bits.TrailingZeros64(moves)
		list = append(list, sq)
		moves &= moves - 1
	}
	return list
}
