package main

import (
	"fmt"
	"math/bits"
)

// Link is a scored edge to a child position reached by Move; the child is
// guaranteed to be in the store. Score is from the parent mover's point of
// view (already negated).
type Link struct {
	Score int8
	Move  uint8
}

func badLink() Link {
	return Link{Score: -ScoreInf, Move: NoMove}
}

func (l Link) IsBad() bool {
	return l.Score == -ScoreInf && l.Move == NoMove
}

// Score holds the best known value of a position and its negamaxed
// confidence interval; Lower <= Value <= Upper always holds after
// propagation.
type Score struct {
	Value int16
	Lower int16
	Upper int16
}

// Position is one stored node of the book graph. Board is always the
// canonical symmetry representative. Links point at children already in the
// store; Leaf is the best move not yet expanded, found by direct search.
type Position struct {
	Board Board
	Links []Link
	Leaf  Link
	Score Score

	// Game-outcome statistics aggregated over fully-solved lines.
	// StatsKnown is false until a negamax pass has filled them in.
	Wins       uint32
	Draws      uint32
	Losses     uint32
	Lines      uint32
	StatsKnown bool

	Level uint8
}

func NewPosition(board Board, level int) *Position {
	return &Position{
		Board: board,
		Leaf:  badLink(),
		Level: uint8(level),
	}
}

// addLink records a scored edge, updating in place when the move is already
// linked. If the move was the current leaf, the leaf slot is cleared so the
// evaluator can refresh it.
func (p *Position) addLink(link Link) {
	for i := range p.Links {
		if p.Links[i].Move == link.Move {
			p.Links[i].Score = link.Score
			return
		}
	}
	p.Links = appendLink(p.Links, link)
	if p.Leaf.Move == link.Move {
		p.Leaf = badLink()
	}
}

// appendLink grows the link array by 50% (minimum one slot) when full,
// mirroring the store's bucket growth policy.
func appendLink(links []Link, link Link) []Link {
	if len(links) == cap(links) {
		grown := make([]Link, len(links), growCapacity(cap(links)))
		copy(grown, links)
		links = grown
	}
	return append(links, link)
}

func growCapacity(c int) int {
	n := c + c/2
	if n <= c {
		n = c + 1
	}
	return n
}

func (p *Position) findLink(move uint8) (Link, bool) {
	for _, l := range p.Links {
		if l.Move == move {
			return l, true
		}
	}
	return Link{}, false
}

func (p *Position) removeLink(move uint8) bool {
	for i := range p.Links {
		if p.Links[i].Move == move {
			p.Links = append(p.Links[:i], p.Links[i+1:]...)
			return true
		}
	}
	return false
}

// Check validates the stored invariants; it returns the first violation
// found, or nil. Fixable corruption is repaired by Book.Fix, not here.
func (p *Position) Check() error {
	b := p.Board
	if b.Player&b.Opponent != 0 {
		return fmt.Errorf("overlapping discs")
	}
	if (b.Player|b.Opponent)&centerMask != centerMask {
		return fmt.Errorf("center squares not all occupied")
	}
	if !IsCanonical(b) {
		return fmt.Errorf("board is not the canonical symmetry representative")
	}
	moves := b.Moves()
	var seen uint64
	for _, l := range p.Links {
		if l.Move == Pass {
			// A pass link is only valid when passing is forced, and it is
			// then the sole link.
			if moves != 0 || len(p.Links) != 1 || !b.OpponentCanMove() {
				return fmt.Errorf("pass link on a position with moves")
			}
			continue
		}
		if l.Move >= 64 {
			return fmt.Errorf("link move %s out of board", MoveString(int(l.Move)))
		}
		bit := uint64(1) << l.Move
		if moves&bit == 0 {
			return fmt.Errorf("link move %s is illegal", MoveString(int(l.Move)))
		}
		if seen&bit != 0 {
			return fmt.Errorf("duplicate link move %s", MoveString(int(l.Move)))
		}
		seen |= bit
	}
	switch {
	case p.Leaf.IsBad():
	case p.Leaf.Move == Pass:
		if moves != 0 || len(p.Links) > 0 || !b.OpponentCanMove() {
			return fmt.Errorf("pass leaf on a position with moves or links")
		}
	case p.Leaf.Move == NoMove:
		// Terminal leaf: holds the final score of a finished game.
		if !b.IsGameOver() {
			return fmt.Errorf("terminal leaf on an unfinished position")
		}
	case p.Leaf.Move < 64:
		bit := uint64(1) << p.Leaf.Move
		if moves&bit == 0 {
			return fmt.Errorf("leaf move %s is illegal", MoveString(int(p.Leaf.Move)))
		}
		if seen&bit != 0 {
			return fmt.Errorf("leaf move %s duplicates a link", MoveString(int(p.Leaf.Move)))
		}
	default:
		return fmt.Errorf("leaf move %d out of range", p.Leaf.Move)
	}
	return nil
}

// legalMoveCount counts the moves the link resolver is expected to cover.
func (p *Position) legalMoveCount() int {
	return bits.OnesCount64(p.Board.Moves())
}

// BestMove picks the highest-scored option among links and leaf, links
// winning ties. The returned move is on the canonical board.
func (p *Position) BestMove() (move int, score int, ok bool) {
	move, score, ok = NoMove, -ScoreInf-1, false
	for _, l := range p.Links {
		if int(l.Score) > score {
			move, score, ok = int(l.Move), int(l.Score), true
		}
	}
	if !p.Leaf.IsBad() && int(p.Leaf.Score) > score {
		move, score, ok = int(p.Leaf.Move), int(p.Leaf.Score), true
	}
	return move, score, ok
}
