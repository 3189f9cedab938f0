package main

import "math/bits"

// Search is the synchronous searcher the leaf evaluator drives. It is
// configured with SetBoard/SetLevel, optionally told to skip already-linked
// moves with Exclude, then Run blocks until the best remaining move is
// found. Scores are in discs, mover's point of view.
type Search struct {
	board    Board
	settings SearchSettings
	excluded uint64
	nodes    uint64
}

type SearchResult struct {
	Move  int
	Score int
	Depth int
	Exact bool
	Nodes uint64
}

func NewSearch() *Search {
	return &Search{}
}

func (s *Search) SetBoard(b Board) {
	s.board = b
	s.excluded = 0
}

func (s *Search) SetLevel(level, empties int) {
	s.settings = LevelSettings(level, empties)
}

// Exclude removes a root move from consideration; repeatable.
func (s *Search) Exclude(sq int) {
	if sq >= 0 && sq < 64 {
		s.excluded |= uint64(1) << uint(sq)
	}
}

// Run searches the configured board and returns the best non-excluded move.
// A game-over board yields {NoMove, final score}; a forced pass yields
// {Pass, -score of the opponent position}.
func (s *Search) Run() SearchResult {
	s.nodes = 0
	b := s.board
	depth := s.settings.Depth
	if depth < 1 {
		depth = 1
	}
	moves := b.Moves() &^ s.excluded
	if moves == 0 {
		if b.Moves() != 0 {
			// Every legal move is excluded: nothing left to find.
			return SearchResult{Move: NoMove, Score: -ScoreInf, Nodes: s.nodes}
		}
		if !b.OpponentCanMove() {
			return SearchResult{
				Move:  NoMove,
				Score: b.DiscDiff(),
				Exact: true,
				Nodes: s.nodes,
			}
		}
		score := -s.alphabeta(b.Pass(), depth, -ScoreInf, ScoreInf)
		return SearchResult{
			Move:  Pass,
			Score: score,
			Depth: depth,
			Exact: s.settings.Endgame && s.settings.Exact,
			Nodes: s.nodes,
		}
	}
	bestMove := NoMove
	bestScore := -ScoreInf
	alpha := -ScoreInf
	for _, sq := range orderedMoves(moves) {
		child, ok := b.Apply(sq)
		if !ok {
			continue
		}
		score := -s.alphabeta(child, depth-1, -ScoreInf, -alpha)
		if score > bestScore {
			bestScore = score
			bestMove = sq
			if score > alpha {
				alpha = score
			}
		}
	}
	return SearchResult{
		Move:  bestMove,
		Score: bestScore,
		Depth: depth,
		Exact: s.settings.Endgame && s.settings.Exact,
		Nodes: s.nodes,
	}
}

func (s *Search) alphabeta(b Board, depth int, alpha, beta int) int {
	s.nodes++
	moves := b.Moves()
	if moves == 0 {
		if !b.OpponentCanMove() {
			return b.DiscDiff()
		}
		return -s.alphabeta(b.Pass(), depth, -beta, -alpha)
	}
	if depth <= 0 {
		if b.Empties() == 0 {
			return b.DiscDiff()
		}
		return evaluate(b)
	}
	best := -ScoreInf
	for _, sq := range orderedMoves(moves) {
		child, _ := b.Apply(sq)
		score := -s.alphabeta(child, depth-1, -beta, -alpha)
		if score > best {
			best = score
			if score > alpha {
				alpha = score
				if alpha >= beta {
					break
				}
			}
		}
	}
	return best
}

// Square weights favor corners and punish the squares that give them away.
var squareWeights = [64]int{
	18, -4, 5, 3, 3, 5, -4, 18,
	-4, -6, -2, -2, -2, -2, -6, -4,
	5, -2, 1, 0, 0, 1, -2, 5,
	3, -2, 0, 0, 0, 0, -2, 3,
	3, -2, 0, 0, 0, 0, -2, 3,
	5, -2, 1, 0, 0, 1, -2, 5,
	-4, -6, -2, -2, -2, -2, -6, -4,
	18, -4, 5, 3, 3, 5, -4, 18,
}

// evaluate scores a midgame board in discs: square weights plus a mobility
// term, clamped inside the provable range.
func evaluate(b Board) int {
	score := 0
	p := b.Player
	for p != 0 {
		score += squareWeights[bits.TrailingZeros64(p)]
		p &= p - 1
	}
	o := b.Opponent
	for o != 0 {
		score -= squareWeights[bits.TrailingZeros64(o)]
		o &= o - 1
	}
	mobility := bits.OnesCount64(b.Moves()) - bits.OnesCount64(b.Pass().Moves())
	score = score/4 + mobility
	if score > 63 {
		score = 63
	} else if score < -63 {
		score = -63
	}
	return score
}

// orderedMoves sorts a move bitmap by static square weight, best first.
func orderedMoves(moves uint64) []int {
	list := moveList(moves)
	for i := 1; i < len(list); i++ {
		sq := list[i]
		j := i
		for j > 0 && squareWeights[list[j-1]] < squareWeights[sq] {
			list[j] = list[j-1]
			j--
		}
		list[j] = sq
	}
	return list
}
