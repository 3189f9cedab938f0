package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
)

var errPositionNotFound = errors.New("position not in book")

// Book is the opening-book graph engine: a store of analyzed positions
// linked by scored moves, grown by the selectors in grow.go and persisted
// by persist.go. The engine itself is single-threaded; wrap it in a
// BookController when serving concurrent readers.
type Book struct {
	store *PositionStore
	root  Board

	level        int
	nEmpties     int
	midgameError int
	endcutError  int

	search  *Search
	log     *log.Logger
	metrics *bookMetrics
}

// NewBook creates an empty book of the given strength and stores the
// initial position.
func NewBook(level, nEmpties int, logger *log.Logger) *Book {
	bk := emptyBook(level, nEmpties, logger)
	bk.AddPosition(bk.root)
	bk.Negamax()
	return bk
}

func emptyBook(level, nEmpties int, logger *log.Logger) *Book {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	config := GetConfig()
	root, _ := Canonicalize(InitialBoard())
	return &Book{
		store:        NewPositionStore(config.ExpectedBookNodes),
		root:         root,
		level:        level,
		nEmpties:     nEmpties,
		midgameError: config.MidgameError,
		endcutError:  config.EndcutError,
		search:       NewSearch(),
		log:          logger,
	}
}

func (bk *Book) SetMetrics(m *bookMetrics) {
	bk.metrics = m
}

func (bk *Book) Level() int    { return bk.level }
func (bk *Book) NEmpties() int { return bk.nEmpties }
func (bk *Book) Count() int    { return bk.store.Count() }

func (bk *Book) Root() *Position {
	return bk.store.ProbeCanonical(bk.root)
}

// Probe finds the stored position for any orientation of board, together
// with the symmetry that maps the query onto the stored canonical board.
func (bk *Book) Probe(board Board) (*Position, int) {
	return bk.store.Probe(board)
}

// child resolves the stored position reached from p by move (a square or
// Pass). Returns nil when the child is not in the store.
func (bk *Book) child(p *Position, move uint8) *Position {
	next, ok := p.Board.Apply(int(move))
	if !ok {
		return nil
	}
	c, _ := bk.store.Probe(next)
	return c
}

// Link resolves p's edges: every legal move (or the forced pass) whose
// resulting position is stored becomes a link scored by the child's value.
func (bk *Book) Link(p *Position) {
	moves := p.Board.Moves()
	if moves == 0 && p.Board.OpponentCanMove() {
		if c, _ := bk.store.Probe(p.Board.Pass()); c != nil {
			p.addLink(Link{Score: int8(clampScore(-int(c.Score.Value))), Move: Pass})
		}
		return
	}
	for _, sq := range moveList(moves) {
		next, _ := p.Board.Apply(sq)
		c, _ := bk.store.Probe(next)
		if c == nil {
			continue
		}
		p.addLink(Link{Score: int8(clampScore(-int(c.Score.Value))), Move: uint8(sq)})
	}
}

// Evaluate fills the leaf slot when unexplored moves remain, searching at
// the position's level with the linked moves excluded. Time budget is
// move-exclusive: the search runs to completion.
func (bk *Book) Evaluate(p *Position) {
	n := p.legalMoveCount()
	needSearch := len(p.Links) < n || (n == 0 && len(p.Links) == 0 && p.Leaf.IsBad())
	if !needSearch {
		return
	}
	s := bk.search
	s.SetBoard(p.Board)
	s.SetLevel(int(p.Level), p.Board.Empties())
	for _, l := range p.Links {
		s.Exclude(int(l.Move))
	}
	result := s.Run()
	bk.metrics.leafSearched()
	if result.Move == NoMove && result.Score == -ScoreInf && n > 0 {
		// All legal moves already linked; nothing for the leaf.
		p.Leaf = badLink()
		return
	}
	p.Leaf = Link{Score: int8(clampScore(result.Score)), Move: uint8(result.Move)}
	if int16(result.Score) > p.Score.Value {
		p.Score.Value = int16(clampScore(result.Score))
	}
}

// AddPosition canonicalizes the board and stores a fresh, linked and
// evaluated position for it. Boards above the book height (fewer empties
// than configured) are rejected. Returns the stored position either way.
func (bk *Book) AddPosition(board Board) *Position {
	canonical, _ := Canonicalize(board)
	if p := bk.store.ProbeCanonical(canonical); p != nil {
		return p
	}
	if canonical.Empties() < bk.nEmpties {
		return nil
	}
	p := NewPosition(canonical, bk.level)
	bk.Link(p)
	bk.Evaluate(p)
	bk.store.Insert(p)
	bk.metrics.positionAdded(bk.store.Count())
	return p
}

// Negamax re-propagates scores, bounds and statistics over the whole
// graph. Every stored position is used as an entry point so disconnected
// components (after subtree operations) stay consistent; memoization makes
// this a single pass.
func (bk *Book) Negamax() {
	t := newTraversal()
	for _, p := range bk.store.All() {
		bk.negamaxPosition(t, p)
	}
}

// negamaxPosition is a post-order pass: children first, then fold each
// link's negated value and swapped bounds into the parent. Sound on this
// graph because disc count strictly increases per move, so it is a DAG.
func (bk *Book) negamaxPosition(t *traversal, p *Position) {
	if t.done[p] {
		return
	}
	t.done[p] = true

	value, lower, upper := -ScoreInf, -ScoreInf, -ScoreInf
	var wins, draws, losses, lines uint32

	if !p.Leaf.IsBad() {
		v := int(p.Leaf.Score)
		value = v
		if p.Leaf.Move == NoMove {
			// Terminal leaf: the game is over, the score is exact.
			lower, upper = v, v
			wins, draws, losses, lines = outcomeCounts(v)
		} else {
			settings := LevelSettings(int(p.Level), p.Board.Empties())
			lower, upper = errorBounds(v, settings, p.Board.Empties(), bk.midgameError, bk.endcutError)
			if settings.Endgame && settings.Exact {
				wins, draws, losses, lines = outcomeCounts(v)
			}
		}
	}

	for i := range p.Links {
		c := bk.child(p, p.Links[i].Move)
		if c == nil {
			// Soft corruption: the child vanished. Skip; Fix repairs it.
			bk.log.Printf("[book] missing child for %s from %s", MoveString(int(p.Links[i].Move)), p.Board)
			continue
		}
		bk.negamaxPosition(t, c)
		cv := clampScore(-int(c.Score.Value))
		p.Links[i].Score = int8(cv)
		if cv > value {
			value = cv
		}
		if lo := -int(c.Score.Upper); lo > lower {
			lower = lo
		}
		if hi := -int(c.Score.Lower); hi > upper {
			upper = hi
		}
		wins += c.Losses
		draws += c.Draws
		losses += c.Wins
		lines += c.Lines
	}

	p.Score = Score{Value: int16(value), Lower: int16(lower), Upper: int16(upper)}
	p.Wins, p.Draws, p.Losses, p.Lines = wins, draws, losses, lines
	p.StatsKnown = true
}

func outcomeCounts(value int) (wins, draws, losses, lines uint32) {
	switch {
	case value > 0:
		return 1, 0, 0, 1
	case value < 0:
		return 0, 0, 1, 1
	default:
		return 0, 1, 0, 1
	}
}

// Merge folds other into bk: new positions are inserted, collisions keep
// whichever side was analyzed at the deeper level. Links are rebuilt from
// scratch afterwards, then scores re-propagated.
func (bk *Book) Merge(other *Book) int {
	added := 0
	other.store.ForEach(func(op *Position) {
		existing := bk.store.ProbeCanonical(op.Board)
		if existing == nil {
			if op.Board.Empties() < bk.nEmpties {
				// The other book was built with a lower height cutoff.
				return
			}
			clone := *op
			clone.Links = append([]Link(nil), op.Links...)
			bk.store.Insert(&clone)
			added++
			return
		}
		if op.Level > existing.Level {
			existing.Links = append(existing.Links[:0], op.Links...)
			existing.Leaf = op.Leaf
			existing.Score = op.Score
			existing.Level = op.Level
			existing.StatsKnown = false
		}
	})
	bk.RelinkAll()
	bk.Negamax()
	bk.log.Printf("[book] merged %d new positions, %d total", added, bk.store.Count())
	return added
}

// RelinkAll re-derives every position's links from the current store
// contents and refreshes leaves where moves remain unexplored.
func (bk *Book) RelinkAll() {
	for _, p := range bk.store.All() {
		bk.Link(p)
		bk.Evaluate(p)
	}
}

// Deepen re-searches the leaf of every position analyzed below the book's
// current level, then re-propagates.
func (bk *Book) Deepen(progress func(done, total int)) int {
	all := bk.store.All()
	deepened := 0
	for i, p := range all {
		if int(p.Level) >= bk.level {
			continue
		}
		p.Level = uint8(bk.level)
		p.Leaf = badLink()
		bk.Evaluate(p)
		deepened++
		if progress != nil {
			progress(i+1, len(all))
		}
	}
	bk.Negamax()
	bk.log.Printf("[book] deepened %d positions to level %d", deepened, bk.level)
	return deepened
}

// Fix validates every position and repairs the broken ones by discarding
// their links and leaf and re-deriving both. Returns the repair count.
func (bk *Book) Fix() int {
	fixed := 0
	for _, p := range bk.store.All() {
		err := p.Check()
		if err == nil {
			continue
		}
		bk.log.Printf("[book] fixing %s: %v", p.Board, err)
		p.Links = p.Links[:0]
		p.Leaf = badLink()
		p.StatsKnown = false
		bk.Link(p)
		bk.Evaluate(p)
		fixed++
	}
	if fixed > 0 {
		bk.Negamax()
	}
	return fixed
}

// BookInfo is the statistics report for show/info and the HTTP API.
type BookInfo struct {
	Positions    int         `json:"positions"`
	Links        int         `json:"links"`
	Leaves       int         `json:"leaves"`
	Level        int         `json:"level"`
	NEmpties     int         `json:"n_empties"`
	Buckets      int         `json:"buckets"`
	RootValue    int         `json:"root_value"`
	RootLower    int         `json:"root_lower"`
	RootUpper    int         `json:"root_upper"`
	RootLines    uint32      `json:"root_lines"`
	LevelCounts  map[int]int `json:"level_counts"`
	MinEmpties   int         `json:"min_empties"`
	MaxEmpties   int         `json:"max_empties"`
}

func (bk *Book) Info() BookInfo {
	info := BookInfo{
		Positions:   bk.store.Count(),
		Level:       bk.level,
		NEmpties:    bk.nEmpties,
		Buckets:     bk.store.BucketCount(),
		LevelCounts: make(map[int]int),
		MinEmpties:  65,
		MaxEmpties:  -1,
	}
	bk.store.ForEach(func(p *Position) {
		info.Links += len(p.Links)
		if !p.Leaf.IsBad() {
			info.Leaves++
		}
		info.LevelCounts[int(p.Level)]++
		e := p.Board.Empties()
		if e < info.MinEmpties {
			info.MinEmpties = e
		}
		if e > info.MaxEmpties {
			info.MaxEmpties = e
		}
	})
	if root := bk.Root(); root != nil {
		info.RootValue = int(root.Score.Value)
		info.RootLower = int(root.Score.Lower)
		info.RootUpper = int(root.Score.Upper)
		info.RootLines = root.Lines
	}
	return info
}

// Show renders one position: board, links sorted by score, leaf, bounds.
func (bk *Book) Show(board Board) (string, error) {
	p, sym := bk.Probe(board)
	if p == nil {
		return "", errPositionNotFound
	}
	inv := InverseSymmetry(sym)
	out := p.Board.Render()
	links := append([]Link(nil), p.Links...)
	sort.Slice(links, func(i, j int) bool { return links[i].Score > links[j].Score })
	for _, l := range links {
		out += fmt.Sprintf("link %s %+d\n", MoveString(TransformMove(int(l.Move), inv)), l.Score)
	}
	if !p.Leaf.IsBad() {
		out += fmt.Sprintf("leaf %s %+d\n", MoveString(TransformMove(int(p.Leaf.Move), inv)), p.Leaf.Score)
	}
	out += fmt.Sprintf("score %+d [%+d, %+d] level %d", p.Score.Value, p.Score.Lower, p.Score.Upper, p.Level)
	if p.StatsKnown {
		out += fmt.Sprintf(" lines %d (W%d D%d L%d)", p.Lines, p.Wins, p.Draws, p.Losses)
	}
	return out + "\n", nil
}

// BestMoveFor answers a lookup for any orientation of board: the strongest
// known move, already mapped back onto the caller's orientation.
func (bk *Book) BestMoveFor(board Board) (move int, score int, ok bool) {
	p, sym := bk.Probe(board)
	if p == nil {
		return NoMove, 0, false
	}
	m, s, ok := p.BestMove()
	if !ok {
		return NoMove, 0, false
	}
	return TransformMove(m, InverseSymmetry(sym)), s, true
}
