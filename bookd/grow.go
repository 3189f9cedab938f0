package main

import (
	"fmt"
	"time"
)

// traversal carries the done/todo marking for one pass over the graph. The
// marks live here, keyed by pointer, so no transient state ever reaches the
// persisted record.
type traversal struct {
	done map[*Position]bool
	todo map[*Position]bool
}

func newTraversal() *traversal {
	return &traversal{
		done: make(map[*Position]bool),
		todo: make(map[*Position]bool),
	}
}

func (t *traversal) todoList() []*Position {
	list := make([]*Position, 0, len(t.todo))
	for p := range t.todo {
		list = append(list, p)
	}
	return list
}

// GrowParams configures one growth run. Deviations bound how far below the
// best score a move may fall and still be explored; Lower/Upper bound the
// absolute scores worth exploring at all.
type GrowParams struct {
	PlayerDeviation   int
	OpponentDeviation int
	Lower             int
	Upper             int
	FillDepth         int
}

func DefaultGrowParams() GrowParams {
	config := GetConfig()
	return GrowParams{
		PlayerDeviation:   config.PlayerDeviation,
		OpponentDeviation: config.OpponentDeviation,
		Lower:             config.DeviationLower,
		Upper:             config.DeviationUpper,
		FillDepth:         config.FillDepth,
	}
}

// deviate walks lines whose value stays inside [lower, upper], alternating
// the two deviation budgets each ply, and marks positions whose leaf is
// both close enough to the best move and inside the bounds.
func (bk *Book) deviate(t *traversal, p *Position, playerDev, oppDev, lower, upper int) {
	if p == nil || t.done[p] {
		return
	}
	t.done[p] = true
	value := int(p.Score.Value)
	if value < lower || value > upper {
		return
	}
	if p.Board.Empties() <= bk.nEmpties {
		return
	}
	for _, l := range p.Links {
		s := int(l.Score)
		if s >= value-playerDev && s >= lower && s <= upper {
			bk.deviate(t, bk.child(p, l.Move), oppDev, playerDev, -upper, -lower)
		}
	}
	if !p.Leaf.IsBad() && p.Leaf.Move != NoMove {
		s := int(p.Leaf.Score)
		if s >= value-playerDev && s >= lower && s <= upper {
			t.todo[p] = true
		}
	}
}

// enhance targets accuracy instead of coverage: it recurses wherever a
// child's interval does not dominate the parent's, and marks positions
// whose leaf interval is what holds the parent's bounds open.
func (bk *Book) enhance(t *traversal, p *Position) {
	if p == nil || t.done[p] {
		return
	}
	t.done[p] = true
	if p.Board.Empties() <= bk.nEmpties {
		return
	}
	for _, l := range p.Links {
		c := bk.child(p, l.Move)
		if c == nil {
			continue
		}
		if -int(c.Score.Upper) >= int(p.Score.Lower) || -int(c.Score.Lower) >= int(p.Score.Upper) {
			bk.enhance(t, c)
		}
	}
	if p.Leaf.IsBad() || p.Leaf.Move == NoMove {
		return
	}
	settings := LevelSettings(int(p.Level), p.Board.Empties())
	lo, hi := errorBounds(int(p.Leaf.Score), settings, p.Board.Empties(), bk.midgameError, bk.endcutError)
	if lo == hi {
		return
	}
	if hi >= int(p.Score.Upper) || lo <= int(p.Score.Lower) {
		t.todo[p] = true
	}
}

// Fill closes gaps in connectivity: from every stored position it plays all
// move sequences up to depth plies, and whenever such a line lands on a
// stored position, the intermediate positions along the line are inserted
// too. Returns the number of positions added.
func (bk *Book) Fill(depth int) int {
	if depth < 1 {
		depth = 1
	}
	added := 0
	for _, p := range bk.store.All() {
		added += bk.fillFrom(p.Board, depth)
	}
	if added > 0 {
		bk.RelinkAll()
		bk.Negamax()
	}
	bk.log.Printf("[book:grow] fill depth %d added %d positions", depth, added)
	return added
}

func (bk *Book) fillFrom(b Board, depth int) int {
	added := 0
	bk.fillWalk(b, depth, func(line []Board) {
		// The line ends on a stored position; insert what is missing
		// in between.
		for _, step := range line {
			canonical, _ := Canonicalize(step)
			if bk.store.ProbeCanonical(canonical) != nil {
				continue
			}
			if bk.AddPosition(step) != nil {
				added++
			}
		}
	})
	return added
}

// fillWalk explores every legal continuation (forced passes included) up to
// depth plies; hit receives the intermediate boards of each line that lands
// on a stored position, the endpoint excluded.
func (bk *Book) fillWalk(b Board, depth int, hit func(line []Board)) {
	var walk func(cur Board, line []Board, remaining int)
	walk = func(cur Board, line []Board, remaining int) {
		canonical, _ := Canonicalize(cur)
		if bk.store.ProbeCanonical(canonical) != nil {
			if len(line) > 0 {
				hit(line)
			}
			return
		}
		if remaining == 0 {
			return
		}
		moves := cur.Moves()
		if moves == 0 {
			if cur.OpponentCanMove() {
				walk(cur.Pass(), append(line, cur), remaining-1)
			}
			return
		}
		for _, sq := range moveList(moves) {
			next, _ := cur.Apply(sq)
			if next.Empties() < bk.nEmpties {
				continue
			}
			walk(next, append(line, cur), remaining-1)
		}
	}
	moves := b.Moves()
	if moves == 0 {
		if b.OpponentCanMove() {
			walk(b.Pass(), nil, depth-1)
		}
		return
	}
	for _, sq := range moveList(moves) {
		next, _ := b.Apply(sq)
		if next.Empties() < bk.nEmpties {
			continue
		}
		walk(next, nil, depth-1)
	}
}

// GrowStrategy names the selector a growth run uses.
type GrowStrategy string

const (
	GrowDeviate GrowStrategy = "deviate"
	GrowEnhance GrowStrategy = "enhance"
)

// GrowEvent is one expansion reported to the progress sink.
type GrowEvent struct {
	Iteration int    `json:"iteration"`
	Expanded  int    `json:"expanded"`
	Total     int    `json:"total"`
	Positions int    `json:"positions"`
	Board     string `json:"board"`
	Move      string `json:"move"`
}

// Grow is the orchestration loop shared by deviate and enhance: mark, then
// expand every marked leaf into a stored position, re-propagate, save, and
// repeat until a pass adds nothing. Checkpoints are written cooperatively
// between expansions.
func (bk *Book) Grow(strategy GrowStrategy, params GrowParams, saver *BookSaver, progress func(GrowEvent)) (int, error) {
	totalAdded := 0
	for iteration := 1; ; iteration++ {
		bk.Negamax()
		root := bk.Root()
		if root == nil {
			return totalAdded, fmt.Errorf("book has no root position")
		}
		t := newTraversal()
		switch strategy {
		case GrowDeviate:
			bk.deviate(t, root, params.PlayerDeviation, params.OpponentDeviation, params.Lower, params.Upper)
		case GrowEnhance:
			bk.enhance(t, root)
		default:
			return totalAdded, fmt.Errorf("unknown growth strategy %q", strategy)
		}
		todo := t.todoList()
		if len(todo) == 0 {
			bk.log.Printf("[book:grow] %s converged after %d iterations, %d positions added", strategy, iteration-1, totalAdded)
			return totalAdded, nil
		}
		expanded := 0
		for _, p := range todo {
			if bk.Expand(p) != nil {
				expanded++
				totalAdded++
			}
			if progress != nil {
				progress(GrowEvent{
					Iteration: iteration,
					Expanded:  expanded,
					Total:     len(todo),
					Positions: bk.store.Count(),
					Board:     p.Board.String(),
					Move:      MoveString(int(p.Leaf.Move)),
				})
			}
			if saver != nil {
				if err := saver.MaybeCheckpoint(bk); err != nil {
					bk.log.Printf("[book:io] checkpoint failed: %v", err)
				}
			}
		}
		bk.Negamax()
		if saver != nil {
			if err := saver.Save(bk); err != nil {
				return totalAdded, fmt.Errorf("save after iteration %d: %w", iteration, err)
			}
		}
		bk.log.Printf("[book:grow] %s iteration %d expanded %d/%d, book at %d positions",
			strategy, iteration, expanded, len(todo), bk.store.Count())
		if expanded == 0 {
			return totalAdded, nil
		}
	}
}

// Expand turns p's leaf into a stored child position, then refreshes p's
// links and leaf. Returns the new child, or nil when nothing was added.
func (bk *Book) Expand(p *Position) *Position {
	if p.Leaf.IsBad() || p.Leaf.Move == NoMove {
		return nil
	}
	next, ok := p.Board.Apply(int(p.Leaf.Move))
	if !ok {
		bk.log.Printf("[book:grow] skipping illegal leaf %s on %s", MoveString(int(p.Leaf.Move)), p.Board)
		p.Leaf = badLink()
		return nil
	}
	if next.Empties() < bk.nEmpties {
		return nil
	}
	canonical, _ := Canonicalize(next)
	if bk.store.ProbeCanonical(canonical) != nil {
		// The child was reached through another line already; the leaf
		// still becomes a link, but nothing new was added.
		bk.Link(p)
		bk.Evaluate(p)
		return nil
	}
	c := bk.AddPosition(next)
	if c == nil {
		return nil
	}
	bk.metrics.expanded()
	bk.Link(p)
	bk.Evaluate(p)
	return c
}

// BookSaver owns the growth loop's persistence cadence: full saves after
// each iteration, checkpoints at most once per configured interval.
type BookSaver struct {
	Path           string
	CheckpointPath string
	Interval       time.Duration
	last           time.Time
}

func NewBookSaver(path string) *BookSaver {
	config := GetConfig()
	checkpoint := path + ".checkpoint"
	if config.CompressCheckpoint {
		checkpoint += zstExt
	}
	return &BookSaver{
		Path:           path,
		CheckpointPath: checkpoint,
		Interval:       time.Duration(config.CheckpointMinutes) * time.Minute,
		last:           time.Now(),
	}
}

func (s *BookSaver) Save(bk *Book) error {
	return SaveBook(bk, s.Path)
}

func (s *BookSaver) MaybeCheckpoint(bk *Book) error {
	if s.Interval <= 0 || time.Since(s.last) < s.Interval {
		return nil
	}
	s.last = time.Now()
	if err := SaveBook(bk, s.CheckpointPath); err != nil {
		return err
	}
	bk.metrics.checkpointed()
	bk.log.Printf("[book:io] checkpoint written to %s (%d positions)", s.CheckpointPath, bk.Count())
	return nil
}
