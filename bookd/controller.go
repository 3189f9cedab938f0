package main

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

var errJobRunning = errors.New("a growth job is already running")

// BookController serializes access to the single-threaded book engine. The
// HTTP layer reads through it; growth jobs run one at a time on a
// background goroutine holding the same lock per step granularity the
// engine allows (a whole job, since the engine never yields mid-pass).
type BookController struct {
	mu      sync.Mutex
	book    *Book
	saver   *BookSaver
	log     *log.Logger
	growing atomic.Bool

	// jobMu guards jobDone only; mu is held by a running job for its whole
	// duration, so Wait must not need it.
	jobMu   sync.Mutex
	jobDone chan struct{}
}

func NewBookController(book *Book, saver *BookSaver, logger *log.Logger) *BookController {
	return &BookController{book: book, saver: saver, log: logger}
}

func (c *BookController) Info() BookInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book.Info()
}

func (c *BookController) Probe(board Board) (PositionDTO, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, sym := c.book.Probe(board)
	if p == nil {
		return PositionDTO{}, false
	}
	return positionToDTO(p, sym), true
}

func (c *BookController) BestMove(board Board) (move int, score int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book.BestMoveFor(board)
}

func (c *BookController) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saver.Save(c.book)
}

func (c *BookController) Growing() bool {
	return c.growing.Load()
}

// StartGrow launches a growth job; only one may run at a time. The progress
// sink is called between expansions.
func (c *BookController) StartGrow(strategy GrowStrategy, params GrowParams, progress func(GrowEvent)) error {
	if !c.growing.CompareAndSwap(false, true) {
		return errJobRunning
	}
	done := make(chan struct{})
	c.jobMu.Lock()
	c.jobDone = done
	c.jobMu.Unlock()
	go func() {
		defer close(done)
		defer c.growing.Store(false)
		c.mu.Lock()
		defer c.mu.Unlock()
		added, err := c.book.Grow(strategy, params, c.saver, progress)
		if err != nil {
			c.log.Printf("[book:grow] %s job failed after %d additions: %v", strategy, added, err)
			return
		}
		c.log.Printf("[book:grow] %s job finished, %d positions added", strategy, added)
	}()
	return nil
}

// Wait blocks until the current growth job (if any) finishes.
func (c *BookController) Wait() {
	c.jobMu.Lock()
	done := c.jobDone
	c.jobMu.Unlock()
	if done != nil {
		<-done
	}
}

// PositionDTO is the HTTP representation of a stored position, with moves
// mapped back onto the caller's board orientation.
type PositionDTO struct {
	Board    string    `json:"board"`
	Links    []LinkDTO `json:"links"`
	Leaf     *LinkDTO  `json:"leaf,omitempty"`
	Value    int       `json:"value"`
	Lower    int       `json:"lower"`
	Upper    int       `json:"upper"`
	Level    int       `json:"level"`
	Empties  int       `json:"empties"`
	Wins     uint32    `json:"wins"`
	Draws    uint32    `json:"draws"`
	Losses   uint32    `json:"losses"`
	Lines    uint32    `json:"lines"`
	HasStats bool      `json:"has_stats"`
}

type LinkDTO struct {
	Move  string `json:"move"`
	Score int    `json:"score"`
}

func positionToDTO(p *Position, sym int) PositionDTO {
	inv := InverseSymmetry(sym)
	dto := PositionDTO{
		Board:    p.Board.String(),
		Links:    make([]LinkDTO, 0, len(p.Links)),
		Value:    int(p.Score.Value),
		Lower:    int(p.Score.Lower),
		Upper:    int(p.Score.Upper),
		Level:    int(p.Level),
		Empties:  p.Board.Empties(),
		Wins:     p.Wins,
		Draws:    p.Draws,
		Losses:   p.Losses,
		Lines:    p.Lines,
		HasStats: p.StatsKnown,
	}
	for _, l := range p.Links {
		dto.Links = append(dto.Links, LinkDTO{
			Move:  MoveString(TransformMove(int(l.Move), inv)),
			Score: int(l.Score),
		})
	}
	if !p.Leaf.IsBad() {
		dto.Leaf = &LinkDTO{
			Move:  MoveString(TransformMove(int(p.Leaf.Move), inv)),
			Score: int(p.Leaf.Score),
		}
	}
	return dto
}
