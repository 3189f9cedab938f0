package main

import (
	"log"
	"strings"
	"testing"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(testWriter{t}, "", 0)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func newTestBook(t *testing.T, level, nEmpties int) *Book {
	t.Helper()
	return NewBook(level, nEmpties, testLogger(t))
}

func TestNewBookHoldsInitialPosition(t *testing.T) {
	bk := newTestBook(t, 2, 40)
	if bk.Count() != 1 {
		t.Fatalf("fresh book size: got %d want 1", bk.Count())
	}
	root := bk.Root()
	if root == nil {
		t.Fatalf("fresh book must hold the initial position")
	}
	if len(root.Links) != 0 {
		t.Fatalf("fresh root must have no links, got %d", len(root.Links))
	}
	if root.Leaf.IsBad() {
		t.Fatalf("fresh root must carry a searched leaf")
	}
	if root.Score.Value != int16(root.Leaf.Score) {
		t.Fatalf("root value %d must equal its only option, the leaf %d",
			root.Score.Value, root.Leaf.Score)
	}
	if root.Score.Lower > root.Score.Value || root.Score.Value > root.Score.Upper {
		t.Fatalf("bounds must bracket the value: [%d, %d] around %d",
			root.Score.Lower, root.Score.Upper, root.Score.Value)
	}
	if err := root.Check(); err != nil {
		t.Fatalf("fresh root fails validation: %v", err)
	}
}

func TestAddPositionLinksParent(t *testing.T) {
	bk := newTestBook(t, 2, 40)
	root := bk.Root()
	leafMove := int(root.Leaf.Move)
	child, ok := root.Board.Apply(leafMove)
	if !ok {
		t.Fatalf("leaf move %s must be legal", MoveString(leafMove))
	}
	if bk.AddPosition(child) == nil {
		t.Fatalf("adding the leaf continuation must succeed")
	}
	bk.Link(root)
	bk.Evaluate(root)
	bk.Negamax()

	if bk.Count() != 2 {
		t.Fatalf("book size: got %d want 2", bk.Count())
	}
	link, ok := root.findLink(uint8(leafMove))
	if !ok {
		t.Fatalf("expanded move %s must become a link", MoveString(leafMove))
	}
	cp, _ := bk.Probe(child)
	if cp == nil {
		t.Fatalf("child must be probeable")
	}
	if int(link.Score) != clampScore(-int(cp.Score.Value)) {
		t.Fatalf("link score %d must be the child value negated (%d)",
			link.Score, -cp.Score.Value)
	}
	if int(root.Leaf.Move) == leafMove {
		t.Fatalf("expanded move must leave the leaf slot")
	}
}

func TestAddPositionRejectsBelowHeight(t *testing.T) {
	bk := newTestBook(t, 2, 60)
	child, _ := InitialBoard().Apply(19)
	if bk.AddPosition(child) != nil {
		t.Fatalf("positions under the book height must be rejected")
	}
	if bk.Count() != 1 {
		t.Fatalf("rejected add must not grow the book")
	}
}

func TestNegamaxValueIsMaxOverOptions(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	root := bk.Root()
	for _, sq := range moveList(root.Board.Moves()) {
		child, _ := root.Board.Apply(sq)
		if bk.AddPosition(child) == nil {
			t.Fatalf("adding child %s failed", MoveString(sq))
		}
	}
	bk.Link(root)
	bk.Evaluate(root)
	bk.Negamax()

	best := -ScoreInf - 1
	for _, l := range root.Links {
		if int(l.Score) > best {
			best = int(l.Score)
		}
	}
	if !root.Leaf.IsBad() && int(root.Leaf.Score) > best {
		best = int(root.Leaf.Score)
	}
	if int(root.Score.Value) != best {
		t.Fatalf("root value %d, best option %d", root.Score.Value, best)
	}
	if root.Score.Lower > root.Score.Value || root.Score.Value > root.Score.Upper {
		t.Fatalf("bounds [%d, %d] must bracket %d",
			root.Score.Lower, root.Score.Upper, root.Score.Value)
	}
	if !root.StatsKnown {
		t.Fatalf("negamax must mark statistics as propagated")
	}
}

func TestBestMoveForMapsSymmetry(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	root := bk.Root()
	for _, sq := range moveList(root.Board.Moves()) {
		child, _ := root.Board.Apply(sq)
		bk.AddPosition(child)
	}
	bk.Link(root)
	bk.Evaluate(root)
	bk.Negamax()

	query := InitialBoard()
	move, _, ok := bk.BestMoveFor(query)
	if !ok {
		t.Fatalf("best move must exist after expansion")
	}
	if query.Moves()&(uint64(1)<<uint(move)) == 0 {
		t.Fatalf("best move %s must be legal on the query board", MoveString(move))
	}
}

func TestMergePrefersDeeperAnalysis(t *testing.T) {
	shallow := newTestBook(t, 1, 40)
	deep := newTestBook(t, 3, 40)
	deepRoot := deep.Root()
	child, _ := deepRoot.Board.Apply(int(deepRoot.Leaf.Move))
	deep.AddPosition(child)
	deep.Link(deepRoot)
	deep.Evaluate(deepRoot)
	deep.Negamax()

	added := shallow.Merge(deep)
	if added != 1 {
		t.Fatalf("merge added %d positions, want 1", added)
	}
	if shallow.Count() != 2 {
		t.Fatalf("merged book size: got %d want 2", shallow.Count())
	}
	root := shallow.Root()
	if root.Level != 3 {
		t.Fatalf("collision must keep the deeper analysis, got level %d", root.Level)
	}
}

func TestMergeRespectsHeightCutoff(t *testing.T) {
	tall := newTestBook(t, 1, 60)
	low := newTestBook(t, 1, 40)
	lowRoot := low.Root()
	child, _ := lowRoot.Board.Apply(int(lowRoot.Leaf.Move))
	if child.Empties() >= tall.NEmpties() {
		t.Fatalf("one-ply continuation has %d empties, expected below %d", child.Empties(), tall.NEmpties())
	}
	if low.AddPosition(child) == nil {
		t.Fatalf("adding the continuation to the low book failed")
	}

	if added := tall.Merge(low); added != 0 {
		t.Fatalf("merge added %d positions below the height cutoff, want 0", added)
	}
	if tall.Count() != 1 {
		t.Fatalf("merged book size: got %d want 1", tall.Count())
	}
	if p, _ := tall.Probe(child); p != nil {
		t.Fatalf("position below the height cutoff must not be stored")
	}
}

func TestFixRepairsCorruptPosition(t *testing.T) {
	bk := newTestBook(t, 2, 40)
	root := bk.Root()
	root.Leaf = Link{Score: 0, Move: 0} // a1 is illegal from the start
	if err := root.Check(); err == nil {
		t.Fatalf("corrupted root must fail validation")
	}
	if fixed := bk.Fix(); fixed != 1 {
		t.Fatalf("fix count: got %d want 1", fixed)
	}
	if err := root.Check(); err != nil {
		t.Fatalf("root still broken after fix: %v", err)
	}
	if root.Leaf.IsBad() {
		t.Fatalf("fix must re-derive the leaf")
	}
}

func TestDeepenRaisesLevel(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	bk.level = 2
	calls := 0
	if deepened := bk.Deepen(func(done, total int) { calls++ }); deepened != 1 {
		t.Fatalf("deepen count: got %d want 1", deepened)
	}
	if calls == 0 {
		t.Fatalf("deepen must report progress")
	}
	if bk.Root().Level != 2 {
		t.Fatalf("root level after deepen: got %d want 2", bk.Root().Level)
	}
	if bk.Deepen(nil) != 0 {
		t.Fatalf("second deepen at the same level must be a no-op")
	}
}

func TestShowRendersPosition(t *testing.T) {
	bk := newTestBook(t, 2, 40)
	out, err := bk.Show(InitialBoard())
	if err != nil {
		t.Fatalf("show on the stored root: %v", err)
	}
	if !strings.Contains(out, "a b c d e f g h") {
		t.Fatalf("show output missing the board grid:\n%s", out)
	}
	child, _ := InitialBoard().Apply(19)
	if _, err := bk.Show(child); err == nil {
		t.Fatalf("show on an unknown position must fail")
	}
}
