package main

import "testing"

func TestPruneKeepsRootAndInBoundsLines(t *testing.T) {
	bk := newTestBook(t, 1, 57)
	if _, err := bk.Grow(GrowDeviate, wideGrowParams(), nil, nil); err != nil {
		t.Fatalf("grow: %v", err)
	}
	before := bk.Count()
	params := wideGrowParams()
	params.PlayerDeviation = 0
	params.OpponentDeviation = 0
	removed := bk.Prune(params)
	if bk.Root() == nil {
		t.Fatalf("prune must never remove the root")
	}
	if bk.Count() != before-removed {
		t.Fatalf("count %d after removing %d from %d", bk.Count(), removed, before)
	}
	// Survivors must not link outside the store.
	bk.store.ForEach(func(p *Position) {
		for _, l := range p.Links {
			if bk.child(p, l.Move) == nil {
				t.Fatalf("dangling link %s survived prune", MoveString(int(l.Move)))
			}
		}
	})
}

func TestPruneDemotesDanglingLinkToLeaf(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	root := bk.Root()
	child, _ := root.Board.Apply(int(root.Leaf.Move))
	cp := bk.AddPosition(child)
	if cp == nil {
		t.Fatalf("add child failed")
	}
	bk.Link(root)
	bk.Evaluate(root)
	bk.Negamax()
	link := root.Links[0]
	root.Leaf = badLink()

	bk.store.Remove(cp)
	bk.removeDanglingLinks()
	if len(root.Links) != 0 {
		t.Fatalf("dangling link must be dropped")
	}
	if root.Leaf != link {
		t.Fatalf("dropped link %s/%d must fall back into the empty leaf slot, got %s/%d",
			MoveString(int(link.Move)), link.Score,
			MoveString(int(root.Leaf.Move)), root.Leaf.Score)
	}
}

func TestSubtreeDiscardsUnreachable(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	root := bk.Root()
	child, _ := root.Board.Apply(int(root.Leaf.Move))
	if bk.AddPosition(child) == nil {
		t.Fatalf("add child failed")
	}
	bk.Link(root)
	bk.Negamax()

	removed, err := bk.Subtree(child)
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if removed != 1 {
		t.Fatalf("subtree removed %d positions, want 1", removed)
	}
	if p, _ := bk.Probe(child); p == nil {
		t.Fatalf("subtree root must survive")
	}
	if p, _ := bk.Probe(InitialBoard()); p != nil {
		t.Fatalf("the old root must be gone")
	}
}

func TestSubtreeUnknownPosition(t *testing.T) {
	bk := newTestBook(t, 1, 40)
	child, _ := InitialBoard().Apply(19)
	if _, err := bk.Subtree(child); err == nil {
		t.Fatalf("subtree on an unknown position must fail")
	}
}
