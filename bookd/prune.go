package main

// markKeep walks the subgraph the same way deviate does, but marks every
// in-bounds reachable position as one to keep.
func (bk *Book) markKeep(t *traversal, p *Position, playerDev, oppDev, lower, upper int) {
	if p == nil || t.done[p] {
		return
	}
	t.done[p] = true
	value := int(p.Score.Value)
	if value < lower || value > upper {
		return
	}
	for _, l := range p.Links {
		s := int(l.Score)
		if s >= value-playerDev && s >= lower && s <= upper {
			bk.markKeep(t, bk.child(p, l.Move), oppDev, playerDev, -upper, -lower)
		}
	}
}

// markReachable keeps everything reachable by links, regardless of score.
func (bk *Book) markReachable(t *traversal, p *Position) {
	if p == nil || t.done[p] {
		return
	}
	t.done[p] = true
	for _, l := range p.Links {
		bk.markReachable(t, bk.child(p, l.Move))
	}
}

// Prune deletes every position that is not reachable from the root within
// the deviation bounds, then converts the dangling links of the survivors
// back into leaves. Returns the number of removed positions.
func (bk *Book) Prune(params GrowParams) int {
	root := bk.Root()
	if root == nil {
		return 0
	}
	bk.Negamax()
	t := newTraversal()
	bk.markKeep(t, root, params.PlayerDeviation, params.OpponentDeviation, params.Lower, params.Upper)
	t.done[root] = true
	return bk.removeUnmarked(t)
}

// Subtree is Prune rooted at an arbitrary stored position: everything not
// reachable from it is discarded.
func (bk *Book) Subtree(board Board) (int, error) {
	p, _ := bk.Probe(board)
	if p == nil {
		return 0, errPositionNotFound
	}
	t := newTraversal()
	bk.markReachable(t, p)
	removed := bk.removeUnmarked(t)
	return removed, nil
}

func (bk *Book) removeUnmarked(t *traversal) int {
	removed := 0
	for _, p := range bk.store.All() {
		if t.done[p] {
			continue
		}
		bk.store.Remove(p)
		removed++
	}
	if removed > 0 {
		bk.removeDanglingLinks()
		bk.Negamax()
		bk.metrics.setPositions(bk.store.Count())
	}
	bk.log.Printf("[book] pruned %d positions, %d remain", removed, bk.store.Count())
	return removed
}

// removeDanglingLinks drops links whose child left the store; the best such
// link is demoted back into the leaf slot when it beats the current leaf.
func (bk *Book) removeDanglingLinks() {
	bk.store.ForEach(func(p *Position) {
		kept := p.Links[:0]
		leaf := p.Leaf
		for _, l := range p.Links {
			if bk.child(p, l.Move) != nil {
				kept = append(kept, l)
				continue
			}
			if leaf.IsBad() || l.Score > leaf.Score {
				leaf = l
			}
		}
		p.Links = kept
		p.Leaf = leaf
	})
}
