package analysis

import "github.com/foundryc/ssair/internal/ir"

// Loop is one natural loop: a header reachable from every latch by a
// back-edge, the set of blocks that belong to it (including any sub-loops'
// blocks), the latches themselves, and the sub-loop forest nested inside it
// (spec.md §4.6). Preheader is nil until LICM synthesizes one.
type Loop struct {
	Header    *ir.BasicBlock
	Blocks    map[*ir.BasicBlock]bool
	Latches   []*ir.BasicBlock
	SubLoops  []*Loop
	Parent    *Loop
	Preheader *ir.BasicBlock
}

// Contains reports whether b is part of this loop (including sub-loops).
func (l *Loop) Contains(b *ir.BasicBlock) bool { return l.Blocks[b] }

// LoopForest is the top-level natural loops of a function, in discovery
// order, along with the containment relationships recorded on each Loop's
// Parent/SubLoops fields.
type LoopForest struct {
	TopLevel []*Loop
}

// BuildLoopForest computes dominators for fn, finds every back-edge, and
// assembles the resulting natural loops into a containment forest.
func BuildLoopForest(fn *ir.Function) *LoopForest {
	entry := fn.Entry()
	if entry == nil {
		return &LoopForest{}
	}
	order := reversePostOrder(entry)
	idom := computeDominators(entry, order)

	byHeader := map[*ir.BasicBlock]*Loop{}
	var headerOrder []*ir.BasicBlock
	for _, b := range order {
		for _, succ := range b.Succs {
			if dominates(idom, succ, b) {
				// b -> succ is a back-edge: succ is the loop header, b a latch.
				lp, ok := byHeader[succ]
				if !ok {
					lp = &Loop{Header: succ, Blocks: map[*ir.BasicBlock]bool{succ: true}}
					byHeader[succ] = lp
					headerOrder = append(headerOrder, succ)
				}
				lp.Latches = append(lp.Latches, b)
				addToLoop(lp, b)
			}
		}
	}

	forest := &LoopForest{}
	for _, h := range headerOrder {
		forest.TopLevel = append(forest.TopLevel, byHeader[h])
	}
	nestLoops(forest)
	return forest
}

// addToLoop walks predecessors backward from the latch until it reaches the
// header, adding every block it finds along the way (the textbook natural
// loop discovery algorithm).
func addToLoop(lp *Loop, latch *ir.BasicBlock) {
	if lp.Blocks[latch] {
		return
	}
	worklist := []*ir.BasicBlock{latch}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if lp.Blocks[b] {
			continue
		}
		lp.Blocks[b] = true
		worklist = append(worklist, b.Preds...)
	}
}

// nestLoops assigns each loop's Parent to the smallest other loop that
// strictly contains its header, and rebuilds TopLevel to hold only the
// loops left with no parent.
func nestLoops(forest *LoopForest) {
	all := forest.TopLevel
	for _, lp := range all {
		var parent *Loop
		for _, other := range all {
			if other == lp || !other.Blocks[lp.Header] || len(other.Blocks) <= len(lp.Blocks) {
				continue
			}
			if parent == nil || len(other.Blocks) < len(parent.Blocks) {
				parent = other
			}
		}
		lp.Parent = parent
		if parent != nil {
			parent.SubLoops = append(parent.SubLoops, lp)
		}
	}
	var top []*Loop
	for _, lp := range all {
		if lp.Parent == nil {
			top = append(top, lp)
		}
	}
	forest.TopLevel = top
}

// reversePostOrder returns fn's blocks in reverse postorder of a depth-first
// traversal from entry, the iteration order the dominance algorithm needs.
func reversePostOrder(entry *ir.BasicBlock) []*ir.BasicBlock {
	visited := map[*ir.BasicBlock]bool{}
	var post []*ir.BasicBlock
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	rpo := make([]*ir.BasicBlock, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// computeDominators runs the iterative Cooper/Harvey/Kennedy algorithm,
// returning each block's immediate dominator (entry maps to itself).
func computeDominators(entry *ir.BasicBlock, order []*ir.BasicBlock) map[*ir.BasicBlock]*ir.BasicBlock {
	index := map[*ir.BasicBlock]int{}
	for i, b := range order {
		index[b] = i
	}
	idom := map[*ir.BasicBlock]*ir.BasicBlock{entry: entry}

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == entry {
				continue
			}
			var newIdom *ir.BasicBlock
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, index, newIdom, p)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom map[*ir.BasicBlock]*ir.BasicBlock, index map[*ir.BasicBlock]int, a, b *ir.BasicBlock) *ir.BasicBlock {
	for a != b {
		for index[a] > index[b] {
			a = idom[a]
		}
		for index[b] > index[a] {
			b = idom[b]
		}
	}
	return a
}

// dominates reports whether a dominates b (including a == b).
func dominates(idom map[*ir.BasicBlock]*ir.BasicBlock, a, b *ir.BasicBlock) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		next, ok := idom[cur]
		if !ok || next == cur {
			return cur == a
		}
		cur = next
	}
}
