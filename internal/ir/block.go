package ir

// BasicBlock is a maximal straight-line instruction sequence ending in
// exactly one terminator (spec.md glossary). It implements Value (via def)
// purely so it can appear as a branch-target / phi-predecessor operand and
// be rewired through the ordinary use-list machinery; its Type() is always
// the module's LabelType.
type BasicBlock struct {
	def
	Name    string
	Parent  *Function
	Instrs  []*Instruction
	Preds   []*BasicBlock
	Succs   []*BasicBlock
}

// NewBasicBlock creates a detached block. Callers append it to a Function's
// Blocks slice themselves (lowering inserts blocks in control-flow order;
// the inliner and LICM insert them at arbitrary points).
func NewBasicBlock(label *LabelType, name string, parent *Function) *BasicBlock {
	return &BasicBlock{def: def{typ: label}, Name: name, Parent: parent}
}

// Terminator returns the block's terminator instruction, or nil if the block
// is not yet terminated.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// IsTerminated reports whether the block already ends in a terminator.
func (b *BasicBlock) IsTerminated() bool { return b.Terminator() != nil }

// Append adds instr to the end of the block's instruction list and sets its
// parent.
func (b *BasicBlock) Append(instr *Instruction) {
	instr.Parent = b
	b.Instrs = append(b.Instrs, instr)
}

// InsertAtStart adds instr at the beginning of the block (used for phi
// nodes, which must sit at a block's entry per spec.md §4.1).
func (b *BasicBlock) InsertAtStart(instr *Instruction) {
	instr.Parent = b
	b.Instrs = append([]*Instruction{instr}, b.Instrs...)
}

// Remove detaches instr's operands and splices it out of the block. The
// caller is responsible for ensuring instr itself has no remaining uses
// (DCE's sweep only removes instructions it has already proven dead).
func (b *BasicBlock) Remove(instr *Instruction) {
	detachOperands(instr)
	for i, in := range b.Instrs {
		if in == instr {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			return
		}
	}
}

// IndexOf returns the position of instr within the block, or -1.
func (b *BasicBlock) IndexOf(instr *Instruction) int {
	for i, in := range b.Instrs {
		if in == instr {
			return i
		}
	}
	return -1
}

// AddPred/AddSucc/RemovePred/RemoveSucc maintain the CFG adjacency sets
// incrementally; passes that rewire individual edges (LICM's preheader
// splice) use these directly instead of paying for a whole-function rebuild.
func (b *BasicBlock) AddPred(p *BasicBlock) {
	for _, e := range b.Preds {
		if e == p {
			return
		}
	}
	b.Preds = append(b.Preds, p)
}

func (b *BasicBlock) AddSucc(s *BasicBlock) {
	for _, e := range b.Succs {
		if e == s {
			return
		}
	}
	b.Succs = append(b.Succs, s)
}

func (b *BasicBlock) RemovePred(p *BasicBlock) {
	for i, e := range b.Preds {
		if e == p {
			b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
			return
		}
	}
}

func (b *BasicBlock) RemoveSucc(s *BasicBlock) {
	for i, e := range b.Succs {
		if e == s {
			b.Succs = append(b.Succs[:i], b.Succs[i+1:]...)
			return
		}
	}
}

// AddEdge connects from->to in both directions at once.
func AddEdge(from, to *BasicBlock) {
	from.AddSucc(to)
	to.AddPred(from)
}

// RemoveEdge disconnects from->to in both directions at once.
func RemoveEdge(from, to *BasicBlock) {
	from.RemoveSucc(to)
	to.RemovePred(from)
}

// successorsOf returns the blocks a terminator transfers control to.
func successorsOf(term *Instruction) []*BasicBlock {
	if term == nil {
		return nil
	}
	switch term.Op {
	case OpBr:
		return []*BasicBlock{term.Target()}
	case OpCondBr:
		_, thenB, elseB := term.CondBrOperands()
		if thenB == elseB {
			return []*BasicBlock{thenB}
		}
		return []*BasicBlock{thenB, elseB}
	default:
		return nil
	}
}

// RebuildCFGEdges recomputes every block's Preds/Succs in fn from scratch by
// reading each terminator's operands. The inliner calls this once after
// splicing a callee's blocks in, rather than maintaining edges incrementally
// through the whole clone-and-rewrite process (spec.md §4.5 step 7).
func RebuildCFGEdges(fn *Function) {
	for _, b := range fn.Blocks {
		b.Preds = nil
		b.Succs = nil
	}
	for _, b := range fn.Blocks {
		for _, s := range successorsOf(b.Terminator()) {
			AddEdge(b, s)
		}
	}
}
