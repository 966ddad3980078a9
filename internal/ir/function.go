package ir

// Argument is a Function's formal parameter. It is a Value in its own right
// so callers' actual-argument operands and the body's uses of the parameter
// both flow through the ordinary use-list machinery.
type Argument struct {
	def
	Name   string
	Parent *Function
	Index  int
}

// Function is a named, typed, ordered sequence of basic blocks (spec.md
// §4.1). A Function with no blocks is a declaration only: internal/lower
// creates such declarations for neg_idx_except and for the runtime
// intrinsics a program calls.
type Function struct {
	def
	Name    string
	Parent  *Module
	Args    []*Argument
	Blocks  []*BasicBlock
	nextTmp int
}

// NewFunction creates an empty function of the given signature. Callers
// populate Args and Blocks via the Builder.
func NewFunction(name string, sig *FuncType) *Function {
	fn := &Function{def: def{typ: sig}, Name: name}
	for i, pt := range sig.Params {
		fn.Args = append(fn.Args, &Argument{def: def{typ: pt}, Parent: fn, Index: i})
	}
	return fn
}

// Signature returns the function's declared type.
func (fn *Function) Signature() *FuncType { return fn.typ.(*FuncType) }

// ReturnType returns the function's declared result type.
func (fn *Function) ReturnType() Type { return fn.Signature().Ret }

// Entry returns the function's first basic block, or nil if it has none.
func (fn *Function) Entry() *BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	return fn.Blocks[0]
}

// AppendBlock adds b to the end of fn's block list and sets its parent.
func (fn *Function) AppendBlock(b *BasicBlock) {
	b.Parent = fn
	fn.Blocks = append(fn.Blocks, b)
}

// InsertBlockAfter splices newB into fn's block list directly after after.
// The inliner uses this to place cloned callee blocks, its join block and
// its return-phi block after the caller's existing blocks.
func (fn *Function) InsertBlockAfter(after, newB *BasicBlock) {
	newB.Parent = fn
	for i, b := range fn.Blocks {
		if b == after {
			fn.Blocks = append(fn.Blocks[:i+1], append([]*BasicBlock{newB}, fn.Blocks[i+1:]...)...)
			return
		}
	}
	fn.Blocks = append(fn.Blocks, newB)
}

// RemoveBlock splices b out of fn's block list. Callers must have already
// detached every instruction inside b and rewired any remaining edges.
func (fn *Function) RemoveBlock(b *BasicBlock) {
	for i, cur := range fn.Blocks {
		if cur == b {
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			return
		}
	}
}

// FreshName returns a new block-local temporary name, used when the builder
// or a pass synthesizes an unnamed value (e.g. LICM's hoisted preheader
// label, the inliner's cloned block names).
func (fn *Function) FreshName(prefix string) string {
	fn.nextTmp++
	return prefix + itoa(fn.nextTmp)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
