package ir

// Builder tracks an insertion point (a BasicBlock plus an implicit
// end-of-list cursor) and exposes one CreateXxx method per spec.md §4.1
// opcode. Lowering drives a single Builder across an entire function; the
// passes construct their own scratch Builder when they need to splice in new
// instructions (LICM's preheader body, the inliner's call-site replacement).
type Builder struct {
	types *TypeInterner
	block *BasicBlock
}

// NewBuilder creates a Builder with no insertion point set.
func NewBuilder(types *TypeInterner) *Builder { return &Builder{types: types} }

// SetInsertPoint redirects subsequent CreateXxx calls to append to b.
func (bd *Builder) SetInsertPoint(b *BasicBlock) { bd.block = b }

// InsertBlock returns the block future instructions will be appended to.
func (bd *Builder) InsertBlock() *BasicBlock { return bd.block }

func (bd *Builder) emit(instr *Instruction) *Instruction {
	bd.block.Append(instr)
	return instr
}

// CreateAlloca allocates stack storage for one value of type elem, yielding
// a pointer-to-elem result.
func (bd *Builder) CreateAlloca(elem Type) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.Pointer(elem)}, Op: OpAlloca}
	return bd.emit(instr)
}

// CreateLoad reads through a pointer-typed operand.
func (bd *Builder) CreateLoad(ptr Value) *Instruction {
	pt := AsPointer(ptr.Type())
	instr := &Instruction{def: def{typ: pt.Elem}, Op: OpLoad, Operands: []Value{nil}}
	setOperand(instr, 0, ptr)
	return bd.emit(instr)
}

// CreateStore writes val through ptr. Store has no result (void type).
func (bd *Builder) CreateStore(val, ptr Value) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.Void()}, Op: OpStore, Operands: []Value{nil, nil}}
	setOperand(instr, 0, val)
	setOperand(instr, 1, ptr)
	return bd.emit(instr)
}

func (bd *Builder) createBinary(op Opcode, resultType Type, lhs, rhs Value) *Instruction {
	instr := &Instruction{def: def{typ: resultType}, Op: op, Operands: []Value{nil, nil}}
	setOperand(instr, 0, lhs)
	setOperand(instr, 1, rhs)
	return bd.emit(instr)
}

func (bd *Builder) CreateAdd(lhs, rhs Value) *Instruction { return bd.createBinary(OpAdd, bd.types.I32(), lhs, rhs) }
func (bd *Builder) CreateSub(lhs, rhs Value) *Instruction { return bd.createBinary(OpSub, bd.types.I32(), lhs, rhs) }
func (bd *Builder) CreateMul(lhs, rhs Value) *Instruction { return bd.createBinary(OpMul, bd.types.I32(), lhs, rhs) }
func (bd *Builder) CreateSDiv(lhs, rhs Value) *Instruction {
	return bd.createBinary(OpSDiv, bd.types.I32(), lhs, rhs)
}
func (bd *Builder) CreateFAdd(lhs, rhs Value) *Instruction { return bd.createBinary(OpFAdd, bd.types.F32(), lhs, rhs) }
func (bd *Builder) CreateFSub(lhs, rhs Value) *Instruction { return bd.createBinary(OpFSub, bd.types.F32(), lhs, rhs) }
func (bd *Builder) CreateFMul(lhs, rhs Value) *Instruction { return bd.createBinary(OpFMul, bd.types.F32(), lhs, rhs) }
func (bd *Builder) CreateFDiv(lhs, rhs Value) *Instruction { return bd.createBinary(OpFDiv, bd.types.F32(), lhs, rhs) }

// CreateICmp compares two i32 operands under pred, yielding i1.
func (bd *Builder) CreateICmp(pred Predicate, lhs, rhs Value) *Instruction {
	instr := bd.createBinary(OpICmp, bd.types.I1(), lhs, rhs)
	instr.Pred = pred
	return instr
}

// CreateFCmp compares two f32 operands under pred, yielding i1.
func (bd *Builder) CreateFCmp(pred Predicate, lhs, rhs Value) *Instruction {
	instr := bd.createBinary(OpFCmp, bd.types.I1(), lhs, rhs)
	instr.Pred = pred
	return instr
}

// CreateSIToFP converts an i32 operand to f32.
func (bd *Builder) CreateSIToFP(val Value) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.F32()}, Op: OpSIToFP, Operands: []Value{nil}}
	setOperand(instr, 0, val)
	return bd.emit(instr)
}

// CreateFPToSI converts an f32 operand to i32 (truncating toward zero).
func (bd *Builder) CreateFPToSI(val Value) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.I32()}, Op: OpFPToSI, Operands: []Value{nil}}
	setOperand(instr, 0, val)
	return bd.emit(instr)
}

// CreateZExt widens an i1 operand to i32 (0 or 1).
func (bd *Builder) CreateZExt(val Value) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.I32()}, Op: OpZExt, Operands: []Value{nil}}
	setOperand(instr, 0, val)
	return bd.emit(instr)
}

// CreateBr emits an unconditional branch to target.
func (bd *Builder) CreateBr(target *BasicBlock) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.Void()}, Op: OpBr, Operands: []Value{nil}}
	setOperand(instr, 0, target)
	AddEdge(bd.block, target)
	return bd.emit(instr)
}

// CreateCondBr emits a conditional branch. If thenB == elseB the builder
// still records two identical operand slots, matching §4.1's br-as-degenerate-
// cond_br note.
func (bd *Builder) CreateCondBr(cond Value, thenB, elseB *BasicBlock) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.Void()}, Op: OpCondBr, Operands: []Value{nil, nil, nil}}
	setOperand(instr, 0, cond)
	setOperand(instr, 1, thenB)
	setOperand(instr, 2, elseB)
	AddEdge(bd.block, thenB)
	if elseB != thenB {
		AddEdge(bd.block, elseB)
	}
	return bd.emit(instr)
}

// CreateRet emits a return of val (or void if val is nil).
func (bd *Builder) CreateRet(val Value) *Instruction {
	instr := &Instruction{def: def{typ: bd.types.Void()}, Op: OpRet}
	if val != nil {
		instr.Operands = []Value{nil}
		setOperand(instr, 0, val)
	}
	return bd.emit(instr)
}

// CreateCall emits a call to callee with args. callee must be a *Function
// already present in the module.
func (bd *Builder) CreateCall(callee *Function, args []Value) *Instruction {
	instr := &Instruction{def: def{typ: callee.ReturnType()}, Op: OpCall, Operands: make([]Value, 1+len(args))}
	setOperand(instr, 0, callee)
	for i, a := range args {
		setOperand(instr, 1+i, a)
	}
	return bd.emit(instr)
}

// CreateGEP computes an element address from base (a pointer) and indices.
// One index selects into a pointer's pointee directly (pointer-parameter
// indexing); two indices select array-index-0 then the element (local array
// indexing) — matching the two distinct GEP shapes in cminusf_builder.cpp.
func (bd *Builder) CreateGEP(base Value, indices []Value) *Instruction {
	elem := gepResultElem(base.Type(), len(indices))
	instr := &Instruction{
		def:      def{typ: bd.types.Pointer(elem)},
		Op:       OpGEP,
		Operands: make([]Value, 1+len(indices)),
	}
	setOperand(instr, 0, base)
	for i, idx := range indices {
		setOperand(instr, 1+i, idx)
	}
	return bd.emit(instr)
}

func gepResultElem(baseType Type, numIndices int) Type {
	pt := AsPointer(baseType)
	if numIndices == 1 {
		return pt.Elem
	}
	if at, ok := pt.Elem.(*ArrayType); ok {
		return at.Elem
	}
	return pt.Elem
}

// CreatePhi emits an empty phi node of the given type at the start of the
// current block. Incoming pairs are added afterward with AddIncoming, since
// a phi's predecessors are only known once every predecessor block exists
// (spec.md §4.2 step on sealing blocks).
func (bd *Builder) CreatePhi(t Type) *Instruction {
	instr := &Instruction{def: def{typ: t}, Op: OpPhi}
	bd.block.InsertAtStart(instr)
	instr.Parent = bd.block
	return instr
}
