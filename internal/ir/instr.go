package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies the operation an Instruction performs. The set is
// exactly the opcode inventory of spec.md §4.1.
type Opcode int

const (
	OpAlloca Opcode = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpICmp
	OpFCmp
	OpSIToFP
	OpFPToSI
	OpZExt
	OpBr
	OpCondBr
	OpRet
	OpCall
	OpGEP
	OpPhi
)

func (op Opcode) String() string {
	switch op {
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpSDiv:
		return "sdiv"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	case OpICmp:
		return "icmp"
	case OpFCmp:
		return "fcmp"
	case OpSIToFP:
		return "sitofp"
	case OpFPToSI:
		return "fptosi"
	case OpZExt:
		return "zext"
	case OpBr:
		return "br"
	case OpCondBr:
		return "cond_br"
	case OpRet:
		return "ret"
	case OpCall:
		return "call"
	case OpGEP:
		return "getelementptr"
	case OpPhi:
		return "phi"
	}
	return "unknown"
}

// Predicate is the comparison kind carried by icmp/fcmp instructions.
type Predicate int

const (
	PredEQ Predicate = iota
	PredNE
	PredLT
	PredLE
	PredGT
	PredGE
)

func (p Predicate) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[p]
}

// Instruction is the workhorse Value variant: an opcode, a positional
// operand list, and (depending on opcode) a result type. Terminators
// (br, cond_br, ret) are ordinary Instructions that happen to sit last in
// their BasicBlock's Instrs slice; spec.md's "terminator" is a position
// property, not a separate Go type, per the tagged-variant design in
// spec.md §9.
type Instruction struct {
	def
	Op       Opcode
	Operands []Value
	Parent   *BasicBlock
	Pred     Predicate // meaningful only for OpICmp/OpFCmp
	Name     string    // optional, for debug printing only
}

// IsTerminator reports whether this instruction ends a basic block.
func (i *Instruction) IsTerminator() bool {
	switch i.Op {
	case OpBr, OpCondBr, OpRet:
		return true
	}
	return false
}

// HasSideEffects reports whether the instruction must never be deleted or
// hoisted purely because nothing reads its result (store, terminators,
// calls to impure functions — see DeadCode's "critical instruction" set in
// spec.md §4.4). Purity of calls is not decided here; callers consult
// FuncInfo separately.
func (i *Instruction) HasSideEffects() bool {
	switch i.Op {
	case OpStore, OpRet, OpBr, OpCondBr, OpPhi, OpCall:
		return true
	}
	return false
}

// Callee returns the called Function for an OpCall instruction.
func (i *Instruction) Callee() *Function {
	f, _ := i.Operands[0].(*Function)
	return f
}

// Args returns the argument operands for an OpCall instruction.
func (i *Instruction) Args() []Value { return i.Operands[1:] }

// PhiCount returns the number of (value, predecessor) pairs carried by an
// OpPhi instruction.
func (i *Instruction) PhiCount() int { return len(i.Operands) / 2 }

// PhiValue returns the k-th incoming value of an OpPhi instruction.
func (i *Instruction) PhiValue(k int) Value { return i.Operands[2*k] }

// PhiBlock returns the k-th incoming predecessor of an OpPhi instruction.
func (i *Instruction) PhiBlock(k int) *BasicBlock { return i.Operands[2*k+1].(*BasicBlock) }

// AddIncoming appends a (value, predecessor) pair to an OpPhi instruction.
func (i *Instruction) AddIncoming(val Value, pred *BasicBlock) {
	appendOperand(i, val)
	appendOperand(i, pred)
}

// RemovePhiOperand removes the incoming pair associated with pred, if any.
func (i *Instruction) RemovePhiOperand(pred *BasicBlock) {
	for k := 0; k < i.PhiCount(); k++ {
		if i.PhiBlock(k) == pred {
			vi, bi := 2*k, 2*k+1
			for _, op := range i.Operands {
				if op != nil {
					op.removeAllUsesBy(i)
				}
			}
			i.Operands = append(i.Operands[:vi], i.Operands[bi+1:]...)
			for idx, op := range i.Operands {
				if op != nil {
					op.addUse(Use{User: i, Index: idx})
				}
			}
			return
		}
	}
}

// Target returns the single successor of an OpBr instruction.
func (i *Instruction) Target() *BasicBlock { return i.Operands[0].(*BasicBlock) }

// CondBrOperands returns (cond, then, else) for an OpCondBr instruction.
func (i *Instruction) CondBrOperands() (Value, *BasicBlock, *BasicBlock) {
	return i.Operands[0], i.Operands[1].(*BasicBlock), i.Operands[2].(*BasicBlock)
}

// RetValue returns the returned value of an OpRet instruction, or nil for
// ret void.
func (i *Instruction) RetValue() Value {
	if len(i.Operands) == 0 {
		return nil
	}
	return i.Operands[0]
}

func (i *Instruction) String() string {
	var b strings.Builder
	if i.typ != nil && i.typ.Kind() != KindVoid {
		fmt.Fprintf(&b, "%%%p = ", i)
	}
	b.WriteString(i.Op.String())
	if i.Op == OpICmp || i.Op == OpFCmp {
		b.WriteString(" ")
		b.WriteString(i.Pred.String())
	}
	for idx, op := range i.Operands {
		if idx > 0 {
			b.WriteString(",")
		}
		b.WriteString(" ")
		fmt.Fprintf(&b, "%v", op)
	}
	return b.String()
}
