package passes

import (
	"math"

	"github.com/foundryc/ssair/internal/ir"
)

// ConstPropagation folds every instruction whose operands are all constants,
// replacing its uses with a fresh constant (spec.md §4.3). It never removes
// the now-dead instruction itself; that is DeadCode's job.
type ConstPropagation struct{}

func (ConstPropagation) Name() string { return "const-propagation" }

// Run makes a single forward pass over every function. It is safe, but not
// required, to call Run repeatedly to a fixed point.
func (ConstPropagation) Run(mod *ir.Module) error {
	for _, fn := range mod.Functions {
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				if folded := foldInstruction(in); folded != nil {
					ir.ReplaceAllUsesWith(in, folded)
				}
			}
		}
	}
	return nil
}

func foldInstruction(in *ir.Instruction) ir.Value {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpSDiv:
		return foldIntBinary(in)
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		return foldFloatBinary(in)
	case ir.OpICmp:
		return foldIntCompare(in)
	case ir.OpFCmp:
		return foldFloatCompare(in)
	case ir.OpSIToFP:
		return foldSIToFP(in)
	case ir.OpFPToSI:
		return foldFPToSI(in)
	}
	return nil
}

func asConstInt(v ir.Value) (*ir.ConstantInt, bool) {
	c, ok := v.(*ir.ConstantInt)
	return c, ok
}

func asConstFP(v ir.Value) (*ir.ConstantFP, bool) {
	c, ok := v.(*ir.ConstantFP)
	return c, ok
}

func foldIntBinary(in *ir.Instruction) ir.Value {
	lhs, ok1 := asConstInt(in.Operands[0])
	rhs, ok2 := asConstInt(in.Operands[1])
	if !ok1 || !ok2 {
		return nil
	}
	var result int32
	switch in.Op {
	case ir.OpAdd:
		result = lhs.Val + rhs.Val
	case ir.OpSub:
		result = lhs.Val - rhs.Val
	case ir.OpMul:
		result = lhs.Val * rhs.Val
	case ir.OpSDiv:
		if rhs.Val == 0 {
			// Division by exact zero does not fold; left for the back-end/runtime.
			return nil
		}
		result = lhs.Val / rhs.Val
	}
	return ir.NewConstantInt(in.Type(), result)
}

func foldFloatBinary(in *ir.Instruction) ir.Value {
	lhs, ok1 := asConstFP(in.Operands[0])
	rhs, ok2 := asConstFP(in.Operands[1])
	if !ok1 || !ok2 {
		return nil
	}
	var result float32
	switch in.Op {
	case ir.OpFAdd:
		result = lhs.Val + rhs.Val
	case ir.OpFSub:
		result = lhs.Val - rhs.Val
	case ir.OpFMul:
		result = lhs.Val * rhs.Val
	case ir.OpFDiv:
		if rhs.Val == 0 {
			return nil
		}
		result = lhs.Val / rhs.Val
	}
	return ir.NewConstantFP(in.Type().(*ir.F32Type), result)
}

func foldIntCompare(in *ir.Instruction) ir.Value {
	lhs, ok1 := asConstInt(in.Operands[0])
	rhs, ok2 := asConstInt(in.Operands[1])
	if !ok1 || !ok2 {
		return nil
	}
	return boolConst(in, evalPredicate(in.Pred, float64(lhs.Val), float64(rhs.Val)))
}

func foldFloatCompare(in *ir.Instruction) ir.Value {
	lhs, ok1 := asConstFP(in.Operands[0])
	rhs, ok2 := asConstFP(in.Operands[1])
	if !ok1 || !ok2 {
		return nil
	}
	return boolConst(in, evalPredicate(in.Pred, float64(lhs.Val), float64(rhs.Val)))
}

func evalPredicate(pred ir.Predicate, a, b float64) bool {
	switch pred {
	case ir.PredEQ:
		return a == b
	case ir.PredNE:
		return a != b
	case ir.PredLT:
		return a < b
	case ir.PredLE:
		return a <= b
	case ir.PredGT:
		return a > b
	case ir.PredGE:
		return a >= b
	}
	return false
}

// boolConst builds the 0/1 ConstantInt a folded comparison produces, typed
// at the comparison's own result type (i1), so a zext lowering inserted
// after the comparison still receives an i1 operand.
func boolConst(in *ir.Instruction, result bool) ir.Value {
	var v int32
	if result {
		v = 1
	}
	return ir.NewConstantInt(in.Type(), v)
}

func foldSIToFP(in *ir.Instruction) ir.Value {
	c, ok := asConstInt(in.Operands[0])
	if !ok {
		return nil
	}
	return ir.NewConstantFP(in.Type().(*ir.F32Type), float32(c.Val))
}

func foldFPToSI(in *ir.Instruction) ir.Value {
	c, ok := asConstFP(in.Operands[0])
	if !ok {
		return nil
	}
	return ir.NewConstantInt(in.Type(), int32(math.Trunc(float64(c.Val))))
}
