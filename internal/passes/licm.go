package passes

import (
	"github.com/sirupsen/logrus"

	"github.com/foundryc/ssair/internal/analysis"
	"github.com/foundryc/ssair/internal/ir"
)

// LICM hoists loop-invariant instructions out of natural loops into a
// synthesized preheader, innermost loop first (spec.md §4.6).
type LICM struct {
	Logger *logrus.Logger
}

func (p LICM) Name() string { return "licm" }

func (p LICM) logger() *logrus.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

func (p LICM) Run(mod *ir.Module) error {
	fi := analysis.NewFuncInfo(mod)
	for _, fn := range mod.Functions {
		if len(fn.Blocks) == 0 {
			continue
		}
		forest := analysis.BuildLoopForest(fn)
		total := 0
		for _, lp := range forest.TopLevel {
			total += p.processLoop(fn, lp, fi)
		}
		if total > 0 {
			p.logger().WithFields(logrus.Fields{"function": fn.Name, "hoisted": total}).Debug("hoisted loop-invariant instructions")
		}
	}
	return nil
}

// processLoop runs the 7-step algorithm for lp (post-order: its sub-loops
// first), returning the number of instructions hoisted in lp and below.
func (p LICM) processLoop(fn *ir.Function, lp *analysis.Loop, fi *analysis.FuncInfo) int {
	hoisted := 0
	for _, sub := range lp.SubLoops {
		hoisted += p.processLoop(fn, sub, fi)
	}

	blocks := loopBlocksInOrder(fn, lp)
	instrSet, instrsInOrder := collectLoopInstructions(blocks)
	updatedGlobals, impureCall := scanLoop(instrsInOrder, fi)
	invariantOrder := classifyInvariant(instrsInOrder, instrSet, updatedGlobals, impureCall, fi)

	types := fn.Parent.Types
	header := lp.Header

	// Step 3: preheader.
	preheader := lp.Preheader
	if preheader == nil {
		preheader = ir.NewBasicBlock(types.Label(), fn.FreshName("preheader_"), fn)
		fn.AppendBlock(preheader)
		lp.Preheader = preheader
	}

	// Step 4: redirect every non-latch predecessor of header to preheader.
	latchSet := map[*ir.BasicBlock]bool{}
	for _, l := range lp.Latches {
		latchSet[l] = true
	}
	for _, pred := range append([]*ir.BasicBlock(nil), header.Preds...) {
		if latchSet[pred] || pred == preheader {
			continue
		}
		retarget(pred.Terminator(), header, preheader)
		ir.RemoveEdge(pred, header)
		ir.AddEdge(pred, preheader)
	}

	// Step 5: header phi fix-up, partitioned by latch membership.
	for _, in := range append([]*ir.Instruction(nil), header.Instrs...) {
		if in.Op != ir.OpPhi {
			break
		}
		var nonLatchVals []ir.Value
		var nonLatchPreds []*ir.BasicBlock
		for k := 0; k < in.PhiCount(); k++ {
			blk := in.PhiBlock(k)
			if !latchSet[blk] {
				nonLatchVals = append(nonLatchVals, in.PhiValue(k))
				nonLatchPreds = append(nonLatchPreds, blk)
			}
		}
		if len(nonLatchPreds) == 0 {
			continue
		}
		b := ir.NewBuilder(types)
		b.SetInsertPoint(preheader)
		newPhi := b.CreatePhi(in.Type())
		for i, blk := range nonLatchPreds {
			newPhi.AddIncoming(nonLatchVals[i], blk)
		}
		for _, blk := range nonLatchPreds {
			in.RemovePhiOperand(blk)
		}
		in.AddIncoming(newPhi, preheader)
	}

	// Step 6: hoist, in discovery order.
	for _, in := range invariantOrder {
		origBlock := in.Parent
		idx := origBlock.IndexOf(in)
		origBlock.Instrs = append(origBlock.Instrs[:idx], origBlock.Instrs[idx+1:]...)
		preheader.Append(in)
		hoisted++
	}
	b := ir.NewBuilder(types)
	b.SetInsertPoint(preheader)
	b.CreateBr(header)

	// Step 7: register the new preheader with the enclosing loop, if any.
	if lp.Parent != nil {
		lp.Parent.Blocks[preheader] = true
	}

	return hoisted
}

func retarget(term *ir.Instruction, from, to *ir.BasicBlock) {
	for idx, op := range term.Operands {
		if bb, ok := op.(*ir.BasicBlock); ok && bb == from {
			ir.SetOperand(term, idx, to)
		}
	}
}

func loopBlocksInOrder(fn *ir.Function, lp *analysis.Loop) []*ir.BasicBlock {
	var blocks []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if lp.Contains(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func collectLoopInstructions(blocks []*ir.BasicBlock) (map[*ir.Instruction]bool, []*ir.Instruction) {
	set := map[*ir.Instruction]bool{}
	var order []*ir.Instruction
	for _, b := range blocks {
		for _, in := range b.Instrs {
			set[in] = true
			order = append(order, in)
		}
	}
	return set, order
}

func scanLoop(instrs []*ir.Instruction, fi *analysis.FuncInfo) (map[*ir.GlobalVariable]bool, bool) {
	updated := map[*ir.GlobalVariable]bool{}
	impure := false
	for _, in := range instrs {
		if in.Op == ir.OpStore {
			if g, ok := underlyingGlobal(in.Operands[1]); ok {
				updated[g] = true
			}
		}
		if in.Op == ir.OpCall && !fi.IsPure(in.Callee()) {
			impure = true
		}
	}
	return updated, impure
}

// underlyingGlobal walks a chain of getelementptr instructions back to its
// base, reporting the GlobalVariable it ultimately addresses, if any.
func underlyingGlobal(ptr ir.Value) (*ir.GlobalVariable, bool) {
	switch v := ptr.(type) {
	case *ir.GlobalVariable:
		return v, true
	case *ir.Instruction:
		if v.Op == ir.OpGEP {
			return underlyingGlobal(v.Operands[0])
		}
	}
	return nil, false
}

var licmExcludedOps = map[ir.Opcode]bool{
	ir.OpAlloca: true, ir.OpStore: true, ir.OpRet: true, ir.OpBr: true, ir.OpCondBr: true, ir.OpPhi: true,
}

// classifyInvariant runs the fixed-point loop of spec.md §4.6 step 2,
// returning hoistable instructions in the order they were proven invariant.
func classifyInvariant(
	instrs []*ir.Instruction,
	inLoop map[*ir.Instruction]bool,
	updatedGlobals map[*ir.GlobalVariable]bool,
	impureCall bool,
	fi *analysis.FuncInfo,
) []*ir.Instruction {
	invariant := map[*ir.Instruction]bool{}
	var order []*ir.Instruction

	changed := true
	for changed {
		changed = false
		for _, in := range instrs {
			if invariant[in] || licmExcludedOps[in.Op] {
				continue
			}
			if in.Op == ir.OpCall && !fi.IsPure(in.Callee()) {
				continue
			}
			if in.Op == ir.OpLoad {
				g, ok := underlyingGlobal(in.Operands[0])
				if !ok || updatedGlobals[g] || impureCall {
					continue
				}
			}
			if !operandsReady(in, inLoop, invariant) {
				continue
			}
			invariant[in] = true
			order = append(order, in)
			changed = true
		}
	}
	return order
}

func operandsReady(in *ir.Instruction, inLoop, invariant map[*ir.Instruction]bool) bool {
	for _, op := range in.Operands {
		opInstr, ok := op.(*ir.Instruction)
		if !ok {
			continue // constants, globals, functions, arguments: always outside the loop
		}
		if inLoop[opInstr] && !invariant[opInstr] {
			return false
		}
	}
	return true
}
