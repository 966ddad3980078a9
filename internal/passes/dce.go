package passes

import (
	"github.com/sirupsen/logrus"

	"github.com/foundryc/ssair/internal/analysis"
	"github.com/foundryc/ssair/internal/ir"
)

// DeadCode is a mark-and-sweep pass: unreachable blocks are pruned, then
// instructions not reachable from a critical root are removed, then unused
// functions and globals are dropped from the module (spec.md §4.4).
type DeadCode struct {
	Logger *logrus.Logger
}

func (d DeadCode) Name() string { return "dead-code" }

func (d DeadCode) logger() *logrus.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logrus.StandardLogger()
}

// Run repeats block pruning, mark/sweep, and a global sweep until a whole
// outer iteration makes no change.
func (d DeadCode) Run(mod *ir.Module) error {
	for {
		changed := false
		fi := analysis.NewFuncInfo(mod)

		for _, fn := range mod.Functions {
			if pruneUnreachableBlocks(fn) {
				changed = true
			}
			erased := markAndSweep(fn, fi)
			if erased > 0 {
				changed = true
				d.logger().WithFields(logrus.Fields{"function": fn.Name, "erased": erased}).Debug("dead code pass erased instructions")
			}
		}

		if sweepGlobally(mod) {
			changed = true
		}

		if !changed {
			return nil
		}
	}
}

// pruneUnreachableBlocks deletes every non-entry block with no predecessors.
// A dead block can still be named as a predecessor in a successor's phi
// nodes, so those incoming pairs are dropped before the edges themselves.
func pruneUnreachableBlocks(fn *ir.Function) bool {
	changed := false
	for {
		var dead *ir.BasicBlock
		for i, b := range fn.Blocks {
			if i == 0 {
				continue // entry always survives
			}
			if len(b.Preds) == 0 {
				dead = b
				break
			}
		}
		if dead == nil {
			return changed
		}
		for _, s := range append([]*ir.BasicBlock(nil), dead.Succs...) {
			for _, in := range s.Instrs {
				if in.Op == ir.OpPhi {
					in.RemovePhiOperand(dead)
				}
			}
			ir.RemoveEdge(dead, s)
		}
		for _, in := range append([]*ir.Instruction(nil), dead.Instrs...) {
			dead.Remove(in)
		}
		fn.RemoveBlock(dead)
		changed = true
	}
}

// markAndSweep runs the critical-instruction-seeded fixed point and removes
// everything left unmarked, returning the count erased.
func markAndSweep(fn *ir.Function, fi *analysis.FuncInfo) int {
	marked := map[*ir.Instruction]bool{}
	var worklist []*ir.Instruction

	mark := func(in *ir.Instruction) {
		if !marked[in] {
			marked[in] = true
			worklist = append(worklist, in)
		}
	}

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if isCritical(in, fi) {
				mark(in)
			}
		}
	}

	for len(worklist) > 0 {
		in := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, op := range in.Operands {
			if used, ok := op.(*ir.Instruction); ok && used.Parent != nil && used.Parent.Parent == fn {
				mark(used)
			}
		}
	}

	erased := 0
	for _, b := range fn.Blocks {
		for _, in := range append([]*ir.Instruction(nil), b.Instrs...) {
			if !marked[in] {
				ir.Assert("dead-code", !ir.IsUsed(in), "erasing instruction %s in %s still has uses", in.Name, fn.Name)
				b.Remove(in)
				erased++
			}
		}
	}
	return erased
}

func isCritical(in *ir.Instruction, fi *analysis.FuncInfo) bool {
	switch in.Op {
	case ir.OpStore, ir.OpRet, ir.OpBr, ir.OpCondBr, ir.OpPhi:
		return true
	case ir.OpCall:
		return !fi.IsPure(in.Callee()) || ir.IsUsed(in)
	}
	return ir.IsUsed(in)
}

// sweepGlobally removes functions (other than main) and globals with empty
// use lists. Run once per outer DCE iteration.
func sweepGlobally(mod *ir.Module) bool {
	changed := false

	for _, fn := range append([]*ir.Function(nil), mod.Functions...) {
		if fn.Name == "main" {
			continue
		}
		if !ir.IsUsed(fn) {
			mod.RemoveFunction(fn)
			changed = true
		}
	}

	var keptGlobals []*ir.GlobalVariable
	for _, g := range mod.Globals {
		if ir.IsUsed(g) {
			keptGlobals = append(keptGlobals, g)
		} else {
			changed = true
		}
	}
	mod.Globals = keptGlobals

	return changed
}
