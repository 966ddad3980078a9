package passes

import (
	"github.com/sirupsen/logrus"

	"github.com/foundryc/ssair/internal/ir"
)

// runtimeIntrinsicNames is the fixed external symbol set spec.md §4.5 names
// as never eligible for inlining, mirrored from internal/lower's own set
// (kept duplicated rather than imported, since a runtime intrinsic is
// identified here purely by name on a bodyless Function, independent of how
// internal/lower happens to declare one).
var runtimeIntrinsicNames = map[string]bool{
	"getint": true, "getch": true, "getfloat": true, "getarray": true, "getfarray": true,
	"putint": true, "putch": true, "putarray": true, "putfloat": true, "putfarray": true,
	"memset_int": true, "memset_float": true, "_sysy_starttime": true, "_sysy_stoptime": true,
}

// FunctionInline splices small, non-recursive callees directly into their
// call sites (spec.md §4.5).
type FunctionInline struct {
	// BlockCountLimit is the size cap: a callee is only eligible with fewer
	// than this many basic blocks. Zero means "use the default" (6).
	BlockCountLimit int
	Logger          *logrus.Logger
}

func (p FunctionInline) Name() string { return "function-inline" }

func (p FunctionInline) limit() int {
	if p.BlockCountLimit > 0 {
		return p.BlockCountLimit
	}
	return 6
}

func (p FunctionInline) logger() *logrus.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

// Run scans every function; each eligible call site is inlined and the
// function's scan restarts, which terminates because every inlined callee is
// non-recursive and size-capped (spec.md §4.5).
func (p FunctionInline) Run(mod *ir.Module) error {
	recursive := selfRecursiveFunctions(mod)

	for _, fn := range mod.Functions {
		inlinedCount := 0
		for {
			site := findEligibleCallSite(fn, recursive, p.limit())
			if site == nil {
				break
			}
			inlineCallSite(fn, site)
			inlinedCount++
		}
		if inlinedCount > 0 {
			p.logger().WithFields(logrus.Fields{"function": fn.Name, "inlined": inlinedCount}).Debug("inlined call sites")
		}
	}
	return nil
}

func selfRecursiveFunctions(mod *ir.Module) map[*ir.Function]bool {
	recursive := map[*ir.Function]bool{}
	for _, fn := range mod.Functions {
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				if in.Op == ir.OpCall && in.Callee() == fn {
					recursive[fn] = true
				}
			}
		}
	}
	return recursive
}

func findEligibleCallSite(fn *ir.Function, recursive map[*ir.Function]bool, limit int) *ir.Instruction {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op != ir.OpCall {
				continue
			}
			g := in.Callee()
			if g == fn || recursive[g] || runtimeIntrinsicNames[g.Name] || len(g.Blocks) == 0 {
				continue
			}
			if len(g.Blocks) < limit {
				return in
			}
		}
	}
	return nil
}

// inlineCallSite performs the full per-site splice described in spec.md
// §4.5 steps 1-7.
func inlineCallSite(f *ir.Function, call *ir.Instruction) {
	g := call.Callee()
	c := call.Parent
	types := f.Parent.Types

	// Step 1: value map seeded with formal->actual argument bindings.
	vmap := map[ir.Value]ir.Value{}
	for i, arg := range g.Args {
		vmap[arg] = call.Args()[i]
	}

	// Step 2a: create every cloned block up front (empty), so forward and
	// back references between g's blocks resolve through vmap regardless of
	// clone order.
	cloned := make([]*ir.BasicBlock, len(g.Blocks))
	for i, b := range g.Blocks {
		nb := ir.NewBasicBlock(types.Label(), f.FreshName(g.Name+"_"+b.Name+"_"), f)
		cloned[i] = nb
		vmap[b] = nb
	}

	// Step 2b: clone every non-ret instruction by opcode, preserving
	// original operands (rewritten in step 3); phis land at the block start
	// automatically since Append preserves source order and a callee's phis
	// already sit first in their block.
	var clonedRets []*ir.Instruction
	for i, b := range g.Blocks {
		nb := cloned[i]
		for _, in := range b.Instrs {
			if in.Op == ir.OpRet {
				continue
			}
			clone := ir.CloneShell(in)
			for idx, op := range in.Operands {
				ir.SetOperand(clone, idx, op)
			}
			nb.Append(clone)
			vmap[in] = clone
		}
		if term := b.Terminator(); term != nil && term.Op == ir.OpRet {
			clone := ir.CloneShell(term)
			for idx, op := range term.Operands {
				ir.SetOperand(clone, idx, op)
			}
			nb.Append(clone)
			vmap[term] = clone
			clonedRets = append(clonedRets, clone)
		}
	}

	// Step 3: rewrite every new instruction's operands through the value
	// map (arguments, cloned instructions, and cloned blocks all route
	// through it uniformly).
	for _, nb := range cloned {
		for _, in := range nb.Instrs {
			for idx, op := range in.Operands {
				if repl, ok := vmap[op]; ok {
					ir.SetOperand(in, idx, repl)
				}
			}
		}
	}

	after := f.Blocks[len(f.Blocks)-1]
	for _, nb := range cloned {
		f.InsertBlockAfter(after, nb)
		after = nb
	}

	// Step 4: join block for the post-call continuation.
	j := ir.NewBasicBlock(types.Label(), f.FreshName("inline_join_"), f)
	f.InsertBlockAfter(after, j)

	// Step 5: return handling.
	var callResult ir.Value
	switch {
	case g.ReturnType().Kind() == ir.KindVoid:
		for _, ret := range clonedRets {
			retBlock := ret.Parent
			retBlock.Remove(ret)
			branchTo(retBlock, j)
		}
	case len(clonedRets) == 1:
		ret := clonedRets[0]
		v := ret.RetValue()
		retBlock := ret.Parent
		retBlock.Remove(ret)
		branchTo(retBlock, j)
		callResult = v
	default:
		phiBlock := ir.NewBasicBlock(types.Label(), f.FreshName("inline_retphi_"), f)
		f.InsertBlockAfter(after, phiBlock)
		b := ir.NewBuilder(types)
		b.SetInsertPoint(phiBlock)
		phi := b.CreatePhi(g.ReturnType())
		for _, ret := range clonedRets {
			v := ret.RetValue()
			retBlock := ret.Parent
			retBlock.Remove(ret)
			branchTo(retBlock, phiBlock)
			phi.AddIncoming(v, retBlock)
		}
		b.CreateBr(j)
		callResult = phi
	}

	// Step 6: splice into the call site's block: a branch to the first
	// cloned block replaces the call, everything after the call moves into
	// the join block so it becomes the fall-through continuation.
	callIdx := c.IndexOf(call)
	tail := append([]*ir.Instruction(nil), c.Instrs[callIdx+1:]...)
	c.Instrs = c.Instrs[:callIdx]
	ir.DetachOperands(call)

	if callResult != nil {
		ir.ReplaceAllUsesWith(call, callResult)
	}

	entry := ir.NewBuilder(types)
	entry.SetInsertPoint(c)
	entry.CreateBr(cloned[0])

	for _, in := range tail {
		j.Append(in)
	}

	// Step 7: rebuild predecessor/successor sets wholesale rather than
	// tracking every edge this splice touched piecemeal.
	ir.RebuildCFGEdges(f)
}

func branchTo(block, target *ir.BasicBlock) {
	b := ir.NewBuilder(target.Parent.Parent.Types)
	b.SetInsertPoint(block)
	b.CreateBr(target)
}
