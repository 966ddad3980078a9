// Package analysis provides the two collaborators the transform passes
// consume but spec.md explicitly keeps out of their own scope: a purity
// classifier (FuncInfo) and a natural-loop detector.
package analysis

import "github.com/foundryc/ssair/internal/ir"

// FuncInfo classifies every function in a module as pure or impure: pure
// means it performs no store reachable outside itself and transitively
// calls only pure functions (spec.md §6). LICM computes it once per run;
// DCE recomputes it at the start of each of its outer iterations.
type FuncInfo struct {
	pure map[*ir.Function]bool
}

// NewFuncInfo computes purity for every function in mod.
func NewFuncInfo(mod *ir.Module) *FuncInfo {
	fi := &FuncInfo{pure: make(map[*ir.Function]bool, len(mod.Functions))}

	// A function with no blocks is an external declaration (a runtime
	// intrinsic or neg_idx_except): its effects are unknown, so it is
	// impure by default.
	for _, fn := range mod.Functions {
		fi.pure[fn] = len(fn.Blocks) > 0 && !hasEscapingStore(fn)
	}

	// Purity only ever turns false as calls to impure callees are
	// discovered, so a simple relaxation to a fixed point terminates in at
	// most len(Functions) rounds.
	for changed := true; changed; {
		changed = false
		for _, fn := range mod.Functions {
			if !fi.pure[fn] {
				continue
			}
			if callsImpure(fn, fi.pure) {
				fi.pure[fn] = false
				changed = true
			}
		}
	}
	return fi
}

// IsPure reports whether fn is classified pure.
func (fi *FuncInfo) IsPure(fn *ir.Function) bool { return fi.pure[fn] }

func callsImpure(fn *ir.Function, pure map[*ir.Function]bool) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op != ir.OpCall {
				continue
			}
			callee := in.Callee()
			if callee == fn {
				continue // self-recursion does not by itself make a function impure
			}
			if !pure[callee] {
				return true
			}
		}
	}
	return false
}

// hasEscapingStore reports whether fn contains a store whose target is
// reachable from outside the function: a global, or a value read back out
// of a pointer-to-pointer parameter slot (the array-parameter pattern
// internal/lower builds). Stores to a function's own scalar/array allocas
// never escape, since that storage dies with the call.
func hasEscapingStore(fn *ir.Function) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ir.OpStore && storeEscapes(in.Operands[1]) {
				return true
			}
		}
	}
	return false
}

func storeEscapes(ptr ir.Value) bool {
	instr, ok := ptr.(*ir.Instruction)
	if !ok {
		// A GlobalVariable target always escapes; any other non-instruction
		// operand (an Argument used directly as a pointer) is conservatively
		// treated the same way.
		return true
	}
	switch instr.Op {
	case ir.OpAlloca:
		return false
	case ir.OpGEP:
		return storeEscapes(instr.Operands[0])
	default:
		// Notably OpLoad: the only loads of pointer-typed values this
		// lowering produces read an array parameter's incoming base address
		// back out of its double-pointer alloca, which is caller-owned
		// memory.
		return true
	}
}
