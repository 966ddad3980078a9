package ir

import "github.com/pkg/errors"

// Verify checks fn against the core invariants spec.md §3 requires to hold
// after any pass returns (terminator placement, CFG/use-list consistency,
// operand locality). It returns a plain error rather than panicking: callers
// that want the panic/recover InvariantError behavior wrap Verify's result
// themselves at a pass boundary.
func Verify(fn *Function) error {
	blockSet := make(map[*BasicBlock]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blockSet[b] = true
	}

	for _, b := range fn.Blocks {
		if err := verifyTerminator(b); err != nil {
			return err
		}
		if err := verifyOperandLocality(fn, b, blockSet); err != nil {
			return err
		}
		if err := verifyCFGEdges(b); err != nil {
			return err
		}
	}
	return verifyUseLists(fn)
}

func verifyTerminator(b *BasicBlock) error {
	if len(b.Instrs) == 0 {
		return errors.Errorf("block %s: empty block has no terminator", b.Name)
	}
	for idx, in := range b.Instrs {
		isLast := idx == len(b.Instrs)-1
		if in.IsTerminator() != isLast {
			if isLast {
				return errors.Errorf("block %s: last instruction is not a terminator", b.Name)
			}
			return errors.Errorf("block %s: terminator %s appears mid-block", b.Name, in.Op)
		}
	}
	return nil
}

func verifyCFGEdges(b *BasicBlock) error {
	term := b.Terminator()
	for _, s := range successorsOf(term) {
		found := false
		for _, p := range s.Preds {
			if p == b {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("block %s: successor %s missing back-edge", b.Name, s.Name)
		}
	}
	for _, s := range b.Succs {
		present := false
		for _, got := range successorsOf(term) {
			if got == s {
				present = true
				break
			}
		}
		if !present {
			return errors.Errorf("block %s: recorded successor %s not in terminator operands", b.Name, s.Name)
		}
	}
	return nil
}

func verifyOperandLocality(fn *Function, b *BasicBlock, blockSet map[*BasicBlock]bool) error {
	for _, in := range b.Instrs {
		for _, op := range in.Operands {
			switch v := op.(type) {
			case nil:
				return errors.Errorf("block %s: instruction %s has a nil operand", b.Name, in.Op)
			case Constant, *GlobalVariable, *Function:
				// always valid
			case *Argument:
				if v.Parent != fn {
					return errors.Errorf("block %s: argument %%%s belongs to a different function", b.Name, v.Name)
				}
			case *BasicBlock:
				if !blockSet[v] {
					return errors.Errorf("block %s: branch target %s is not in this function", b.Name, v.Name)
				}
			case *Instruction:
				if v.Parent == nil || v.Parent.Parent != fn {
					return errors.Errorf("block %s: operand instruction does not belong to this function", b.Name)
				}
			default:
				return errors.Errorf("block %s: operand of unrecognized Value kind %T", b.Name, v)
			}
		}
	}
	return nil
}

func verifyUseLists(fn *Function) error {
	expected := map[Value]map[Use]bool{}
	record := func(v Value, u Use) {
		if expected[v] == nil {
			expected[v] = map[Use]bool{}
		}
		expected[v][u] = true
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			for idx, op := range in.Operands {
				if op != nil {
					record(op, Use{User: in, Index: idx})
				}
			}
		}
	}
	seen := map[Value]bool{}
	for v, want := range expected {
		seen[v] = true
		got := map[Use]bool{}
		for _, u := range v.Uses() {
			got[u] = true
		}
		for u := range want {
			if !got[u] {
				return errors.Errorf("use list missing entry for user %s at index %d", u.User.Op, u.Index)
			}
		}
		for u := range got {
			if !want[u] {
				return errors.Errorf("use list has stale entry for user %s at index %d", u.User.Op, u.Index)
			}
		}
	}
	return nil
}
