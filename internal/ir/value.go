package ir

// Use is one entry of a use list: it names the Instruction that reads an
// operand and the positional slot it reads it from (spec.md §3 invariant 3).
type Use struct {
	User  *Instruction
	Index int
}

// Value is the polymorphic root of the IR (spec.md §3). Every concrete
// variant embeds def, which is what actually satisfies this interface; the
// unexported methods keep the set of implementations closed to this package,
// matching the tagged-variant design spec.md §9 recommends over virtual
// dispatch.
type Value interface {
	Type() Type
	Uses() []Use
	addUse(u Use)
	removeUse(user *Instruction, index int)
	removeAllUsesBy(user *Instruction)
}

// def is embedded by every concrete Value to provide its type and use list.
type def struct {
	typ  Type
	uses []Use
}

func (d *def) Type() Type  { return d.typ }
func (d *def) Uses() []Use { return append([]Use(nil), d.uses...) }

func (d *def) addUse(u Use) {
	d.uses = append(d.uses, u)
}

func (d *def) removeUse(user *Instruction, index int) {
	for i, u := range d.uses {
		if u.User == user && u.Index == index {
			d.uses = append(d.uses[:i], d.uses[i+1:]...)
			return
		}
	}
}

// removeAllUsesBy drops every use entry belonging to user, regardless of
// index. Used when an instruction's whole operand list is being rebuilt
// (phi-pair removal) and per-index bookkeeping would otherwise have to track
// a shifting slice by hand.
func (d *def) removeAllUsesBy(user *Instruction) {
	kept := d.uses[:0]
	for _, u := range d.uses {
		if u.User != user {
			kept = append(kept, u)
		}
	}
	d.uses = kept
}

// IsUsed reports whether v has any remaining uses.
func IsUsed(v Value) bool { return len(v.Uses()) > 0 }

// setOperand writes val into instr's operand slot idx, detaching the
// previous occupant's use entry and registering a new one. Outside this
// function, operand slots are changed only by detachOperands and
// RemovePhiOperand, which update the use lists themselves; every pass in
// this module routes operand rewrites through it (or through
// ReplaceAllUsesWith/AppendOperand below) so invariant 3 in spec.md §3 can
// never be violated by a half-finished mutation.
func setOperand(instr *Instruction, idx int, val Value) {
	if old := instr.Operands[idx]; old != nil {
		old.removeUse(instr, idx)
	}
	instr.Operands[idx] = val
	if val != nil {
		val.addUse(Use{User: instr, Index: idx})
	}
}

// SetOperand is the exported form of setOperand, used by passes that rewrite
// an existing instruction's operand in place (LICM's branch retargeting onto
// the preheader, the inliner's value-map rewrite pass).
func SetOperand(instr *Instruction, idx int, val Value) { setOperand(instr, idx, val) }

// appendOperand grows instr's operand list by one slot and registers the use.
func appendOperand(instr *Instruction, val Value) {
	idx := len(instr.Operands)
	instr.Operands = append(instr.Operands, nil)
	setOperand(instr, idx, val)
}

// AppendOperand is the exported form of appendOperand (phi incoming-pair
// construction).
func AppendOperand(instr *Instruction, val Value) { appendOperand(instr, val) }

// detachOperands clears every operand slot of instr, removing instr from
// each operand's use list. Callers must ensure instr itself has no
// remaining users before detaching (DCE's sweep only detaches instructions
// it has already proven dead).
func detachOperands(instr *Instruction) {
	for i, v := range instr.Operands {
		if v != nil {
			v.removeUse(instr, i)
		}
		instr.Operands[i] = nil
	}
}

// DetachOperands is the exported form of detachOperands, used by the
// inliner when it deletes a spliced-out call without going through
// BasicBlock.Remove (the call's own block is being restructured around it,
// not just having one instruction pruned from an otherwise-intact list).
func DetachOperands(instr *Instruction) { detachOperands(instr) }

// ReplaceAllUsesWith rewrites every use of old to point at val instead,
// leaving old's own use list empty afterward.
func ReplaceAllUsesWith(old Value, val Value) {
	if old == val {
		return
	}
	for _, u := range old.Uses() {
		setOperand(u.User, u.Index, val)
	}
}
