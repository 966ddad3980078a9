package ir

// CloneShell builds a detached instruction with in's opcode, predicate, and
// result type, and an operand slice of the same length with every slot
// still empty. The inliner fills slots in with SetOperand once it knows
// which operands to preserve verbatim (a call's callee) and which to send
// through its value map (spec.md §4.5 steps 2-3); a two-phase clone-then-
// rewrite is required because a phi can reference a value defined in a
// block this function hasn't cloned yet.
func CloneShell(in *Instruction) *Instruction {
	return &Instruction{
		def:      def{typ: in.typ},
		Op:       in.Op,
		Pred:     in.Pred,
		Operands: make([]Value, len(in.Operands)),
	}
}
