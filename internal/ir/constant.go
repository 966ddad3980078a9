package ir

import "fmt"

// Constant is any Value that carries a compile-time-known value: ConstantInt,
// ConstantFP, or ConstantZero (spec.md §3).
type Constant interface {
	Value
	isConstant()
}

// ConstantInt is a signed 32-bit integer constant.
type ConstantInt struct {
	def
	Val int32
}

// NewConstantInt builds an integer-kinded constant. t is ordinarily the
// module's interned I32 type, but icmp/fcmp folding (ConstPropagation)
// produces i1-typed 0/1 results from the same constructor, so t accepts
// either kind rather than narrowing to *I32Type.
func NewConstantInt(t Type, val int32) *ConstantInt {
	return &ConstantInt{def: def{typ: t}, Val: val}
}

func (c *ConstantInt) isConstant()  {}
func (c *ConstantInt) String() string { return fmt.Sprintf("%d", c.Val) }

// ConstantFP is a single-precision float constant.
type ConstantFP struct {
	def
	Val float32
}

// NewConstantFP builds an f32 constant.
func NewConstantFP(t *F32Type, val float32) *ConstantFP {
	return &ConstantFP{def: def{typ: t}, Val: val}
}

func (c *ConstantFP) isConstant()    {}
func (c *ConstantFP) String() string { return fmt.Sprintf("%g", c.Val) }

// ConstantZero is the aggregate (or scalar) zero initializer used for every
// global variable's default value.
type ConstantZero struct {
	def
}

// NewConstantZero builds the zero value of t.
func NewConstantZero(t Type) *ConstantZero {
	return &ConstantZero{def: def{typ: t}}
}

func (c *ConstantZero) isConstant()  {}
func (c *ConstantZero) String() string { return "zeroinitializer" }
