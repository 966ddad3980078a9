// Package ast defines the small-language surface syntax that internal/lower
// consumes: global/local declarations, functions, statements, and
// expressions. There is no lexer or parser in this module (out of scope);
// callers build trees directly, the way internal/lower's own tests do.
package ast

// ValueType is the scalar type named by a declaration or parameter. The
// language has exactly two scalar kinds plus void for function returns.
type ValueType int

const (
	Int ValueType = iota
	Float
	Void
)

func (t ValueType) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Void:
		return "void"
	}
	return "unknown"
}

// Node is the root of every AST type.
type Node interface {
	node()
}

// Decl is a top-level declaration: a VarDecl or a FuncDecl.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression; every Expr also has a static ValueType once the
// lowerer has seen it, but the AST itself carries no type annotations — type
// derivation happens during lowering.
type Expr interface {
	Node
	exprNode()
}

// Program is the whole translation unit: an ordered list of global
// declarations and function definitions, exactly as they appear in source.
type Program struct {
	Decls []Decl
}

func (*Program) node() {}

// VarDecl declares a variable of Type, optionally as an array of length
// ArrayLen elements (ArrayLen == 0 means a scalar). At global scope this
// becomes a GlobalVariable; inside a function body it becomes an
// entry-block alloca (spec.md §4.2).
type VarDecl struct {
	Name     string
	Type     ValueType
	ArrayLen int // 0 for scalars
}

func (*VarDecl) node()     {}
func (*VarDecl) declNode() {}

// Param is one formal parameter. IsArray marks an array parameter, which
// lowers to a pointer-to-element parameter per spec.md §4.2.
type Param struct {
	Name    string
	Type    ValueType
	IsArray bool
}

// FuncDecl is a function definition. The language has no forward
// declarations separate from definitions, so every FuncDecl carries a body.
type FuncDecl struct {
	Name    string
	Params  []Param
	Returns ValueType
	Body    *CompoundStmt
}

func (*FuncDecl) node()     {}
func (*FuncDecl) declNode() {}

// CompoundStmt is a brace-delimited block: its own local declarations
// followed by statements, both lowered in order (spec.md §4.2 "Compound
// stmt").
type CompoundStmt struct {
	Locals []*VarDecl
	Stmts  []Stmt
}

func (*CompoundStmt) node()     {}
func (*CompoundStmt) stmtNode() {}

// IfStmt is `if (Cond) Then [else Else]`. Else is nil when the source has
// no else clause.
type IfStmt struct {
	Cond Expr
	Then *CompoundStmt
	Else *CompoundStmt
}

func (*IfStmt) node()     {}
func (*IfStmt) stmtNode() {}

// WhileStmt is `while (Cond) Body`.
type WhileStmt struct {
	Cond Expr
	Body *CompoundStmt
}

func (*WhileStmt) node()     {}
func (*WhileStmt) stmtNode() {}

// ReturnStmt is `return [Value];`. Value is nil for a bare return.
type ReturnStmt struct {
	Value Expr
}

func (*ReturnStmt) node()     {}
func (*ReturnStmt) stmtNode() {}

// ExprStmt is an expression evaluated for effect (an assignment or a call
// whose result is discarded).
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) node()     {}
func (*ExprStmt) stmtNode() {}

// IntLit is an integer literal.
type IntLit struct {
	Val int32
}

func (*IntLit) node()     {}
func (*IntLit) exprNode() {}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Val float32
}

func (*FloatLit) node()     {}
func (*FloatLit) exprNode() {}

// VarExpr is a reference to a declared scalar or array, optionally indexed.
// Index is nil when the reference names the whole variable (a bare scalar,
// or an array decaying to a pointer when passed as an argument).
type VarExpr struct {
	Name  string
	Index Expr // nil for non-indexed references
}

func (*VarExpr) node()     {}
func (*VarExpr) exprNode() {}

// AssignExpr is `Target = Value`; per spec.md §4.2 its own value is the
// stored value, so it can appear anywhere an Expr can (nested in another
// assignment's RHS, as a bare ExprStmt).
type AssignExpr struct {
	Target *VarExpr
	Value  Expr
}

func (*AssignExpr) node()     {}
func (*AssignExpr) exprNode() {}

// BinaryOp is the operator carried by a BinaryExpr: arithmetic operators
// lower to the matching arithmetic opcode, comparison operators lower to
// icmp/fcmp + zext (spec.md §4.2).
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

// BinaryExpr is `Left Op Right`.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// CallExpr is `Name(Args...)`.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) node()     {}
func (*CallExpr) exprNode() {}
