// Package validator performs the category-1 "programmer bug in the input
// AST" diagnostics spec.md §7 requires before lowering ever runs: unknown
// identifiers, arity mismatches, duplicate names. It accumulates every
// error it finds rather than stopping at the first, the way the teacher's
// validator does, then returns them all joined together.
package validator

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/foundryc/ssair/internal/ast"
)

// Validator walks a Program and collects every diagnostic it finds.
type Validator struct {
	errs []string
}

// New creates an empty Validator.
func New() *Validator { return &Validator{} }

// ValidateProgram checks every declaration in prog and returns a single
// wrapped error listing all diagnostics found, or nil if the program is
// clean.
func (v *Validator) ValidateProgram(prog *ast.Program) error {
	v.errs = nil

	globals := map[string]*ast.VarDecl{}
	funcs := map[string]*ast.FuncDecl{}

	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			v.checkVarDecl(decl)
			if _, dup := globals[decl.Name]; dup {
				v.addf("duplicate global variable '%s'", decl.Name)
			}
			globals[decl.Name] = decl
		case *ast.FuncDecl:
			if _, dup := funcs[decl.Name]; dup {
				v.addf("duplicate function '%s'", decl.Name)
			}
			funcs[decl.Name] = decl
		default:
			v.addf("unknown top-level declaration %T", d)
		}
	}

	if _, ok := funcs["main"]; !ok {
		v.addf("program has no 'main' function")
	}

	for _, fn := range funcs {
		v.checkFunc(fn, globals, funcs)
	}

	if len(v.errs) == 0 {
		return nil
	}
	return errors.Errorf("validation errors:\n%s", strings.Join(v.errs, "\n"))
}

func (v *Validator) checkVarDecl(decl *ast.VarDecl) {
	if decl.Name == "" {
		v.addf("variable declaration missing a name")
	}
	if decl.Type == ast.Void {
		v.addf("variable '%s' cannot have type void", decl.Name)
	}
	if decl.ArrayLen < 0 {
		v.addf("array '%s' has negative length %d", decl.Name, decl.ArrayLen)
	}
}

func (v *Validator) checkFunc(fn *ast.FuncDecl, globals map[string]*ast.VarDecl, funcs map[string]*ast.FuncDecl) {
	if fn.Name == "" {
		v.addf("function declaration missing a name")
	}
	if fn.Body == nil {
		v.addf("function '%s' has no body", fn.Name)
		return
	}

	scope := newScope()
	for _, p := range fn.Params {
		if p.Name == "" {
			v.addf("function '%s': parameter missing a name", fn.Name)
			continue
		}
		if scope.declaredHere(p.Name) {
			v.addf("function '%s': duplicate parameter '%s'", fn.Name, p.Name)
		}
		scope.declare(p.Name, paramInfo{typ: p.Type, isArray: p.IsArray})
	}

	v.checkCompound(fn, fn.Body, scope, globals, funcs)
}

// paramInfo is everything the validator needs to know about a name once
// resolved: its scalar type and whether it denotes an array.
type paramInfo struct {
	typ     ast.ValueType
	isArray bool
}

// scope is a chain of frames mapping names to paramInfo, mirroring the
// symbol table internal/lower uses at lowering time (spec.md §4.2) closely
// enough that a program the validator accepts always resolves the same way
// during lowering.
type scope struct {
	frames []map[string]paramInfo
}

func newScope() *scope {
	return &scope{frames: []map[string]paramInfo{{}}}
}

func (s *scope) enter() { s.frames = append(s.frames, map[string]paramInfo{}) }
func (s *scope) exit()  { s.frames = s.frames[:len(s.frames)-1] }

func (s *scope) declare(name string, info paramInfo) {
	s.frames[len(s.frames)-1][name] = info
}

func (s *scope) declaredHere(name string) bool {
	_, ok := s.frames[len(s.frames)-1][name]
	return ok
}

func (s *scope) find(name string) (paramInfo, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if info, ok := s.frames[i][name]; ok {
			return info, true
		}
	}
	return paramInfo{}, false
}

func (v *Validator) checkCompound(fn *ast.FuncDecl, c *ast.CompoundStmt, sc *scope, globals map[string]*ast.VarDecl, funcs map[string]*ast.FuncDecl) {
	sc.enter()
	defer sc.exit()

	for _, local := range c.Locals {
		v.checkVarDecl(local)
		if sc.declaredHere(local.Name) {
			v.addf("function '%s': duplicate local '%s'", fn.Name, local.Name)
		}
		sc.declare(local.Name, paramInfo{typ: local.Type, isArray: local.ArrayLen > 0})
	}

	for _, stmt := range c.Stmts {
		v.checkStmt(fn, stmt, sc, globals, funcs)
	}
}

func (v *Validator) checkStmt(fn *ast.FuncDecl, stmt ast.Stmt, sc *scope, globals map[string]*ast.VarDecl, funcs map[string]*ast.FuncDecl) {
	switch s := stmt.(type) {
	case *ast.CompoundStmt:
		v.checkCompound(fn, s, sc, globals, funcs)
	case *ast.IfStmt:
		v.checkExpr(fn, s.Cond, sc, globals, funcs)
		if s.Then != nil {
			v.checkCompound(fn, s.Then, sc, globals, funcs)
		}
		if s.Else != nil {
			v.checkCompound(fn, s.Else, sc, globals, funcs)
		}
	case *ast.WhileStmt:
		v.checkExpr(fn, s.Cond, sc, globals, funcs)
		if s.Body != nil {
			v.checkCompound(fn, s.Body, sc, globals, funcs)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			v.checkExpr(fn, s.Value, sc, globals, funcs)
		} else if fn.Returns != ast.Void {
			v.addf("function '%s': bare return in non-void function", fn.Name)
		}
	case *ast.ExprStmt:
		v.checkExpr(fn, s.X, sc, globals, funcs)
	default:
		v.addf("function '%s': unknown statement %T", fn.Name, stmt)
	}
}

// runtimeIntrinsicArity is the fixed runtime helper set spec.md §4.5/§6
// names as the language's only I/O mechanism, mirrored from
// internal/lower/runtime.go's runtimeIntrinsics map (kept duplicated here for
// the same reason internal/passes/inline.go duplicates its own copy: a
// runtime intrinsic is identified purely by name, independent of how
// internal/lower happens to declare one). A program's AST never declares
// these functions, so checkExpr must accept a call to one of them the same
// way internal/lower.Lower does, or the validator rejects programs lowering
// accepts.
var runtimeIntrinsicArity = map[string]int{
	"getint": 0, "getch": 0, "getfloat": 0,
	"getarray": 1, "getfarray": 1,
	"putint": 1, "putch": 1, "putfloat": 1,
	"putarray": 2, "putfarray": 2,
	"memset_int": 3, "memset_float": 3,
	"_sysy_starttime": 1, "_sysy_stoptime": 1,
}

func (v *Validator) resolve(name string, sc *scope, globals map[string]*ast.VarDecl) (paramInfo, bool) {
	if info, ok := sc.find(name); ok {
		return info, true
	}
	if g, ok := globals[name]; ok {
		return paramInfo{typ: g.Type, isArray: g.ArrayLen > 0}, true
	}
	return paramInfo{}, false
}

func (v *Validator) checkExpr(fn *ast.FuncDecl, expr ast.Expr, sc *scope, globals map[string]*ast.VarDecl, funcs map[string]*ast.FuncDecl) {
	switch e := expr.(type) {
	case *ast.IntLit, *ast.FloatLit:
		// always valid
	case *ast.VarExpr:
		if _, ok := v.resolve(e.Name, sc, globals); !ok {
			v.addf("function '%s': undefined variable '%s'", fn.Name, e.Name)
		}
		if e.Index != nil {
			v.checkExpr(fn, e.Index, sc, globals, funcs)
		}
	case *ast.AssignExpr:
		if e.Target == nil {
			v.addf("function '%s': assignment missing a target", fn.Name)
		} else {
			v.checkExpr(fn, e.Target, sc, globals, funcs)
		}
		v.checkExpr(fn, e.Value, sc, globals, funcs)
	case *ast.BinaryExpr:
		v.checkExpr(fn, e.Left, sc, globals, funcs)
		v.checkExpr(fn, e.Right, sc, globals, funcs)
	case *ast.CallExpr:
		callee, ok := funcs[e.Name]
		if !ok {
			if arity, isRuntime := runtimeIntrinsicArity[e.Name]; isRuntime {
				if len(e.Args) != arity {
					v.addf("function '%s': call to '%s' has %d arguments, expected %d", fn.Name, e.Name, len(e.Args), arity)
				}
				for _, a := range e.Args {
					v.checkExpr(fn, a, sc, globals, funcs)
				}
				break
			}
			v.addf("function '%s': call to undefined function '%s'", fn.Name, e.Name)
			break
		}
		if len(e.Args) != len(callee.Params) {
			v.addf("function '%s': call to '%s' has %d arguments, expected %d", fn.Name, e.Name, len(e.Args), len(callee.Params))
		}
		for _, a := range e.Args {
			v.checkExpr(fn, a, sc, globals, funcs)
		}
	default:
		v.addf("function '%s': unknown expression %T", fn.Name, e)
	}
}

func (v *Validator) addf(format string, args ...interface{}) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}
