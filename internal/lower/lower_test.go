package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryc/ssair/internal/ast"
	"github.com/foundryc/ssair/internal/ir"
)

func TestLowerSimpleReturn(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "main",
			Returns: ast.Int,
			Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Value: &ast.IntLit{Val: 7}},
			}},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)

	main := mod.FindFunction("main")
	require.NotNil(t, main)
	require.NoError(t, ir.Verify(main))
	require.True(t, main.Entry().IsTerminated())
	ret := main.Entry().Terminator()
	require.Equal(t, ir.OpRet, ret.Op)
}

func TestLowerIfElseBothBranchesReturn(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "main",
			Params:  []ast.Param{{Name: "x", Type: ast.Int}},
			Returns: ast.Int,
			Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
				&ast.IfStmt{
					Cond: &ast.VarExpr{Name: "x"},
					Then: &ast.CompoundStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLit{Val: 1}}}},
					Else: &ast.CompoundStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLit{Val: 2}}}},
				},
			}},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)
	main := mod.FindFunction("main")
	require.NoError(t, ir.Verify(main))

	// entry, then, else, end — end is unreachable since both branches return,
	// but lowering still creates it and the default-terminator pass never
	// strips it; DCE's block sweep is what removes dead blocks later.
	require.Len(t, main.Blocks, 4)
}

func TestLowerWhileLoopStructure(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "main",
			Params:  []ast.Param{{Name: "n", Type: ast.Int}},
			Returns: ast.Void,
			Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
				&ast.WhileStmt{
					Cond: &ast.VarExpr{Name: "n"},
					Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
						&ast.ExprStmt{X: &ast.AssignExpr{
							Target: &ast.VarExpr{Name: "n"},
							Value: &ast.BinaryExpr{
								Op:    ast.Sub,
								Left:  &ast.VarExpr{Name: "n"},
								Right: &ast.IntLit{Val: 1},
							},
						}},
					}},
				},
			}},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)
	main := mod.FindFunction("main")
	require.NoError(t, ir.Verify(main))
	require.Len(t, main.Blocks, 4) // entry, cond, body, end
}

func TestLowerArrayIndexEmitsNegativeIndexGuard(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "main",
			Params:  []ast.Param{{Name: "i", Type: ast.Int}},
			Returns: ast.Int,
			Body: &ast.CompoundStmt{
				Locals: []*ast.VarDecl{{Name: "a", Type: ast.Int, ArrayLen: 10}},
				Stmts: []ast.Stmt{
					&ast.ReturnStmt{Value: &ast.VarExpr{Name: "a", Index: &ast.VarExpr{Name: "i"}}},
				},
			},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)
	main := mod.FindFunction("main")
	require.NoError(t, ir.Verify(main))

	var sawNegIdxCall bool
	for _, b := range main.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ir.OpCall && in.Callee().Name == "neg_idx_except" {
				sawNegIdxCall = true
			}
		}
	}
	require.True(t, sawNegIdxCall, "expected a call to neg_idx_except guarding the array index")
}

func TestLowerArrayParamDecaysThroughDoublePointerAlloca(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "sum",
			Params:  []ast.Param{{Name: "a", Type: ast.Int, IsArray: true}, {Name: "n", Type: ast.Int}},
			Returns: ast.Int,
			Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Value: &ast.VarExpr{Name: "a", Index: &ast.IntLit{Val: 0}}},
			}},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)
	fn := mod.FindFunction("sum")
	require.NoError(t, ir.Verify(fn))

	sig := fn.Signature()
	require.Equal(t, ir.KindPointer, sig.Params[0].Kind())
	ptrParam := sig.Params[0].(*ir.PointerType)
	require.Equal(t, ir.KindI32, ptrParam.Elem.Kind())

	slot := fn.Entry().Instrs[0]
	require.Equal(t, ir.OpAlloca, slot.Op)
	require.Equal(t, ptrParam, slot.Type().(*ir.PointerType).Elem, "the array parameter is spilled into a pointer-to-pointer alloca")
}

func TestLowerBinaryPromotesIntToFloat(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{
			Name:    "main",
			Returns: ast.Float,
			Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Value: &ast.BinaryExpr{
					Op:    ast.Add,
					Left:  &ast.IntLit{Val: 1},
					Right: &ast.FloatLit{Val: 2.5},
				}},
			}},
		},
	}}

	mod, err := Lower(prog)
	require.NoError(t, err)
	main := mod.FindFunction("main")
	require.NoError(t, ir.Verify(main))

	ret := main.Entry().Terminator()
	require.Equal(t, ir.KindF32, ret.RetValue().Type().Kind())
}

func TestLowerMissingMainStillLowersPresentFunctions(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Decl{
		&ast.FuncDecl{Name: "helper", Returns: ast.Void, Body: &ast.CompoundStmt{}},
	}}
	mod, err := Lower(prog)
	require.NoError(t, err)
	require.NotNil(t, mod.FindFunction("helper"))
}
