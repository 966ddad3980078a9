package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryc/ssair/internal/ir"
)

// buildCountingLoop builds:
//
//	entry -> cond -> body -> cond (back-edge)
//	cond  -> exit
//
// the canonical single natural loop with header cond, latch body.
func buildCountingLoop(t *testing.T) (*ir.Function, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock) {
	t.Helper()
	types := ir.NewTypeInterner()
	sig := types.Func(types.Void(), []ir.Type{types.I32()})
	fn := ir.NewFunction("loopy", sig)

	entry := ir.NewBasicBlock(types.Label(), "entry", fn)
	cond := ir.NewBasicBlock(types.Label(), "cond", fn)
	body := ir.NewBasicBlock(types.Label(), "body", fn)
	exit := ir.NewBasicBlock(types.Label(), "exit", fn)
	fn.AppendBlock(entry)
	fn.AppendBlock(cond)
	fn.AppendBlock(body)
	fn.AppendBlock(exit)

	b := ir.NewBuilder(types)
	b.SetInsertPoint(entry)
	b.CreateBr(cond)

	b.SetInsertPoint(cond)
	b.CreateCondBr(fn.Args[0], body, exit)

	b.SetInsertPoint(body)
	b.CreateBr(cond)

	b.SetInsertPoint(exit)
	b.CreateRet(nil)

	return fn, entry, cond, body, exit
}

func TestBuildLoopForestFindsSingleNaturalLoop(t *testing.T) {
	fn, _, cond, body, exit := buildCountingLoop(t)
	forest := BuildLoopForest(fn)

	require.Len(t, forest.TopLevel, 1)
	lp := forest.TopLevel[0]
	require.Equal(t, cond, lp.Header)
	require.Equal(t, []*ir.BasicBlock{body}, lp.Latches)
	require.True(t, lp.Contains(cond))
	require.True(t, lp.Contains(body))
	require.False(t, lp.Contains(exit))
	require.Empty(t, lp.SubLoops)
	require.Nil(t, lp.Parent)
}

func TestBuildLoopForestNoLoopsForStraightLineFunction(t *testing.T) {
	types := ir.NewTypeInterner()
	sig := types.Func(types.Void(), nil)
	fn := ir.NewFunction("straight", sig)
	entry := ir.NewBasicBlock(types.Label(), "entry", fn)
	fn.AppendBlock(entry)
	b := ir.NewBuilder(types)
	b.SetInsertPoint(entry)
	b.CreateRet(nil)

	forest := BuildLoopForest(fn)
	require.Empty(t, forest.TopLevel)
}

// TestBuildLoopForestFindsNestedLoop builds a loop whose body is itself a loop:
//
//	entry -> outer
//	outer -> inner (cond_br)
//	inner -> inner (back-edge) / -> outer (cond_br)
//	outer -> exit
func TestBuildLoopForestFindsNestedLoop(t *testing.T) {
	types := ir.NewTypeInterner()
	sig := types.Func(types.Void(), []ir.Type{types.I32()})
	fn := ir.NewFunction("nested", sig)

	entry := ir.NewBasicBlock(types.Label(), "entry", fn)
	outer := ir.NewBasicBlock(types.Label(), "outer", fn)
	inner := ir.NewBasicBlock(types.Label(), "inner", fn)
	exit := ir.NewBasicBlock(types.Label(), "exit", fn)
	fn.AppendBlock(entry)
	fn.AppendBlock(outer)
	fn.AppendBlock(inner)
	fn.AppendBlock(exit)

	b := ir.NewBuilder(types)
	b.SetInsertPoint(entry)
	b.CreateBr(outer)

	b.SetInsertPoint(outer)
	b.CreateCondBr(fn.Args[0], inner, exit)

	b.SetInsertPoint(inner)
	b.CreateCondBr(fn.Args[0], inner, outer)

	b.SetInsertPoint(exit)
	b.CreateRet(nil)

	forest := BuildLoopForest(fn)
	require.Len(t, forest.TopLevel, 1)
	outerLoop := forest.TopLevel[0]
	require.Equal(t, outer, outerLoop.Header)
	require.True(t, outerLoop.Contains(inner))
	require.Len(t, outerLoop.SubLoops, 1)

	innerLoop := outerLoop.SubLoops[0]
	require.Equal(t, inner, innerLoop.Header)
	require.Equal(t, outerLoop, innerLoop.Parent)
	require.True(t, innerLoop.Contains(inner))
	require.False(t, innerLoop.Contains(outer))
}
