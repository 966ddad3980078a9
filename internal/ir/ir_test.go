package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSimpleFunc(t *testing.T) (*Function, *TypeInterner, *Builder) {
	t.Helper()
	types := NewTypeInterner()
	sig := types.Func(types.I32(), []Type{types.I32()})
	fn := NewFunction("add_one", sig)
	entry := NewBasicBlock(types.Label(), "entry", fn)
	fn.AppendBlock(entry)

	b := NewBuilder(types)
	b.SetInsertPoint(entry)
	one := NewConstantInt(types.I32(), 1)
	sum := b.CreateAdd(fn.Args[0], one)
	b.CreateRet(sum)
	return fn, types, b
}

func TestBuilderProducesVerifiableFunction(t *testing.T) {
	fn, _, _ := buildSimpleFunc(t)
	require.NoError(t, Verify(fn))
	require.Len(t, fn.Blocks, 1)
	require.True(t, fn.Entry().IsTerminated())
}

func TestUseListTracksOperandWrites(t *testing.T) {
	fn, types, _ := buildSimpleFunc(t)
	arg := fn.Args[0]
	require.Len(t, arg.Uses(), 1)

	add := fn.Entry().Instrs[0]
	require.Equal(t, OpAdd, add.Op)

	two := NewConstantInt(types.I32(), 2)
	setOperand(add, 0, two)
	require.Empty(t, arg.Uses())
	require.Len(t, two.Uses(), 1)
}

func TestReplaceAllUsesWithRewritesEveryUser(t *testing.T) {
	fn, types, b := buildSimpleFunc(t)
	add := fn.Entry().Instrs[0]
	fresh := NewConstantInt(types.I32(), 42)

	b.SetInsertPoint(fn.Entry())
	ReplaceAllUsesWith(add, fresh)

	require.Empty(t, add.Uses())
	require.Len(t, fresh.Uses(), 1)
	ret := fn.Entry().Terminator()
	require.Equal(t, fresh, ret.RetValue())
}

func TestRemovePhiOperandPreservesRemainingPairs(t *testing.T) {
	types := NewTypeInterner()
	sig := types.Func(types.I32(), nil)
	fn := NewFunction("f", sig)
	pred1 := NewBasicBlock(types.Label(), "p1", fn)
	pred2 := NewBasicBlock(types.Label(), "p2", fn)
	pred3 := NewBasicBlock(types.Label(), "p3", fn)
	merge := NewBasicBlock(types.Label(), "merge", fn)
	fn.AppendBlock(pred1)
	fn.AppendBlock(pred2)
	fn.AppendBlock(pred3)
	fn.AppendBlock(merge)

	b := NewBuilder(types)
	b.SetInsertPoint(merge)
	phi := b.CreatePhi(types.I32())
	v1 := NewConstantInt(types.I32(), 1)
	v2 := NewConstantInt(types.I32(), 2)
	v3 := NewConstantInt(types.I32(), 3)
	phi.AddIncoming(v1, pred1)
	phi.AddIncoming(v2, pred2)
	phi.AddIncoming(v3, pred3)
	require.Equal(t, 3, phi.PhiCount())

	phi.RemovePhiOperand(pred2)

	require.Equal(t, 2, phi.PhiCount())
	require.Equal(t, v1, phi.PhiValue(0))
	require.Equal(t, pred1, phi.PhiBlock(0))
	require.Equal(t, v3, phi.PhiValue(1))
	require.Equal(t, pred3, phi.PhiBlock(1))
	require.Empty(t, v2.Uses())
	require.Len(t, v1.Uses(), 1)
	require.Len(t, v3.Uses(), 1)
}

func TestTypeInternerCachesByStructure(t *testing.T) {
	types := NewTypeInterner()
	p1 := types.Pointer(types.I32())
	p2 := types.Pointer(types.I32())
	require.True(t, p1 == p2)
	require.True(t, p1.Equal(p2))

	a1 := types.Array(types.F32(), 10)
	a2 := types.Array(types.F32(), 10)
	require.True(t, a1 == a2)

	f1 := types.Func(types.I32(), []Type{types.I32(), types.F32()})
	f2 := types.Func(types.I32(), []Type{types.I32(), types.F32()})
	require.True(t, f1 == f2)
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	types := NewTypeInterner()
	sig := types.Func(types.Void(), nil)
	fn := NewFunction("bad", sig)
	entry := NewBasicBlock(types.Label(), "entry", fn)
	fn.AppendBlock(entry)
	b := NewBuilder(types)
	b.SetInsertPoint(entry)
	b.CreateAlloca(types.I32())

	err := Verify(fn)
	require.Error(t, err)
}

func TestVerifyCatchesBrokenCFGEdge(t *testing.T) {
	fn, types, _ := buildSimpleFunc(t)
	entry := fn.Entry()
	// Corrupt the recorded successor set without touching the terminator.
	entry.Succs = append(entry.Succs, NewBasicBlock(types.Label(), "impossible", fn))
	err := Verify(fn)
	require.Error(t, err)
}
