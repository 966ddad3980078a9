package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryc/ssair/internal/ir"
)

func buildAddCallee(mod *ir.Module) *ir.Function {
	add := ir.NewFunction("add", mod.Types.Func(mod.Types.I32(), []ir.Type{mod.Types.I32(), mod.Types.I32()}))
	mod.AddFunction(add)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", add)
	add.AppendBlock(entry)
	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	sum := b.CreateAdd(add.Args[0], add.Args[1])
	b.CreateRet(sum)
	return add
}

func TestInlineSingleReturnSplicesCalleeIntoCaller(t *testing.T) {
	mod := ir.NewModule()
	add := buildAddCallee(mod)

	main := ir.NewFunction("main", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(main)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", main)
	main.AppendBlock(entry)
	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	two := ir.NewConstantInt(mod.Types.I32(), 2)
	three := ir.NewConstantInt(mod.Types.I32(), 3)
	call := b.CreateCall(add, []ir.Value{two, three})
	b.CreateRet(call)

	require.NoError(t, (FunctionInline{}).Run(mod))

	for _, fn := range mod.Functions {
		require.NoError(t, ir.Verify(fn))
	}

	var sawCall bool
	for _, bl := range main.Blocks {
		for _, in := range bl.Instrs {
			if in.Op == ir.OpCall {
				sawCall = true
			}
		}
	}
	require.False(t, sawCall, "call site should have been spliced away")
	require.Greater(t, len(main.Blocks), 1, "callee's block should have been inlined")
}

func TestInlineSkipsSelfRecursiveCallee(t *testing.T) {
	mod := ir.NewModule()
	fact := ir.NewFunction("fact", mod.Types.Func(mod.Types.I32(), []ir.Type{mod.Types.I32()}))
	mod.AddFunction(fact)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", fact)
	fact.AppendBlock(entry)
	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	one := ir.NewConstantInt(mod.Types.I32(), 1)
	call := b.CreateCall(fact, []ir.Value{one})
	b.CreateRet(call)

	require.NoError(t, (FunctionInline{}).Run(mod))

	var sawCall bool
	for _, in := range fact.Entry().Instrs {
		if in.Op == ir.OpCall {
			sawCall = true
		}
	}
	require.True(t, sawCall, "self-recursive call must not be inlined")
}

func TestInlineSkipsRuntimeIntrinsic(t *testing.T) {
	mod := ir.NewModule()
	getint := ir.NewFunction("getint", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(getint) // no blocks: external declaration

	main := ir.NewFunction("main", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(main)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", main)
	main.AppendBlock(entry)
	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	call := b.CreateCall(getint, nil)
	b.CreateRet(call)

	require.NoError(t, (FunctionInline{}).Run(mod))

	var sawCall bool
	for _, in := range main.Entry().Instrs {
		if in.Op == ir.OpCall {
			sawCall = true
		}
	}
	require.True(t, sawCall)
}

// buildTwoReturnCallee builds:
//
//	entry: cond_br p, thenB, elseB
//	thenB: ret 1
//	elseB: ret 2
func buildTwoReturnCallee(mod *ir.Module) *ir.Function {
	pick := ir.NewFunction("pick", mod.Types.Func(mod.Types.I32(), []ir.Type{mod.Types.I1()}))
	mod.AddFunction(pick)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", pick)
	thenB := ir.NewBasicBlock(mod.Types.Label(), "then", pick)
	elseB := ir.NewBasicBlock(mod.Types.Label(), "else", pick)
	pick.AppendBlock(entry)
	pick.AppendBlock(thenB)
	pick.AppendBlock(elseB)

	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	b.CreateCondBr(pick.Args[0], thenB, elseB)

	b.SetInsertPoint(thenB)
	b.CreateRet(ir.NewConstantInt(mod.Types.I32(), 1))

	b.SetInsertPoint(elseB)
	b.CreateRet(ir.NewConstantInt(mod.Types.I32(), 2))

	return pick
}

func TestInlineMultiReturnBuildsJoinPhi(t *testing.T) {
	mod := ir.NewModule()
	pick := buildTwoReturnCallee(mod)

	main := ir.NewFunction("main", mod.Types.Func(mod.Types.I32(), []ir.Type{mod.Types.I1()}))
	mod.AddFunction(main)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", main)
	main.AppendBlock(entry)
	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	call := b.CreateCall(pick, []ir.Value{main.Args[0]})
	b.CreateRet(call)

	require.NoError(t, (FunctionInline{}).Run(mod))

	for _, fn := range mod.Functions {
		require.NoError(t, ir.Verify(fn))
	}

	var phis int
	for _, bl := range main.Blocks {
		for _, in := range bl.Instrs {
			if in.Op == ir.OpPhi {
				phis++
				require.Equal(t, 2, in.PhiCount())
			}
		}
	}
	require.Equal(t, 1, phis, "expected exactly one join phi combining the two returns")
}
