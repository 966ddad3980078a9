package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryc/ssair/internal/ir"
)

func TestConstPropagationFoldsIntBinaryThroughAChain(t *testing.T) {
	mod := ir.NewModule()
	fn := ir.NewFunction("f", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(fn)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", fn)
	fn.AppendBlock(entry)

	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	two := ir.NewConstantInt(mod.Types.I32(), 2)
	three := ir.NewConstantInt(mod.Types.I32(), 3)
	sum := b.CreateAdd(two, three)
	use := b.CreateAdd(sum, sum)
	b.CreateRet(use)

	require.NoError(t, (ConstPropagation{}).Run(mod))

	foldedSum, ok := use.Operands[0].(*ir.ConstantInt)
	require.True(t, ok, "sum's uses should have been rewritten to a folded constant")
	require.Equal(t, int32(5), foldedSum.Val)

	foldedUse, ok := entry.Terminator().RetValue().(*ir.ConstantInt)
	require.True(t, ok, "use itself should fold once its operands are both constant")
	require.Equal(t, int32(10), foldedUse.Val)
}

func TestConstPropagationLeavesDivisionByZeroUnfolded(t *testing.T) {
	mod := ir.NewModule()
	fn := ir.NewFunction("f", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(fn)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", fn)
	fn.AppendBlock(entry)

	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	ten := ir.NewConstantInt(mod.Types.I32(), 10)
	zero := ir.NewConstantInt(mod.Types.I32(), 0)
	div := b.CreateSDiv(ten, zero)
	b.CreateRet(div)

	require.NoError(t, (ConstPropagation{}).Run(mod))

	require.Len(t, div.Uses(), 1, "the ret still reads div since nothing replaced it")
	require.Equal(t, ir.OpSDiv, div.Op, "division by exact zero must not fold away the instruction")
}

func TestConstPropagationFoldsComparisonAtOriginalI1Type(t *testing.T) {
	mod := ir.NewModule()
	fn := ir.NewFunction("f", mod.Types.Func(mod.Types.I32(), nil))
	mod.AddFunction(fn)
	entry := ir.NewBasicBlock(mod.Types.Label(), "entry", fn)
	fn.AppendBlock(entry)

	b := ir.NewBuilder(mod.Types)
	b.SetInsertPoint(entry)
	two := ir.NewConstantInt(mod.Types.I32(), 2)
	three := ir.NewConstantInt(mod.Types.I32(), 3)
	cmp := b.CreateICmp(ir.PredLT, two, three)
	z := b.CreateZExt(cmp)
	b.CreateRet(z)

	require.NoError(t, (ConstPropagation{}).Run(mod))

	folded, ok := z.Operands[0].(*ir.ConstantInt)
	require.True(t, ok)
	require.Equal(t, int32(1), folded.Val)
	require.Equal(t, mod.Types.I1(), folded.Type(), "a folded comparison keeps the i1 type zext expects")
}
