package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// TestReassociatePromotesHigherRankToLHS builds `c + arg` (constant on
// the left, argument on the right) and checks Reassociate swaps them
// so the higher-ranked argument becomes the LHS.
func TestReassociatePromotesHigherRankToLHS(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", []ir.TypeID{i32}, i32)
	m.AddFunction(fn)
	arg := fn.AddParam("n", i32)
	b := fn.NewBlock("entry")

	c := m.NewConstant(i32, int64(7))
	sum, err := ir.NewBinary(fn, b, ir.Add, c, arg, i32, "sum")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, sum.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Reassociate{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, arg, sum.Operands[0].Value)
	assert.Equal(t, c, sum.Operands[1].Value)
}

func TestReassociateLeavesCorrectlyOrderedAlone(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", []ir.TypeID{i32}, i32)
	m.AddFunction(fn)
	arg := fn.AddParam("n", i32)
	b := fn.NewBlock("entry")

	c := m.NewConstant(i32, int64(7))
	sum, err := ir.NewBinary(fn, b, ir.Add, arg, c, i32, "sum")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, sum.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Reassociate{}.Apply(fn, am)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, arg, sum.Operands[0].Value)
	assert.Equal(t, c, sum.Operands[1].Value)
}

// TestReassociateRewritesSubtractionToAddNegate builds `c - arg` and
// checks it becomes `add neg, c` where neg computes `sub 0, arg`
// (§4.5.5's "subtractions are first rewritten as x + (-y)").
func TestReassociateRewritesSubtractionToAddNegate(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", []ir.TypeID{i32}, i32)
	m.AddFunction(fn)
	arg := fn.AddParam("n", i32)
	b := fn.NewBlock("entry")

	c := m.NewConstant(i32, int64(7))
	diff, err := ir.NewBinary(fn, b, ir.Sub, c, arg, i32, "diff")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, diff.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Reassociate{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ir.OpBinary, diff.Op)
	assert.Equal(t, ir.Add, diff.BinOp)

	neg := diff.Operands[0].Value.Def
	assert.Equal(t, diff.Operands[1].Value, c)
	require.Equal(t, ir.OpBinary, neg.Op)
	assert.Equal(t, ir.Sub, neg.BinOp)
	assert.Equal(t, int64(0), neg.Operands[0].Value.ConstVal)
	assert.Equal(t, arg, neg.Operands[1].Value)
}

// TestReassociateCombinesConstantChain reproduces spec scenario 5:
// `t1 = add x, 5; t2 = add t1, 4; ret t2` with x an argument. Reassociate
// alone cannot fold the constants, but it must regroup them into one
// subtree so a subsequent ConstProp collapses t2 to `add x, 9`.
func TestReassociateCombinesConstantChain(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", []ir.TypeID{i32}, i32)
	m.AddFunction(fn)
	x := fn.AddParam("x", i32)
	b := fn.NewBlock("entry")

	five := m.NewConstant(i32, int64(5))
	four := m.NewConstant(i32, int64(4))
	t1, err := ir.NewBinary(fn, b, ir.Add, x, five, i32, "t1")
	require.NoError(t, err)
	t2, err := ir.NewBinary(fn, b, ir.Add, t1.Result, four, i32, "t2")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, t2.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Reassociate{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, x, t2.Operands[0].Value)
	inner := t2.Operands[1].Value.Def
	assert.Equal(t, t1, inner)
	assert.Equal(t, int64(5), inner.Operands[0].Value.ConstVal)
	assert.Equal(t, int64(4), inner.Operands[1].Value.ConstVal)

	changed, err = ConstProp{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, x, t2.Operands[0].Value)
	assert.Equal(t, int64(9), t2.Operands[1].Value.ConstVal)
}
