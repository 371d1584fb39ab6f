package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/domtree"
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

func newManagerWithDomtree() *pass.Manager {
	am := pass.NewManager()
	am.Register(DomtreeKey, func(fn *ir.Function) (interface{}, error) {
		return domtree.Compute(domtree.Forward(fn)), nil
	})
	return am
}

func TestMem2RegSingleBlock(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", nil, i32)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	alloca, err := ir.NewAlloca(fn, b, i32, "x")
	require.NoError(t, err)
	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewStore(fn, b, alloca.Result, one, false)
	require.NoError(t, err)
	loaded, err := ir.NewLoad(fn, b, alloca.Result, i32, false, "loaded")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, loaded.Result)
	require.NoError(t, err)

	am := newManagerWithDomtree()
	changed, err := Mem2Reg{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, inst := range b.Instructions {
		assert.NotEqual(t, ir.OpAlloca, inst.Op)
		assert.NotEqual(t, ir.OpLoad, inst.Op)
		assert.NotEqual(t, ir.OpStore, inst.Op)
	}
	term := b.Terminator()
	require.Equal(t, ir.OpReturn, term.Op)
	assert.Equal(t, one, term.Operands[0].Value)
}

func TestMem2RegInsertsPhiAcrossDiamond(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	boolT := m.Types.BoolType()
	fn := ir.NewFunction("f", []ir.TypeID{boolT}, i32)
	m.AddFunction(fn)
	cond := fn.AddParam("cond", boolT)

	entry := fn.NewBlock("entry")
	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")
	join := fn.NewBlock("join")

	alloca, err := ir.NewAlloca(fn, entry, i32, "x")
	require.NoError(t, err)
	_, err = ir.NewCondBranch(fn, entry, cond, thenB.AsValue(), elseB.AsValue())
	require.NoError(t, err)

	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewStore(fn, thenB, alloca.Result, one, false)
	require.NoError(t, err)
	_, err = ir.NewJump(fn, thenB, join.AsValue())
	require.NoError(t, err)

	two := m.NewConstant(i32, int64(2))
	_, err = ir.NewStore(fn, elseB, alloca.Result, two, false)
	require.NoError(t, err)
	_, err = ir.NewJump(fn, elseB, join.AsValue())
	require.NoError(t, err)

	loaded, err := ir.NewLoad(fn, join, alloca.Result, i32, false, "loaded")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, join, loaded.Result)
	require.NoError(t, err)

	am := newManagerWithDomtree()
	changed, err := Mem2Reg{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	phis := join.Phis()
	require.Len(t, phis, 1)
	assert.Len(t, phis[0].PhiPreds, 2)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			assert.NotEqual(t, ir.OpAlloca, inst.Op)
		}
	}
}
