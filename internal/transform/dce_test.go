package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

func TestDIERemovesDeadInstruction(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", nil, i32)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	one := m.NewConstant(i32, int64(1))
	dead, err := ir.NewBinary(fn, b, ir.Add, one, one, i32, "dead")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, one)
	require.NoError(t, err)
	require.Len(t, b.Instructions, 2)

	am := pass.NewManager()
	changed, err := DIE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, b.Instructions, 1)
	assert.True(t, dead.Result.IsDestroyed())
}

func TestDCECollapsesChain(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", nil, i32)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	one := m.NewConstant(i32, int64(1))
	a, err := ir.NewBinary(fn, b, ir.Add, one, one, i32, "a")
	require.NoError(t, err)
	_, err = ir.NewBinary(fn, b, ir.Mul, a.Result, one, i32, "b_dead")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, one)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := DCE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, b.Instructions, 1)
}

func TestDCEKeepsSideEffectingStore(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	alloca, err := ir.NewAlloca(fn, b, i32, "slot")
	require.NoError(t, err)
	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewStore(fn, b, alloca.Result, one, false)
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	_, err = DCE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.Len(t, b.Instructions, 3)
}
