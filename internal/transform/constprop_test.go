package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

func TestConstPropFoldsChain(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", nil, i32)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	two := m.NewConstant(i32, int64(2))
	three := m.NewConstant(i32, int64(3))
	add, err := ir.NewBinary(fn, b, ir.Add, two, three, i32, "sum")
	require.NoError(t, err)
	mul, err := ir.NewBinary(fn, b, ir.Mul, add.Result, two, i32, "product")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, mul.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := ConstProp{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	term := b.Terminator()
	require.NotNil(t, term.Operands[0].Value)
	assert.Equal(t, ir.ValConstant, term.Operands[0].Value.Kind)
	assert.Equal(t, int64(10), term.Operands[0].Value.ConstVal)
}

func TestConstPropLeavesNonConstAlone(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := ir.NewFunction("f", []ir.TypeID{i32}, i32)
	m.AddFunction(fn)
	n := fn.AddParam("n", i32)
	b := fn.NewBlock("entry")

	one := m.NewConstant(i32, int64(1))
	add, err := ir.NewBinary(fn, b, ir.Add, n, one, i32, "x")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, add.Result)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := ConstProp{}.Apply(fn, am)
	require.NoError(t, err)
	assert.False(t, changed)
}
