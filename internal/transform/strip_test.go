package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

func TestStripRemovesUncalledDeclaration(t *testing.T) {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()

	used := ir.NewFunction("used", nil, voidT)
	m.AddFunction(used)

	unused := ir.NewFunction("unused", nil, voidT)
	m.AddFunction(unused)

	caller := ir.NewFunction("caller", nil, voidT)
	m.AddFunction(caller)
	b := caller.NewBlock("entry")
	_, err := ir.NewCall(caller, b, "used", nil, voidT, "")
	require.NoError(t, err)
	_, err = ir.NewReturn(caller, b, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Strip{}.Apply(m, am)
	require.NoError(t, err)
	assert.True(t, changed)

	var names []string
	for _, fn := range m.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "used")
	assert.Contains(t, names, "caller")
	assert.NotContains(t, names, "unused")
}

func TestStripRemovesUnusedGlobal(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	voidT := m.Types.VoidType()
	m.NewGlobal("dead", i32)
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")
	_, err := ir.NewReturn(fn, b, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := Strip{}.Apply(m, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, m.Globals)
}

func TestInternalizeKeepsListedNames(t *testing.T) {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()
	mainFn := ir.NewFunction("main", nil, voidT)
	m.AddFunction(mainFn)
	helper := ir.NewFunction("helper", nil, voidT)
	m.AddFunction(helper)

	am := pass.NewManager()
	changed, err := Internalize{Keep: map[string]bool{"main": true}}.Apply(m, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ir.External, mainFn.Linkage)
	assert.Equal(t, ir.Internal, helper.Linkage)
}
