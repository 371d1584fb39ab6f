package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

func TestSimplifyCFGFoldsConstantBranch(t *testing.T) {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	entry := fn.NewBlock("entry")
	taken := fn.NewBlock("taken")
	dead := fn.NewBlock("dead")

	cond := m.NewConstant(m.Types.BoolType(), true)
	_, err := ir.NewCondBranch(fn, entry, cond, taken.AsValue(), dead.AsValue())
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, taken, nil)
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, dead, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := SimplifyCFG{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, b := range fn.Blocks {
		assert.NotEqual(t, "dead", b.Label)
	}
	term := entry.Terminator()
	assert.NotNil(t, term)
}

func TestSimplifyCFGCollapsesJumpOnlyBlock(t *testing.T) {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	entry := fn.NewBlock("entry")
	mid := fn.NewBlock("mid")
	exit := fn.NewBlock("exit")

	_, err := ir.NewJump(fn, entry, mid.AsValue())
	require.NoError(t, err)
	_, err = ir.NewJump(fn, mid, exit.AsValue())
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, exit, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := SimplifyCFG{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, b := range fn.Blocks {
		assert.NotEqual(t, "mid", b.Label)
	}
}
