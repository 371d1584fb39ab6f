package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
	"ssacore/internal/target/testtarget"
)

// buildEscapingAlloca builds a function whose alloca's address is
// passed to a call, so mem2reg could never promote it and
// LowerAllocations has real work to do.
func buildEscapingAlloca(t *testing.T) (*ir.Module, *ir.Function, *ir.BasicBlock, *ir.Instruction) {
	t.Helper()
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	alloca, err := ir.NewAlloca(fn, b, i32, "buf")
	require.NoError(t, err)
	_, err = ir.NewCall(fn, b, "escape", []*ir.Value{alloca.Result}, voidT, "")
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, nil)
	require.NoError(t, err)
	return m, fn, b, alloca
}

func TestLowerAllocationsReplacesAllocaWithMalloc(t *testing.T) {
	_, fn, b, alloca := buildEscapingAlloca(t)
	tgt := testtarget.New()

	am := pass.NewManager()
	changed, err := LowerAllocations{Layout: tgt}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, alloca.Result.IsDestroyed())

	var sawMalloc, sawFree bool
	for _, inst := range b.Instructions {
		if inst.Op == ir.OpMalloc {
			sawMalloc = true
		}
		if inst.Op == ir.OpFree {
			sawFree = true
		}
		assert.NotEqual(t, ir.OpAlloca, inst.Op)
	}
	assert.True(t, sawMalloc)
	assert.True(t, sawFree)
	assert.Equal(t, ir.OpReturn, b.Terminator().Op)
}

func TestRaiseAllocationsUndoesNonEscapingMalloc(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")

	size := m.NewConstant(m.Types.IntType(64, true), int64(4))
	malloc, err := ir.NewMalloc(fn, b, i32, size, "buf")
	require.NoError(t, err)
	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewStore(fn, b, malloc.Result, one, false)
	require.NoError(t, err)
	_, err = ir.NewLoad(fn, b, malloc.Result, i32, false, "loaded")
	require.NoError(t, err)
	_, err = ir.NewFree(fn, b, malloc.Result)
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, b, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := RaiseAllocations{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, malloc.Result.IsDestroyed())

	var sawAlloca bool
	for _, inst := range b.Instructions {
		if inst.Op == ir.OpAlloca {
			sawAlloca = true
		}
		assert.NotEqual(t, ir.OpFree, inst.Op)
		assert.NotEqual(t, ir.OpMalloc, inst.Op)
	}
	assert.True(t, sawAlloca)
}

func TestRaiseAllocationsLeavesEscapingMallocAlone(t *testing.T) {
	_, fn, b, _ := buildEscapingAlloca(t)
	tgt := testtarget.New()
	am := pass.NewManager()

	_, err := LowerAllocations{Layout: tgt}.Apply(fn, am)
	require.NoError(t, err)

	changed, err := RaiseAllocations{}.Apply(fn, am)
	require.NoError(t, err)
	assert.False(t, changed)

	var sawMalloc bool
	for _, inst := range b.Instructions {
		if inst.Op == ir.OpMalloc {
			sawMalloc = true
		}
	}
	assert.True(t, sawMalloc)
}
