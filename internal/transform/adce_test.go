package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// TestADCERemovesDeadComputation builds a function that computes a
// value nothing ever reads, alongside a genuine side-effecting store,
// and checks ADCE deletes the former while keeping the latter.
func TestADCERemovesDeadComputation(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)

	entry := fn.NewBlock("entry")

	dead := m.NewConstant(i32, int64(99))
	_, err := ir.NewBinary(fn, entry, ir.Add, dead, dead, i32, "unused")
	require.NoError(t, err)

	ptr, err := ir.NewAlloca(fn, entry, i32, "slot")
	require.NoError(t, err)
	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewStore(fn, entry, ptr.Result, one, false)
	require.NoError(t, err)
	_, err = ir.NewReturn(fn, entry, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := ADCE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	var sawBinary, sawStore bool
	for _, inst := range entry.Instructions {
		if inst.Op == ir.OpBinary {
			sawBinary = true
		}
		if inst.Op == ir.OpStore {
			sawStore = true
		}
	}
	assert.False(t, sawBinary)
	assert.True(t, sawStore)
}

// TestADCERemovesDiamondWithDeadArms builds a diamond where both arms
// compute nothing but dead values and rejoin unconditionally: neither
// arm is control-dependent on anything live, so ADCE must retarget
// entry's branch straight to join and drop both arm blocks.
func TestADCERemovesDiamondWithDeadArms(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Types.IntType(32, true)
	boolT := m.Types.BoolType()
	fn := ir.NewFunction("f", []ir.TypeID{boolT}, i32)
	m.AddFunction(fn)
	cond := fn.AddParam("cond", boolT)

	entry := fn.NewBlock("entry")
	a := fn.NewBlock("a")
	bBlock := fn.NewBlock("b")
	join := fn.NewBlock("join")

	_, err := ir.NewCondBranch(fn, entry, cond, a.AsValue(), bBlock.AsValue())
	require.NoError(t, err)

	one := m.NewConstant(i32, int64(1))
	_, err = ir.NewBinary(fn, a, ir.Add, one, one, i32, "unusedA")
	require.NoError(t, err)
	_, err = ir.NewJump(fn, a, join.AsValue())
	require.NoError(t, err)

	two := m.NewConstant(i32, int64(2))
	_, err = ir.NewBinary(fn, bBlock, ir.Add, two, two, i32, "unusedB")
	require.NoError(t, err)
	_, err = ir.NewJump(fn, bBlock, join.AsValue())
	require.NoError(t, err)

	answer := m.NewConstant(i32, int64(42))
	_, err = ir.NewReturn(fn, join, answer)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := ADCE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, fn.Blocks, 2)
	assert.Equal(t, entry, fn.Blocks[0])
	assert.Equal(t, join, fn.Blocks[1])

	term := entry.Terminator()
	require.Equal(t, ir.OpJump, term.Op)
	assert.Equal(t, join, term.Target)

	require.Len(t, join.Predecessors, 1)
	assert.Equal(t, entry, join.Predecessors[0])
}

func TestADCENoopOnAlreadyMinimalFunction(t *testing.T) {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")
	_, err := ir.NewReturn(fn, b, nil)
	require.NoError(t, err)

	am := pass.NewManager()
	changed, err := ADCE{}.Apply(fn, am)
	require.NoError(t, err)
	assert.False(t, changed)
}
