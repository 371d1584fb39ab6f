package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/liveinterval"
	"ssacore/internal/machine"
	"ssacore/internal/target"
	"ssacore/internal/target/testtarget"
)

func classGPR(machine.Reg) target.RegisterClass { return testtarget.ClassGPR }

func interval(reg machine.Reg, start, end int, weight float64) *liveinterval.Interval {
	iv := &liveinterval.Interval{Reg: reg, Weight: weight}
	iv.AddRange(start, end)
	return iv
}

func TestRunAssignsDistinctRegistersToOverlappingIntervals(t *testing.T) {
	tgt := testtarget.New()
	fn := machine.NewMachineFunction("f", tgt)

	a := interval(machine.FirstVirtualRegister, 0, 10, 1)
	b := interval(machine.FirstVirtualRegister+1, 4, 8, 1)

	result := Run(fn, tgt, []*liveinterval.Interval{a, b}, classGPR)

	require.Contains(t, result.V2P, a.Reg)
	require.Contains(t, result.V2P, b.Reg)
	assert.NotEqual(t, result.V2P[a.Reg], result.V2P[b.Reg])
	assert.Empty(t, result.V2SS)
}

func TestRunReusesRegisterForNonOverlappingIntervals(t *testing.T) {
	tgt := testtarget.New()
	fn := machine.NewMachineFunction("f", tgt)

	a := interval(machine.FirstVirtualRegister, 0, 4, 1)
	b := interval(machine.FirstVirtualRegister+1, 4, 8, 1)

	result := Run(fn, tgt, []*liveinterval.Interval{a, b}, classGPR)

	require.Contains(t, result.V2P, a.Reg)
	require.Contains(t, result.V2P, b.Reg)
	assert.Equal(t, result.V2P[a.Reg], result.V2P[b.Reg])
}

func TestRunHonorsFixedPhysicalInterval(t *testing.T) {
	tgt := testtarget.New()
	fn := machine.NewMachineFunction("f", tgt)

	// fixed starts strictly before virt so it is handled first and
	// reserves register 0 before virt's allocation request arrives.
	fixed := interval(machine.Reg(0), 0, 10, 1e18)
	virt := interval(machine.FirstVirtualRegister, 2, 10, 1)

	result := Run(fn, tgt, []*liveinterval.Interval{fixed, virt}, classGPR)

	assert.NotEqual(t, 0, result.V2P[virt.Reg])
}
