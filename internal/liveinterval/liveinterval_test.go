package liveinterval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ssacore/internal/machine"
	"ssacore/internal/target/testtarget"
)

func TestAddRangeCoalescesOverlaps(t *testing.T) {
	iv := &Interval{}
	iv.AddRange(0, 4)
	iv.AddRange(4, 8)
	iv.AddRange(10, 12)

	assert.Equal(t, []Range{{0, 8}, {10, 12}}, iv.Ranges)
	assert.Equal(t, 0, iv.Start())
	assert.Equal(t, 12, iv.End())
}

func TestOverlapsAndLiveAt(t *testing.T) {
	a := &Interval{}
	a.AddRange(0, 5)
	b := &Interval{}
	b.AddRange(4, 8)
	c := &Interval{}
	c.AddRange(5, 8)

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.True(t, a.LiveAt(3))
	assert.False(t, a.LiveAt(5))
}

func TestExpiredAt(t *testing.T) {
	iv := &Interval{}
	iv.AddRange(0, 4)
	assert.True(t, iv.ExpiredAt(4))
	assert.False(t, iv.ExpiredAt(3))
}

func TestBuildSpansDefToBlockEnd(t *testing.T) {
	tgt := testtarget.New()
	f := machine.NewMachineFunction("f", tgt)
	b := f.NewBlock("entry")

	r := f.NewVReg()
	def := &machine.MachineInstr{Mnemonic: "mov", Operands: []machine.Operand{{Kind: machine.OperandReg, Reg: r, IsDef: true}}}
	use := &machine.MachineInstr{Mnemonic: "use", Operands: []machine.Operand{{Kind: machine.OperandReg, Reg: r}}}
	b.Instrs = append(b.Instrs, def, use)
	machine.Number(f)

	intervals := Build(f, tgt, map[*machine.MachineBlock]int{b: 0}, map[*machine.MachineBlock]map[machine.Reg]bool{b: {}})

	iv := intervals[r]
	assert.Equal(t, 0, iv.Start())
	assert.Equal(t, b.EndIndex(), iv.End())
	assert.Equal(t, float64(2), iv.Weight)
}

func TestSortedOrdersByStart(t *testing.T) {
	early := &Interval{Reg: 1}
	early.AddRange(0, 2)
	late := &Interval{Reg: 2}
	late.AddRange(5, 7)

	out := Sorted(map[machine.Reg]*Interval{1: early, 2: late})
	assert.Equal(t, []*Interval{early, late}, out)
}
