package regalloc

import (
	"ssacore/internal/liveinterval"
	"ssacore/internal/machine"
	"ssacore/internal/target"
)

// InsertSpillCode walks every instruction of fn and, for each operand
// naming a register present in v2ss (the set of original vregs that
// ended up with a stack slot), emits a reload immediately before every
// use and a store immediately after every def, using the target's
// load/store-slot primitives (§4.8 "Spill-code insertion"). This is
// the simple, correct-but-unoptimized scheme: it reloads/stores around
// each individual use or def rather than once per live segment, at the
// cost of redundant memory traffic a smarter allocator would elide.
// This runs before Rewrite so the inserted copies still operate on
// named vregs that Rewrite then resolves like any other operand.
func InsertSpillCode(fn *machine.MachineFunction, reg target.RegisterInfo, v2ss map[machine.Reg]int) {
	for _, b := range fn.Blocks {
		var out []*machine.MachineInstr
		for _, mi := range b.Instrs {
			for _, use := range mi.Uses() {
				if slot, ok := v2ss[use]; ok {
					out = append(out, loadInstr(reg, use, slot))
				}
			}
			out = append(out, mi)
			for _, def := range mi.Defs() {
				if slot, ok := v2ss[def]; ok {
					out = append(out, storeInstr(reg, def, slot))
				}
			}
		}
		b.Instrs = out
	}
	machine.Number(fn)
}

func loadInstr(reg target.RegisterInfo, r machine.Reg, slot int) *machine.MachineInstr {
	op := reg.EmitLoadFromStackSlot(int(r), slot)
	return &machine.MachineInstr{
		Mnemonic: op.Mnemonic,
		Operands: []machine.Operand{
			{Kind: machine.OperandReg, Reg: r, IsDef: true},
			{Kind: machine.OperandStackSlot, Slot: slot},
		},
	}
}

func storeInstr(reg target.RegisterInfo, r machine.Reg, slot int) *machine.MachineInstr {
	op := reg.EmitStoreToStackSlot(int(r), slot)
	return &machine.MachineInstr{
		Mnemonic: op.Mnemonic,
		Operands: []machine.Operand{
			{Kind: machine.OperandStackSlot, Slot: slot},
			{Kind: machine.OperandReg, Reg: r, IsDef: false},
		},
	}
}

// Rewrite replaces every operand naming a virtual register with its
// assigned physical register from result.V2P, the final step of
// allocation (§4.8 "Rewrite").
func Rewrite(fn *machine.MachineFunction, result *Result) {
	for _, b := range fn.Blocks {
		for _, mi := range b.Instrs {
			for i, op := range mi.Operands {
				if op.Kind != machine.OperandReg || !op.Reg.IsVirtual() {
					continue
				}
				if p, ok := result.V2P[op.Reg]; ok {
					mi.Operands[i].Reg = machine.Reg(p)
				}
			}
		}
	}
}

// VerifyNoAliasingOverlap is the O(n²) test-only completion invariant
// of §4.8: for every pair of intervals assigned physregs whose
// registers alias, the intervals must not overlap.
func VerifyNoAliasingOverlap(reg target.RegisterInfo, assigned map[machine.Reg]int, intervalsByReg map[machine.Reg]*liveinterval.Interval) bool {
	regs := make([]machine.Reg, 0, len(assigned))
	for r := range assigned {
		regs = append(regs, r)
	}
	for i := 0; i < len(regs); i++ {
		for j := i + 1; j < len(regs); j++ {
			pi, pj := assigned[regs[i]], assigned[regs[j]]
			if !aliasesInclude(reg.Aliases(pi), pj) {
				continue
			}
			ivi, oki := intervalsByReg[regs[i]]
			ivj, okj := intervalsByReg[regs[j]]
			if oki && okj && ivi.Overlaps(ivj) {
				return false
			}
		}
	}
	return true
}
