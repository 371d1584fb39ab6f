// Package target declares the external collaborator interfaces §6
// names: a data layout for size/alignment queries (used by lowering,
// §4.5.8) and a register-info surface (used by live-interval analysis
// and the register allocator, §4.7/§4.8). Neither a specific ISA's
// concrete target nor an instruction selector is in scope per §1; the
// test-only internal/target/testtarget package supplies the minimum
// concrete instance the rest of the package needs to exercise these
// interfaces end to end.
package target

import "ssacore/internal/ir"

// DataLayout answers size-and-alignment questions needed to lower
// allocation intrinsics (§4.5.8) to byte-counted malloc/free calls.
type DataLayout interface {
	SizeOf(types *ir.TypeInterner, t ir.TypeID) int64
	AlignOf(types *ir.TypeInterner, t ir.TypeID) int64
	PointerSize() int64
}

// RegisterClass groups physical registers interchangeable for a given
// IR type (e.g. general-purpose integer registers, floating-point
// registers).
type RegisterClass int

// RegisterInfo is the target's register surface (§4.9): register
// identity, naming, class assignment, allocation order, and aliasing,
// plus the spill/reload code-emission primitives the allocator needs.
type RegisterInfo interface {
	NumRegisters() int
	Name(reg int) string
	ClassFor(types *ir.TypeInterner, t ir.TypeID) RegisterClass
	AllocationOrder(class RegisterClass) []int
	Aliases(reg int) []int

	// EmitLoadFromStackSlot / EmitStoreToStackSlot return the
	// target-specific instruction materializing a spill reload or spill
	// store of the register from/to slot; the caller inserts it.
	EmitLoadFromStackSlot(dstReg int, slot int) MachineOp
	EmitStoreToStackSlot(srcReg int, slot int) MachineOp
	EmitCopy(dstReg, srcReg int) MachineOp
}

// MachineOp is an opaque target-specific instruction payload; regalloc's
// spill-code insertion copies its Mnemonic into a machine.MachineInstr
// without interpreting it.
type MachineOp struct {
	Mnemonic string
	Args     []int
}
