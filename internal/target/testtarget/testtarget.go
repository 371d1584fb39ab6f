// Package testtarget is a minimal concrete target.RegisterInfo and
// target.DataLayout used only by tests: a handful of general-purpose
// registers with one alias group each (no overlapping sub-registers),
// and byte sizes matching a typical LP64 ABI. It exists to let
// internal/regalloc, internal/liveinterval, and internal/transform's
// lowering tests exercise the real collaborator interfaces end to end
// without pulling in an actual ISA backend, which is out of scope
// per §1.
package testtarget

import (
	"fmt"

	"ssacore/internal/ir"
	"ssacore/internal/target"
)

const (
	ClassGPR target.RegisterClass = iota
	ClassFPR
)

// NumGPR is the number of general-purpose test registers (r0..r7).
const NumGPR = 8

// NumFPR is the number of floating-point test registers (f0..f7),
// numbered after the GPRs.
const NumFPR = 8

// Target is the test register/data-layout collaborator.
type Target struct{}

func New() *Target { return &Target{} }

func (t *Target) NumRegisters() int { return NumGPR + NumFPR }

func (t *Target) Name(reg int) string {
	if reg < NumGPR {
		return fmt.Sprintf("r%d", reg)
	}
	return fmt.Sprintf("f%d", reg-NumGPR)
}

func (t *Target) ClassFor(types *ir.TypeInterner, id ir.TypeID) target.RegisterClass {
	ty := types.Lookup(id)
	if ty.Kind == ir.KindFloat {
		return ClassFPR
	}
	return ClassGPR
}

func (t *Target) AllocationOrder(class target.RegisterClass) []int {
	if class == ClassFPR {
		order := make([]int, NumFPR)
		for i := range order {
			order[i] = NumGPR + i
		}
		return order
	}
	order := make([]int, NumGPR)
	for i := range order {
		order[i] = i
	}
	return order
}

// Aliases returns just reg itself: the test target has no overlapping
// sub-registers.
func (t *Target) Aliases(reg int) []int { return []int{reg} }

func (t *Target) EmitLoadFromStackSlot(dstReg, slot int) target.MachineOp {
	return target.MachineOp{Mnemonic: "load_slot", Args: []int{dstReg, slot}}
}

func (t *Target) EmitStoreToStackSlot(srcReg, slot int) target.MachineOp {
	return target.MachineOp{Mnemonic: "store_slot", Args: []int{srcReg, slot}}
}

func (t *Target) EmitCopy(dstReg, srcReg int) target.MachineOp {
	return target.MachineOp{Mnemonic: "copy", Args: []int{dstReg, srcReg}}
}

// SizeOf returns byte sizes for an LP64-like model: bools and i8 are 1
// byte, integers/floats round up to their declared bit width, pointers
// are 8 bytes, arrays/structs are computed structurally.
func (t *Target) SizeOf(types *ir.TypeInterner, id ir.TypeID) int64 {
	ty := types.Lookup(id)
	switch ty.Kind {
	case ir.KindVoid:
		return 0
	case ir.KindBool:
		return 1
	case ir.KindInt, ir.KindFloat:
		return int64((ty.Bits + 7) / 8)
	case ir.KindPointer:
		return 8
	case ir.KindArray:
		return t.SizeOf(types, ty.Elem) * int64(ty.Len)
	case ir.KindStruct:
		var size int64
		for _, f := range ty.Fields {
			align := t.AlignOf(types, f)
			if size%align != 0 {
				size += align - size%align
			}
			size += t.SizeOf(types, f)
		}
		return size
	default:
		return 8
	}
}

// AlignOf returns the natural alignment of id: its own size, capped at
// 8 bytes, with structs/arrays aligned to their strictest field.
func (t *Target) AlignOf(types *ir.TypeInterner, id ir.TypeID) int64 {
	ty := types.Lookup(id)
	switch ty.Kind {
	case ir.KindArray:
		return t.AlignOf(types, ty.Elem)
	case ir.KindStruct:
		var best int64 = 1
		for _, f := range ty.Fields {
			if a := t.AlignOf(types, f); a > best {
				best = a
			}
		}
		return best
	default:
		size := t.SizeOf(types, id)
		if size > 8 {
			return 8
		}
		if size < 1 {
			return 1
		}
		return size
	}
}

func (t *Target) PointerSize() int64 { return 8 }
