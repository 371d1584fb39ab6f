package transform

import (
	"ssacore/internal/alias"
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// DSE is basic-block-local dead store elimination (§4.5.4): walking
// each block backwards with an alias-set tracker, a non-volatile store
// that must-aliases an already-tracked (killed) location is redundant
// and removed; any load, call, or other possibly-memory-reading
// instruction invalidates may-aliasing tracked entries.
type DSE struct {
	AA alias.Analysis
}

func (d DSE) Name() string                  { return "dse" }
func (d DSE) Requires() []pass.AnalysisKey  { return nil }
func (d DSE) Preserves() []pass.AnalysisKey { return nil }
func (d DSE) PreservesCFG() bool            { return true }

func (d DSE) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	aa := d.AA
	if aa == nil {
		aa = alias.Trivial{}
	}
	changed := false
	for _, b := range fn.Blocks {
		tracker := alias.NewSet(aa)
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			switch inst.Op {
			case ir.OpStore:
				addr := inst.Operands[0].Value
				size := storeSize(fn.Module.Types, inst)
				if !inst.Volatile && tracker.MustAliasAny(addr, size) {
					if err := ir.Erase(inst); err != nil {
						return changed, err
					}
					changed = true
					continue
				}
				tracker.Add(addr, size)
			case ir.OpFree:
				tracker.AddFreed(inst.Operands[0].Value)
			case ir.OpLoad:
				if inst.MayReadMemory() {
					tracker.InvalidateMayAlias(inst.Operands[0].Value, loadSize(fn.Module.Types, inst))
				}
			case ir.OpCall:
				tracker.InvalidateAll()
			}
		}
	}
	return changed, nil
}

func storeSize(types *ir.TypeInterner, inst *ir.Instruction) int {
	v := inst.Operands[1].Value
	if v == nil {
		return -1
	}
	return sizeOfType(types, v.Type)
}

func loadSize(types *ir.TypeInterner, inst *ir.Instruction) int {
	if inst.Result == nil {
		return -1
	}
	return sizeOfType(types, inst.Result.Type)
}

// sizeOfType is a coarse element-size estimate in bytes, sufficient
// for the same/disjoint-size comparisons DSE needs without requiring a
// target.DataLayout at this stage of the pipeline.
func sizeOfType(types *ir.TypeInterner, id ir.TypeID) int {
	t := types.Lookup(id)
	switch t.Kind {
	case ir.KindBool:
		return 1
	case ir.KindInt, ir.KindFloat:
		return (t.Bits + 7) / 8
	case ir.KindPointer:
		return 8
	default:
		return -1
	}
}
