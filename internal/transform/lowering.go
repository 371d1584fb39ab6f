package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
	"ssacore/internal/target"
)

// buildDetached returns a throwaway, never-linked block (which has no
// terminator, so an opcode constructor's append to it always
// succeeds). The caller builds one instruction into it with one of
// builder.go's opcode constructors, then splices that instruction into
// a real block with InsertBefore. This sidesteps the opcode
// constructors' "append to the end" contract when the real insertion
// point is in the middle of an already-terminated block.
func buildDetached(fn *ir.Function) *ir.BasicBlock {
	return &ir.BasicBlock{Func: fn}
}

// LowerAllocations replaces every remaining stack alloca (i.e. one
// mem2reg could not promote, because its address escaped a load/store
// use) with an explicitly byte-sized heap allocation plus a matching
// free inserted before every return in the function (§4.5.8). The
// byte count comes from the target.DataLayout so later stages never
// need to re-derive a type's size from the IR alone.
type LowerAllocations struct {
	Layout target.DataLayout
}

func (LowerAllocations) Name() string                  { return "lower-allocations" }
func (LowerAllocations) Requires() []pass.AnalysisKey  { return nil }
func (LowerAllocations) Preserves() []pass.AnalysisKey { return nil }
func (LowerAllocations) PreservesCFG() bool            { return true }

func (l LowerAllocations) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	if l.Layout == nil || fn.IsDeclaration() {
		return false, nil
	}
	types := fn.Module.Types

	var allocas []*ir.Instruction
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == ir.OpAlloca {
				allocas = append(allocas, inst)
			}
		}
	}
	if len(allocas) == 0 {
		return false, nil
	}

	i64 := types.IntType(64, true)
	var mallocs []*ir.Value
	for _, alloca := range allocas {
		b := alloca.Block
		size := l.Layout.SizeOf(types, alloca.ElemType)
		sizeConst := fn.Module.NewConstant(i64, size)
		m, err := ir.NewMalloc(fn, buildDetached(fn), alloca.ElemType, sizeConst, alloca.Result.Name)
		if err != nil {
			return false, err
		}
		if err := ir.InsertBefore(alloca, m); err != nil {
			return false, err
		}
		ir.ReplaceAllUsesWith(alloca.Result, m.Result)
		if err := ir.Erase(alloca); err != nil {
			return false, err
		}
		mallocs = append(mallocs, m.Result)
	}

	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.OpReturn {
			continue
		}
		for _, m := range mallocs {
			free, err := ir.NewFree(fn, buildDetached(fn), m)
			if err != nil {
				return false, err
			}
			if err := ir.InsertBefore(term, free); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}

// RaiseAllocations is the inverse of LowerAllocations (§4.5.8): a
// malloc whose pointer never escapes beyond load/store use and at most
// one free in the same function is converted back to a stack alloca,
// and the paired free, if any, is deleted. This undoes lowering
// once later passes (DSE, mem2reg) have had a chance to simplify, and
// gives mem2reg a second opportunity to promote the result.
type RaiseAllocations struct{}

func (RaiseAllocations) Name() string                  { return "raise-allocations" }
func (RaiseAllocations) Requires() []pass.AnalysisKey  { return nil }
func (RaiseAllocations) Preserves() []pass.AnalysisKey { return nil }
func (RaiseAllocations) PreservesCFG() bool            { return true }

func (RaiseAllocations) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction{}, b.Instructions...) {
			if inst.Op != ir.OpMalloc || inst.Result == nil || inst.IsTerminator() {
				continue
			}
			free, ok := nonEscaping(inst)
			if !ok {
				continue
			}
			alloca, err := ir.NewAlloca(fn, buildDetached(fn), inst.ElemType, inst.Result.Name)
			if err != nil {
				return changed, err
			}
			if err := ir.InsertBefore(inst, alloca); err != nil {
				return changed, err
			}
			ir.ReplaceAllUsesWith(inst.Result, alloca.Result)
			if err := ir.Erase(inst); err != nil {
				return changed, err
			}
			if free != nil {
				ir.DropAllReferences(free)
				fb := free.Block
				if fidx := fb.IndexOf(free); fidx >= 0 {
					fb.Instructions = append(fb.Instructions[:fidx], fb.Instructions[fidx+1:]...)
				}
			}
			changed = true
		}
	}
	return changed, nil
}

// nonEscaping reports whether every use of a malloc's result is a
// load, a store-as-address, or (at most once) the pointer argument of
// a free in the same function; it returns that free instruction, if
// any.
func nonEscaping(malloc *ir.Instruction) (*ir.Instruction, bool) {
	var free *ir.Instruction
	for _, u := range malloc.Result.Uses {
		switch u.User.Op {
		case ir.OpLoad:
			if u.Slot != 0 {
				return nil, false
			}
		case ir.OpStore:
			if u.Slot != 0 {
				return nil, false
			}
		case ir.OpFree:
			if free != nil {
				return nil, false
			}
			free = u.User
		default:
			return nil, false
		}
	}
	return free, true
}
