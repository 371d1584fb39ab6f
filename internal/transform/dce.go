package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// isTriviallyDead reports whether inst has no uses and no observable
// side effect (§4.5.2).
func isTriviallyDead(inst *ir.Instruction) bool {
	if inst.HasSideEffects() {
		return false
	}
	return inst.Result == nil || len(inst.Result.Uses) == 0
}

// DIE sweeps each block once, from its last instruction to its first,
// erasing trivially-dead instructions as it goes (§4.5.2 local variant).
type DIE struct{}

func (DIE) Name() string                  { return "die" }
func (DIE) Requires() []pass.AnalysisKey  { return nil }
func (DIE) Preserves() []pass.AnalysisKey { return nil }
func (DIE) PreservesCFG() bool            { return true }

func (DIE) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false
	for _, b := range fn.Blocks {
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			if inst.IsTerminator() || inst.Op == ir.OpPhi {
				continue
			}
			if isTriviallyDead(inst) {
				if err := ir.Erase(inst); err != nil {
					return changed, err
				}
				changed = true
			}
		}
	}
	return changed, nil
}

// DCE seeds a worklist with every instruction, removing trivially-dead
// ones and pushing each removed instruction's operands back onto the
// worklist so chains of now-dead defs collapse (§4.5.2 iterative
// variant).
type DCE struct{}

func (DCE) Name() string                  { return "dce" }
func (DCE) Requires() []pass.AnalysisKey  { return nil }
func (DCE) Preserves() []pass.AnalysisKey { return nil }
func (DCE) PreservesCFG() bool            { return true }

func (DCE) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false
	var worklist []*ir.Instruction
	inWorklist := make(map[*ir.Instruction]bool)
	push := func(inst *ir.Instruction) {
		if inst == nil || inWorklist[inst] {
			return
		}
		inWorklist[inst] = true
		worklist = append(worklist, inst)
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			push(inst)
		}
	}

	for len(worklist) > 0 {
		inst := worklist[0]
		worklist = worklist[1:]
		inWorklist[inst] = false
		if inst.Block == nil || inst.IsTerminator() || inst.Op == ir.OpPhi {
			continue
		}
		if !isTriviallyDead(inst) {
			continue
		}
		operandDefs := make([]*ir.Instruction, 0, len(inst.Operands))
		for _, u := range inst.Operands {
			if u.Value != nil && u.Value.Kind == ir.ValInstruction {
				operandDefs = append(operandDefs, u.Value.Def)
			}
		}
		if err := ir.Erase(inst); err != nil {
			return changed, err
		}
		changed = true
		for _, d := range operandDefs {
			push(d)
		}
	}
	return changed, nil
}
