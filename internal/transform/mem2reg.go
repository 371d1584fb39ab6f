package transform

import (
	"ssacore/internal/domtree"
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// DomtreeKey is the analysis key mem2reg requires: the function's
// forward dominator Info, computed once and shared with other passes
// that need it.
var DomtreeKey = pass.NewAnalysisKey("domtree.forward")

// Mem2Reg promotes stack allocas with only load/store uses into SSA
// values via classic Cytron-et-al SSA construction (§4.5.7): collect
// candidates, compute def/use blocks, insert φ-nodes at the iterated
// dominance frontier of each alloca's def blocks (every such block gets
// one; φs that no load reads are not pruned), then rename via a single DFS
// from the entry carrying a per-alloca current-value slot.
type Mem2Reg struct{}

func (Mem2Reg) Name() string                  { return "mem2reg" }
func (Mem2Reg) Requires() []pass.AnalysisKey  { return []pass.AnalysisKey{DomtreeKey} }
func (Mem2Reg) Preserves() []pass.AnalysisKey { return nil }
func (Mem2Reg) PreservesCFG() bool            { return true }

func (Mem2Reg) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	if len(fn.Blocks) == 0 {
		return false, nil
	}
	raw, err := am.Get(DomtreeKey, fn)
	if err != nil {
		return false, err
	}
	dom := raw.(*domtree.Info)
	frontier := domtree.ComputeFrontier(dom)

	candidates := collectCandidates(fn)
	if len(candidates) == 0 {
		return false, nil
	}

	changed := false
	for _, alloca := range candidates {
		if promoteSingleBlock(fn, alloca) {
			changed = true
			continue
		}
		promoteMultiBlock(fn, alloca, frontier)
		changed = true
	}
	return changed, nil
}

type allocaInfo struct {
	inst      *ir.Instruction
	elemType  ir.TypeID
	defBlocks map[*ir.BasicBlock]bool
	useBlocks map[*ir.BasicBlock]bool
}

// collectCandidates gathers allocas whose every use is a load or a
// store-as-address (never stored as a value, and never captured), per
// §4.5.7 step 1.
func collectCandidates(fn *ir.Function) []*allocaInfo {
	var out []*allocaInfo
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op != ir.OpAlloca {
				continue
			}
			ai := &allocaInfo{inst: inst, elemType: inst.ElemType, defBlocks: map[*ir.BasicBlock]bool{}, useBlocks: map[*ir.BasicBlock]bool{}}
			if isPromotable(inst, ai) {
				out = append(out, ai)
			}
		}
	}
	return out
}

func isPromotable(alloca *ir.Instruction, ai *allocaInfo) bool {
	for _, u := range alloca.Result.Uses {
		switch u.User.Op {
		case ir.OpLoad:
			if u.Slot != 0 {
				return false
			}
			ai.useBlocks[u.User.Block] = true
		case ir.OpStore:
			if u.Slot != 0 {
				return false // used as the stored value, not the address
			}
			ai.defBlocks[u.User.Block] = true
		default:
			return false
		}
	}
	return true
}

// promoteSingleBlock handles the §4.5.7 step 3 shortcut: all uses
// confined to one block, resolved with a linear sweep.
func promoteSingleBlock(fn *ir.Function, ai *allocaInfo) bool {
	blocks := mergeBlockSets(ai.defBlocks, ai.useBlocks)
	if len(blocks) > 1 {
		return false
	}
	var only *ir.BasicBlock
	for b := range blocks {
		only = b
	}
	if only == nil {
		// No loads or stores at all: just erase the dead alloca.
		_ = ir.Erase(ai.inst)
		return true
	}

	current := nullConstant(fn.Module, ai.elemType)
	for _, inst := range append([]*ir.Instruction{}, only.Instructions...) {
		switch {
		case inst.Op == ir.OpLoad && inst.Operands[0].Value == ai.inst.Result:
			ir.ReplaceAllUsesWith(inst.Result, current)
			_ = ir.Erase(inst)
		case inst.Op == ir.OpStore && inst.Operands[0].Value == ai.inst.Result:
			current = inst.Operands[1].Value
			detachStore(inst)
		}
	}
	_ = ir.Erase(ai.inst)
	return true
}

func detachStore(inst *ir.Instruction) {
	ir.DropAllReferences(inst)
	b := inst.Block
	idx := b.IndexOf(inst)
	if idx >= 0 {
		b.Instructions = append(b.Instructions[:idx], b.Instructions[idx+1:]...)
	}
}

func mergeBlockSets(a, b map[*ir.BasicBlock]bool) map[*ir.BasicBlock]bool {
	out := make(map[*ir.BasicBlock]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func nullConstant(m *ir.Module, typ ir.TypeID) *ir.Value {
	return m.NewConstant(typ, nil)
}

// promoteMultiBlock implements §4.5.7 steps 4-7: insert φ-nodes at the
// iterated dominance frontier of the alloca's def blocks (without
// pruning), rename via one DFS from the entry, patch
// any φ missing incoming entries with null constants, then erase the
// alloca.
func promoteMultiBlock(fn *ir.Function, ai *allocaInfo, frontier *domtree.Frontier) {
	var defBlocks []*ir.BasicBlock
	for b := range ai.defBlocks {
		defBlocks = append(defBlocks, b)
	}
	idfBlocks := frontier.IteratedFrontier(defBlocks)

	phiOf := make(map[*ir.BasicBlock]*ir.Instruction)
	for _, b := range idfBlocks {
		phi, _ := ir.NewPhi(fn, b, ai.elemType, "")
		phiOf[b] = phi
	}

	// Pruning (§4.5.7 step 4: drop any inserted φ that dominates no real
	// use) is not done here: every φ inserted above is kept, including
	// one that no load reads. Such a φ's result is used, if at all, only
	// by other φs. DIE and DCE skip φs; ADCE erases a non-live φ whose
	// result has no uses.
	visited := make(map[*ir.BasicBlock]bool)
	var walk func(b *ir.BasicBlock, current *ir.Value)
	walk = func(b *ir.BasicBlock, current *ir.Value) {
		if visited[b] {
			return
		}
		visited[b] = true

		if phi, ok := phiOf[b]; ok {
			current = phi.Result
		}

		for _, inst := range append([]*ir.Instruction{}, b.Instructions...) {
			switch {
			case inst.Op == ir.OpLoad && inst.Operands[0].Value == ai.inst.Result:
				ir.ReplaceAllUsesWith(inst.Result, current)
				_ = ir.Erase(inst)
			case inst.Op == ir.OpStore && inst.Operands[0].Value == ai.inst.Result:
				current = inst.Operands[1].Value
				detachStore(inst)
			}
		}

		for _, s := range b.Successors {
			if phi, ok := phiOf[s]; ok {
				ir.AddPhiIncoming(phi, b, current)
			}
		}

		for _, s := range b.Successors {
			walk(s, current)
		}
	}
	walk(fn.Entry(), nullConstant(fn.Module, ai.elemType))

	// Patch φs missing incoming entries from unreachable predecessors.
	for b, phi := range phiOf {
		seen := make(map[*ir.BasicBlock]bool)
		for _, p := range phi.PhiPreds {
			seen[p] = true
		}
		for _, p := range b.Predecessors {
			if !seen[p] {
				ir.AddPhiIncoming(phi, p, nullConstant(fn.Module, ai.elemType))
			}
		}
	}

	_ = ir.Erase(ai.inst)
}
