package transform

import (
	"ssacore/internal/domtree"
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// ADCE is aggressive dead-code elimination over the post-dominance
// frontier as the control-dependence graph (§4.5.3): every instruction
// starts dead; side-effecting instructions and returns are live seeds;
// operands of live instructions are live; and the terminator of any
// block B' in post-DF(B) is live once B is live (B is "control
// dependent" on that branch). A conditional branch nothing is control
// dependent on is retargeted to its nearest live post-dominator and the
// blocks it used to choose between are removed once no longer reachable.
type ADCE struct{}

func (ADCE) Name() string                  { return "adce" }
func (ADCE) Requires() []pass.AnalysisKey  { return nil }
func (ADCE) Preserves() []pass.AnalysisKey { return nil }
func (ADCE) PreservesCFG() bool            { return false }

func (ADCE) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	if len(fn.Blocks) == 0 {
		return false, nil
	}

	u := domtree.Unify(fn)
	defer u.Release()

	// synthExit is the placeholder Unify inserted to join multiple real
	// exits, or nil when the function already has exactly one — in that
	// case u.Exit is a genuine, ordinary member of fn.Blocks and must be
	// treated like any other block, not excluded from liveness/kept.
	var synthExit *ir.BasicBlock
	if u.IsSynthetic() {
		synthExit = u.Exit
	}

	var postDom *domtree.Info
	var postFrontier *domtree.Frontier
	if u.Exit != nil {
		postDom = domtree.Compute(domtree.Reverse(u.Graph(), u.Exit))
		postFrontier = domtree.ComputeFrontier(postDom)
	}

	liveInst := make(map[*ir.Instruction]bool)
	liveBlock := make(map[*ir.BasicBlock]bool)
	var worklist []*ir.Instruction

	markBlockLive := func(b *ir.BasicBlock) {
		if b == synthExit {
			return
		}
		liveBlock[b] = true
	}

	// The entry block can never be retargeted to or removed, regardless
	// of whether anything inside it is live.
	markBlockLive(fn.Blocks[0])

	for _, b := range fn.Blocks {
		if b == synthExit {
			continue
		}
		for _, inst := range b.Instructions {
			if inst.HasSideEffects() || inst.Op == ir.OpReturn {
				if !liveInst[inst] {
					liveInst[inst] = true
					worklist = append(worklist, inst)
					markBlockLive(b)
				}
			}
		}
	}

	for len(worklist) > 0 {
		inst := worklist[0]
		worklist = worklist[1:]
		for _, u2 := range inst.Operands {
			if u2.Value != nil && u2.Value.Kind == ir.ValInstruction && !liveInst[u2.Value.Def] {
				liveInst[u2.Value.Def] = true
				worklist = append(worklist, u2.Value.Def)
				markBlockLive(u2.Value.Def.Block)
			}
		}
		if inst.Op == ir.OpPhi {
			for _, pred := range inst.PhiPreds {
				markBlockLive(pred)
			}
		}
	}

	// Blocks this one is control-dependent on contribute their
	// terminator to liveness, propagated to fixpoint. Only a
	// conditional branch can be control-depended upon; an unconditional
	// jump encodes no decision and is never a member of a frontier.
	if postFrontier != nil {
		changedBlocks := true
		for changedBlocks {
			changedBlocks = false
			for b := range liveBlock {
				for _, w := range postFrontier.Of(b) {
					if w == synthExit {
						continue
					}
					term := w.Terminator()
					if term != nil && !liveInst[term] {
						liveInst[term] = true
						markBlockLive(w)
						changedBlocks = true
					}
				}
			}
		}
	}

	changed := false

	for b := range liveBlock {
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			if inst.IsTerminator() || liveInst[inst] {
				continue
			}
			if inst.Result != nil && len(inst.Result.Uses) > 0 {
				ir.DropAllReferences(inst)
				continue
			}
			if err := ir.Erase(inst); err != nil {
				return changed, err
			}
			changed = true
		}
	}

	// A conditional branch nothing is control-dependent on picks a
	// nearest live post-dominator T: both arms reach T with no live
	// phi distinguishing the path taken (any such phi would have
	// forced the branch itself live above), so b can jump straight to
	// T without synthesizing a new incoming value anywhere.
	if postDom != nil {
		for b := range liveBlock {
			term := b.Terminator()
			if term == nil || term.Op != ir.OpCondBranch || liveInst[term] {
				continue
			}
			target := nearestLivePostDom(postDom, b, liveBlock, synthExit)
			if target == nil || target == b {
				continue
			}
			retargetDeadBranch(b, term, target)
			changed = true
		}

		var kept []*ir.BasicBlock
		for _, b := range fn.Blocks {
			if b == synthExit {
				continue
			}
			if liveBlock[b] {
				kept = append(kept, b)
				continue
			}
			for _, s := range append([]*ir.BasicBlock{}, b.Successors...) {
				ir.RemovePredecessor(s, b)
			}
			changed = true
		}
		if changed {
			fn.Blocks = kept
		}
	}

	return changed, nil
}

// nearestLivePostDom walks b's post-dominator chain until it reaches a
// kept block, or nil if none is found short of synthExit (the
// multi-exit join placeholder, never a valid retarget target itself;
// nil when the function has a single real exit, which IS a valid
// target and so must not be excluded from the walk).
func nearestLivePostDom(postDom *domtree.Info, b *ir.BasicBlock, liveBlock map[*ir.BasicBlock]bool, synthExit *ir.BasicBlock) *ir.BasicBlock {
	for cur := postDom.IDom(b); cur != nil && cur != synthExit; cur = postDom.IDom(cur) {
		if liveBlock[cur] {
			return cur
		}
	}
	return nil
}

// retargetDeadBranch replaces b's dead conditional branch with an
// unconditional jump to target, detaching b from whichever of its two
// original successors are no longer target itself.
func retargetDeadBranch(b *ir.BasicBlock, term *ir.Instruction, target *ir.BasicBlock) {
	oldTargets := []*ir.BasicBlock{term.TrueBlock, term.FalseBlock}
	ir.DropAllReferences(term)
	jump := &ir.Instruction{ID: term.ID, Op: ir.OpJump, Target: target, Block: b}
	idx := b.IndexOf(term)
	b.Instructions[idx] = jump

	for _, old := range oldTargets {
		if old == target {
			continue
		}
		ir.RemovePredecessor(old, b)
	}

	var newSucc []*ir.BasicBlock
	for _, s := range b.Successors {
		if s == oldTargets[0] || s == oldTargets[1] {
			continue
		}
		newSucc = append(newSucc, s)
	}
	b.Successors = append(newSucc, target)

	alreadyPred := false
	for _, p := range target.Predecessors {
		if p == b {
			alreadyPred = true
			break
		}
	}
	if !alreadyPred {
		target.Predecessors = append(target.Predecessors, b)
	}
}
