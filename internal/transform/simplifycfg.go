package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// SimplifyCFG repeatedly applies a fixed set of CFG peepholes until no
// block changes (§4.5.6): remove blocks unreachable from the entry
// (entry exempted), merge a block into its sole predecessor when that's the
// predecessor's only successor and the block has no φs, collapse a
// block that is solely an unconditional jump into its successor edge
// (unless that would introduce a duplicate predecessor of a φ-bearing
// successor), and constant-fold conditional branches.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string                  { return "simplifycfg" }
func (SimplifyCFG) Requires() []pass.AnalysisKey  { return nil }
func (SimplifyCFG) Preserves() []pass.AnalysisKey { return nil }
func (SimplifyCFG) PreservesCFG() bool            { return false }

func (SimplifyCFG) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false
	for {
		iterChanged := false
		if foldConditionalBranches(fn) {
			iterChanged = true
		}
		if removeUnreachableBlocks(fn) {
			iterChanged = true
		}
		if mergeSoleSuccessors(fn) {
			iterChanged = true
		}
		if collapseJumpOnlyBlocks(fn) {
			iterChanged = true
		}
		if iterChanged {
			changed = true
			continue
		}
		break
	}
	return changed, nil
}

func foldConditionalBranches(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.OpCondBranch {
			continue
		}
		cond := term.Operands[0].Value
		if cond == nil || cond.Kind != ir.ValConstant {
			continue
		}
		taken, dead := term.TrueBlock, term.FalseBlock
		if isFalsy(cond.ConstVal) {
			taken, dead = term.FalseBlock, term.TrueBlock
		}
		ir.RemovePredecessor(dead, b)
		for i, s := range b.Successors {
			if s == dead {
				b.Successors = append(b.Successors[:i], b.Successors[i+1:]...)
				break
			}
		}
		jump := &ir.Instruction{ID: term.ID, Op: ir.OpJump, Target: taken, Block: b}
		idx := b.IndexOf(term)
		ir.DropAllReferences(term)
		b.Instructions[idx] = jump
		changed = true
	}
	return changed
}

func isFalsy(v interface{}) bool {
	switch n := v.(type) {
	case bool:
		return !n
	case int64:
		return n == 0
	case int:
		return n == 0
	default:
		return false
	}
}

func removeUnreachableBlocks(fn *ir.Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	entry := fn.Blocks[0]
	reachable := make(map[*ir.BasicBlock]bool)
	var stack []*ir.BasicBlock
	stack = append(stack, entry)
	reachable[entry] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Successors {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	changed := false
	var kept []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if b == entry || reachable[b] {
			kept = append(kept, b)
			continue
		}
		for _, s := range b.Successors {
			ir.RemovePredecessor(s, b)
		}
		changed = true
	}
	if changed {
		fn.Blocks = kept
	}
	return changed
}

// mergeSoleSuccessors merges B into its sole predecessor P when P has
// B as its only successor and B has no φ-node at its head.
func mergeSoleSuccessors(fn *ir.Function) bool {
	changed := false
	for i := 0; i < len(fn.Blocks); i++ {
		b := fn.Blocks[i]
		if len(b.Predecessors) != 1 || len(b.Phis()) != 0 {
			continue
		}
		p := b.Predecessors[0]
		if len(p.Successors) != 1 || p.Successors[0] != b || p == b {
			continue
		}
		pTerm := p.Terminator()
		if pTerm == nil || pTerm.Op != ir.OpJump {
			continue
		}
		idx := p.IndexOf(pTerm)
		ir.DropAllReferences(pTerm)
		p.Instructions = p.Instructions[:idx]

		for _, inst := range b.Instructions {
			inst.Block = p
		}
		p.Instructions = append(p.Instructions, b.Instructions...)
		p.Successors = b.Successors
		for _, s := range b.Successors {
			for j, pred := range s.Predecessors {
				if pred == b {
					s.Predecessors[j] = p
				}
			}
		}
		fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
		i--
		changed = true
	}
	return changed
}

// collapseJumpOnlyBlocks replaces a block consisting solely of an
// unconditional jump to S with a direct edge, skipping it — unless
// that would create a duplicate predecessor of an S that has φ-nodes.
func collapseJumpOnlyBlocks(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b == fn.Blocks[0] || len(b.Instructions) != 1 {
			continue
		}
		term := b.Instructions[0]
		if term.Op != ir.OpJump {
			continue
		}
		s := term.Target
		if s == b {
			continue
		}
		if len(s.Phis()) > 0 && hasPredecessor(s, b.Predecessors) {
			continue
		}
		for _, p := range append([]*ir.BasicBlock{}, b.Predecessors...) {
			redirectSuccessor(p, b, s)
		}
		changed = true
	}
	return changed
}

func hasPredecessor(s *ir.BasicBlock, candidates []*ir.BasicBlock) bool {
	for _, c := range candidates {
		for _, p := range s.Predecessors {
			if p == c {
				return true
			}
		}
	}
	return false
}

func redirectSuccessor(p, from, to *ir.BasicBlock) {
	term := p.Terminator()
	if term == nil {
		return
	}
	switch term.Op {
	case ir.OpJump:
		if term.Target == from {
			term.Target = to
		}
	case ir.OpCondBranch:
		if term.TrueBlock == from {
			term.TrueBlock = to
		}
		if term.FalseBlock == from {
			term.FalseBlock = to
		}
	}
	for i, s := range p.Successors {
		if s == from {
			p.Successors[i] = to
		}
	}
	ir.RemovePredecessor(from, p)
	to.Predecessors = append(to.Predecessors, p)
	for _, phi := range to.Phis() {
		hasEdge := false
		for _, pred := range phi.PhiPreds {
			if pred == p {
				hasEdge = true
			}
		}
		if !hasEdge {
			for _, fromPhi := range from.Phis() {
				if fromPhi.Result.Name == phi.Result.Name {
					ir.AddPhiIncoming(phi, p, fromPhi.Operands[0].Value)
				}
			}
		}
	}
}
