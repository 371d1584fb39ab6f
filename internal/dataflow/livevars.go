// Package dataflow implements the classic backward live-variable
// analysis of §4.6 at basic-block granularity.
package dataflow

import "ssacore/internal/ir"

// LiveVariables holds per-block use/def/in/out sets and per-instruction
// kill sets for one function.
type LiveVariables struct {
	use, def, in, out map[*ir.BasicBlock]map[*ir.Value]bool
	kill              map[*ir.Instruction][]*ir.Value
}

// Compute runs the fixpoint of §4.6 over fn: use(B)/def(B) are derived
// per-block, in(B) = use(B) ∪ (out(B) \ def(B)), out(B) = ⋃ in(S) for
// successors S, iterated to convergence in reverse postorder. φ-node
// inputs are attributed as uses of the corresponding predecessor block,
// never of the φ's own block.
func Compute(fn *ir.Function) *LiveVariables {
	lv := &LiveVariables{
		use:  make(map[*ir.BasicBlock]map[*ir.Value]bool),
		def:  make(map[*ir.BasicBlock]map[*ir.Value]bool),
		in:   make(map[*ir.BasicBlock]map[*ir.Value]bool),
		out:  make(map[*ir.BasicBlock]map[*ir.Value]bool),
		kill: make(map[*ir.Instruction][]*ir.Value),
	}

	for _, b := range fn.Blocks {
		lv.use[b] = make(map[*ir.Value]bool)
		lv.def[b] = make(map[*ir.Value]bool)
		lv.in[b] = make(map[*ir.Value]bool)
		lv.out[b] = make(map[*ir.Value]bool)
	}

	// use/def within each block, ignoring phis (handled per-edge below).
	for _, b := range fn.Blocks {
		defined := make(map[*ir.Value]bool)
		for _, inst := range b.Instructions {
			if inst.Op == ir.OpPhi {
				if inst.Result != nil {
					defined[inst.Result] = true
					lv.def[b][inst.Result] = true
				}
				continue
			}
			for _, u := range inst.Operands {
				if u.Value != nil && isLocal(u.Value) && !defined[u.Value] {
					lv.use[b][u.Value] = true
				}
			}
			if inst.Result != nil {
				defined[inst.Result] = true
				lv.def[b][inst.Result] = true
			}
		}
	}

	// φ-node inputs count as a use in the predecessor block that
	// supplies the corresponding edge.
	for _, b := range fn.Blocks {
		for _, phi := range b.Phis() {
			for i, pred := range phi.PhiPreds {
				v := phi.Operands[i].Value
				if v != nil && isLocal(v) && !lv.def[pred][v] {
					lv.use[pred][v] = true
				}
			}
		}
	}

	order := ir.ReversePostOrderBlocks(fn)
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			newOut := make(map[*ir.Value]bool)
			for _, s := range b.Successors {
				for v := range lv.in[s] {
					newOut[v] = true
				}
			}
			newIn := make(map[*ir.Value]bool)
			for v := range lv.use[b] {
				newIn[v] = true
			}
			for v := range newOut {
				if !lv.def[b][v] {
					newIn[v] = true
				}
			}
			if !setsEqual(newIn, lv.in[b]) || !setsEqual(newOut, lv.out[b]) {
				lv.in[b] = newIn
				lv.out[b] = newOut
				changed = true
			}
		}
	}

	lv.computeKills(fn)
	return lv
}

// isLocal excludes constants and globals from liveness tracking —
// they need no register and are never "live across" anything.
func isLocal(v *ir.Value) bool {
	return v.Kind == ir.ValInstruction || v.Kind == ir.ValArgument
}

func setsEqual(a, b map[*ir.Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// computeKills walks each block backward from out(B), marking the
// instruction at which each live value's last use occurs.
func (lv *LiveVariables) computeKills(fn *ir.Function) {
	for _, b := range fn.Blocks {
		live := make(map[*ir.Value]bool)
		for v := range lv.out[b] {
			live[v] = true
		}
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			if inst.Op == ir.OpPhi {
				continue
			}
			var kills []*ir.Value
			for _, u := range inst.Operands {
				if u.Value != nil && isLocal(u.Value) && !live[u.Value] {
					kills = append(kills, u.Value)
					live[u.Value] = true
				}
			}
			if len(kills) > 0 {
				lv.kill[inst] = kills
			}
			if inst.Result != nil {
				delete(live, inst.Result)
			}
		}
	}
}

// In returns the live-in set of b.
func (lv *LiveVariables) In(b *ir.BasicBlock) map[*ir.Value]bool { return lv.in[b] }

// Out returns the live-out set of b.
func (lv *LiveVariables) Out(b *ir.BasicBlock) map[*ir.Value]bool { return lv.out[b] }

// Use returns the upward-exposed use set of b.
func (lv *LiveVariables) Use(b *ir.BasicBlock) map[*ir.Value]bool { return lv.use[b] }

// Def returns the set of values b defines.
func (lv *LiveVariables) Def(b *ir.BasicBlock) map[*ir.Value]bool { return lv.def[b] }

// KillsAt returns the values whose last use is inst, if any.
func (lv *LiveVariables) KillsAt(inst *ir.Instruction) []*ir.Value { return lv.kill[inst] }
