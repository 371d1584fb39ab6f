package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// Reassociate canonicalizes associative-commutative expression trees
// (§4.5.5): subtractions are first rewritten as additions of a negated
// operand, balanced two-level trees are linearized into a left-leaning
// chain, and within a chain the higher-ranked operand is promoted to
// the LHS. A `(x op a) op b` chain whose a and b are both constants is
// regrouped to `x op (a op b)` so the two constants become one
// subtree's operands for ConstProp to fold — rank alone can never
// order two rank-0 leaves against each other, so the ordinary swap
// below never reaches them.
type Reassociate struct{}

func (Reassociate) Name() string                  { return "reassociate" }
func (Reassociate) Requires() []pass.AnalysisKey  { return nil }
func (Reassociate) Preserves() []pass.AnalysisKey { return nil }
func (Reassociate) PreservesCFG() bool            { return true }

func (Reassociate) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction{}, b.Instructions...) {
			if inst.Op != ir.OpBinary || inst.BinOp != ir.Sub {
				continue
			}
			ok, err := rewriteSubtraction(fn, inst)
			if err != nil {
				return changed, err
			}
			if ok {
				changed = true
			}
		}
	}

	ranks := computeRanks(fn)
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op != ir.OpBinary || !inst.BinOp.IsAssociativeCommutative() || inst.BinOp.IsFloat() {
				continue
			}
			if linearizeTree(inst) {
				changed = true
			}
			if reassociateOne(ranks, b, inst) {
				changed = true
			}
			if combineConstantChain(inst) {
				changed = true
			}
		}
	}
	return changed, nil
}

// rewriteSubtraction turns `x - y` into `x + (-y)`. A constant y is
// negated directly; otherwise `0 - y` is materialized right before
// inst and inst becomes `x + (0 - y)`. A Sub whose LHS is already the
// constant zero is left alone — it is itself the canonical negation
// form this rewrite produces, and touching it again would recurse
// forever across repeated pipeline iterations.
func rewriteSubtraction(fn *ir.Function, inst *ir.Instruction) (bool, error) {
	lhs := inst.Operands[0].Value
	rhs := inst.Operands[1].Value
	if rhs == nil || isZeroConst(lhs) {
		return false, nil
	}

	var negated *ir.Value
	if rhs.Kind == ir.ValConstant {
		negated = fn.Module.NewConstant(rhs.Type, negateConst(rhs.ConstVal))
	} else {
		neg, err := ir.NewNegate(fn, inst, rhs, rhs.Type, "neg")
		if err != nil {
			return false, err
		}
		negated = neg.Result
	}
	inst.BinOp = ir.Add
	ir.ReplaceOperand(inst, 1, negated)
	return true, nil
}

func isZeroConst(v *ir.Value) bool {
	if v == nil || v.Kind != ir.ValConstant {
		return false
	}
	switch n := v.ConstVal.(type) {
	case int64:
		return n == 0
	case int:
		return n == 0
	default:
		return false
	}
}

func negateConst(v interface{}) interface{} {
	switch n := v.(type) {
	case int64:
		return -n
	case int:
		return -n
	default:
		return v
	}
}

// linearizeTree rewrites a balanced `(A op B) op (C op D)` into the
// left-leaning `((A op B) op C) op D` (§4.5.5), reusing inst's current
// RHS instruction as the new inner node so later passes only ever walk
// a chain, never a tree, of a given op.
func linearizeTree(inst *ir.Instruction) bool {
	lhs := inst.Operands[0].Value
	rhs := inst.Operands[1].Value
	if !isSameOpSingleUse(lhs, inst.BinOp) || !isSameOpSingleUse(rhs, inst.BinOp) {
		return false
	}
	rhsDef := rhs.Def
	c := rhsDef.Operands[0].Value
	d := rhsDef.Operands[1].Value

	ir.ReplaceOperand(rhsDef, 0, lhs)
	ir.ReplaceOperand(rhsDef, 1, c)
	ir.ReplaceOperand(inst, 0, rhs)
	ir.ReplaceOperand(inst, 1, d)
	return true
}

// reassociateOne promotes the higher-ranked operand to the LHS, then —
// when the LHS is itself a single-use same-op instruction `x op a` —
// swaps a with inst's RHS b if that leaves the lower rank deeper in
// the tree. lhs.Def is only mutated when single-use: otherwise its
// other users would silently see a different computed value.
func reassociateOne(ranks map[*ir.Value]int, b *ir.BasicBlock, inst *ir.Instruction) bool {
	changed := false
	lhs := inst.Operands[0].Value
	rhs := inst.Operands[1].Value
	rl := rankOf(ranks, b, lhs)
	rr := rankOf(ranks, b, rhs)
	if rr > rl {
		ir.ReplaceOperand(inst, 0, rhs)
		ir.ReplaceOperand(inst, 1, lhs)
		changed = true
		lhs, rhs = rhs, lhs
	}

	if isSameOpSingleUse(lhs, inst.BinOp) {
		a := lhs.Def.Operands[1].Value
		ra := rankOf(ranks, b, a)
		rb := rankOf(ranks, b, rhs)
		if rb < ra {
			ir.ReplaceOperand(lhs.Def, 1, rhs)
			ir.ReplaceOperand(inst, 1, a)
			changed = true
		}
	}
	return changed
}

// combineConstantChain regroups `(x op a) op b` into `x op (a op b)`
// when a and b are both constants: the inner instruction is repurposed
// to compute `a op b` and inst to compute `x op inner`, colocating the
// two constants as one subtree's operands.
func combineConstantChain(inst *ir.Instruction) bool {
	lhs := inst.Operands[0].Value
	rhs := inst.Operands[1].Value
	if !isSameOpSingleUse(lhs, inst.BinOp) || rhs == nil || rhs.Kind != ir.ValConstant {
		return false
	}
	inner := lhs.Def
	x := inner.Operands[0].Value
	a := inner.Operands[1].Value
	if a == nil || a.Kind != ir.ValConstant {
		return false
	}

	ir.ReplaceOperand(inner, 0, a)
	ir.ReplaceOperand(inner, 1, rhs)
	ir.ReplaceOperand(inst, 0, x)
	ir.ReplaceOperand(inst, 1, lhs)
	return true
}

func isSameOpSingleUse(v *ir.Value, op ir.BinOp) bool {
	return v != nil && v.Kind == ir.ValInstruction && v.Def.Op == ir.OpBinary && v.Def.BinOp == op && len(v.Uses) == 1
}

// computeRanks assigns rank 2+ to instruction results in function-local
// reverse postorder; constants and arguments get their fixed ranks
// lazily via rankOf.
func computeRanks(fn *ir.Function) map[*ir.Value]int {
	ranks := make(map[*ir.Value]int)
	order := ir.ReversePostOrderBlocks(fn)
	next := 2
	for _, b := range order {
		for _, inst := range b.Instructions {
			if inst.Result == nil {
				continue
			}
			if inst.Op == ir.OpPhi || inst.IsTerminator() || inst.Op == ir.OpAlloca || inst.Op == ir.OpMalloc || inst.HasSideEffects() {
				continue // ranked via the containing block at query time
			}
			ranks[inst.Result] = next
			next++
		}
	}
	return ranks
}

// rankOf resolves v's rank: 0 for constants, 1 for arguments, the
// precomputed rank for ordinary instruction results, and — for
// φ-nodes/terminators/allocas/mallocs/side-effecting instructions —
// the rank of the first ranked instruction in their containing block
// (falling back to 2 if the block has none).
func rankOf(ranks map[*ir.Value]int, containing *ir.BasicBlock, v *ir.Value) int {
	if v == nil {
		return 0
	}
	switch v.Kind {
	case ir.ValConstant:
		return 0
	case ir.ValArgument:
		return 1
	case ir.ValInstruction:
		if r, ok := ranks[v]; ok {
			return r
		}
		return blockRank(ranks, v.Def.Block)
	default:
		return blockRank(ranks, containing)
	}
}

func blockRank(ranks map[*ir.Value]int, b *ir.BasicBlock) int {
	for _, inst := range b.Instructions {
		if inst.Result != nil {
			if r, ok := ranks[inst.Result]; ok {
				return r
			}
		}
	}
	return 2
}
