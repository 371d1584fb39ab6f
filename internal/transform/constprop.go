// Package transform implements the scalar transformations of §4.5, one
// file per pass, each a pass.FunctionPass (or pass.ModulePass for the
// module-scoped Internalize) declaring its own Requires/Preserves/
// PreservesCFG.
package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// ConstProp evaluates any instruction whose operands are all constants
// to a constant of the result type, replaces all its uses, and pushes
// the newly-constant-fed users back onto a worklist so cascading folds
// happen (§4.5.1). It never deletes an instruction — the folded
// instruction becomes trivially dead and is left for DCE.
type ConstProp struct{}

func (ConstProp) Name() string                  { return "constprop" }
func (ConstProp) Requires() []pass.AnalysisKey  { return nil }
func (ConstProp) Preserves() []pass.AnalysisKey { return nil }
func (ConstProp) PreservesCFG() bool            { return true }

func (ConstProp) Apply(fn *ir.Function, am *pass.Manager) (bool, error) {
	changed := false
	worklist := ir.NewValueSetVector()
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Result != nil {
				worklist.Insert(inst.Result)
			}
		}
	}

	queue := append([]*ir.Value{}, worklist.Items()...)
	seen := make(map[*ir.Value]bool)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if seen[v] || v.Def == nil || v.IsDestroyed() {
			continue
		}
		inst := v.Def
		folded, ok := foldInstruction(fn.Module.Types, inst)
		if !ok {
			continue
		}
		seen[v] = true
		changed = true

		for _, u := range append([]*ir.Use{}, v.Uses...) {
			if u.User != nil && u.User.Result != nil {
				queue = append(queue, u.User.Result)
			}
		}
		ir.ReplaceAllUsesWith(v, folded)
	}
	return changed, nil
}

// foldInstruction evaluates inst if every operand is a constant,
// returning the folded constant value and true.
func foldInstruction(types *ir.TypeInterner, inst *ir.Instruction) (*ir.Value, bool) {
	switch inst.Op {
	case ir.OpBinary:
		l, lok := constOperand(inst.Operands[0].Value)
		r, rok := constOperand(inst.Operands[1].Value)
		if !lok || !rok {
			return nil, false
		}
		res, ok := foldBinary(inst.BinOp, l, r)
		if !ok {
			return nil, false
		}
		return constValue(inst.Block.Func.Module, inst.Result.Type, res), true
	case ir.OpCompare:
		l, lok := constOperand(inst.Operands[0].Value)
		r, rok := constOperand(inst.Operands[1].Value)
		if !lok || !rok {
			return nil, false
		}
		res, ok := foldCompare(inst.Pred, l, r)
		if !ok {
			return nil, false
		}
		return constValue(inst.Block.Func.Module, inst.Result.Type, res), true
	default:
		return nil, false
	}
}

func constOperand(v *ir.Value) (interface{}, bool) {
	if v == nil || v.Kind != ir.ValConstant {
		return nil, false
	}
	return v.ConstVal, true
}

func constValue(m *ir.Module, typ ir.TypeID, data interface{}) *ir.Value {
	return m.NewConstant(typ, data)
}

func foldBinary(op ir.BinOp, l, r interface{}) (interface{}, bool) {
	li, liok := toInt64(l)
	ri, riok := toInt64(r)
	if liok && riok {
		switch op {
		case ir.Add:
			return li + ri, true
		case ir.Sub:
			return li - ri, true
		case ir.Mul:
			return li * ri, true
		case ir.SDiv:
			if ri == 0 {
				return nil, false
			}
			return li / ri, true
		case ir.SRem:
			if ri == 0 {
				return nil, false
			}
			return li % ri, true
		case ir.And:
			return li & ri, true
		case ir.Or:
			return li | ri, true
		case ir.Xor:
			return li ^ ri, true
		case ir.Shl:
			return li << uint(ri), true
		case ir.AShr:
			return li >> uint(ri), true
		}
	}
	lf, lfok := toFloat64(l)
	rf, rfok := toFloat64(r)
	if lfok && rfok {
		switch op {
		case ir.FAdd:
			return lf + rf, true
		case ir.FSub:
			return lf - rf, true
		case ir.FMul:
			return lf * rf, true
		case ir.FDiv:
			if rf == 0 {
				return nil, false
			}
			return lf / rf, true
		}
	}
	return nil, false
}

func foldCompare(pred ir.CmpPred, l, r interface{}) (interface{}, bool) {
	li, liok := toInt64(l)
	ri, riok := toInt64(r)
	if !liok || !riok {
		return nil, false
	}
	switch pred {
	case ir.CmpEQ:
		return li == ri, true
	case ir.CmpNE:
		return li != ri, true
	case ir.CmpLT:
		return li < ri, true
	case ir.CmpLE:
		return li <= ri, true
	case ir.CmpGT:
		return li > ri, true
	case ir.CmpGE:
		return li >= ri, true
	}
	return nil, false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
