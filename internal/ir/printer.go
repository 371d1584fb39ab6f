package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Module as readable, reparsable-by-eye textual IR,
// grounded on the teacher's internal/ir/printer.go layout: an indent-
// tracking string builder with write/writeLine helpers and one switch
// over the instruction discriminator.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates an empty printer.
func NewPrinter() *Printer {
	return &Printer{}
}

// Print renders m in full.
func Print(m *Module) string {
	p := NewPrinter()
	p.printModule(m)
	return p.output.String()
}

// PrintFunction renders a single function, useful for pass-level
// before/after diagnostics.
func PrintFunction(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printModule(m *Module) {
	p.writeLine("MODULE %s", m.Name)
	p.writeLine("")
	for _, g := range m.Globals {
		p.writeLine("GLOBAL %s : %s", p.valueString(g), m.Types.String(g.Type))
	}
	if len(m.Globals) > 0 {
		p.writeLine("")
	}
	for _, fn := range m.Functions {
		p.printFunction(fn)
		p.writeLine("")
	}
}

func (p *Printer) printFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	types := fn.Module.Types
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", param.Name, types.String(param.Type))
	}
	sig := fmt.Sprintf("FUNCTION %s(%s) -> %s", fn.Name, strings.Join(params, ", "), types.String(fn.RetType))
	if fn.Linkage == Internal {
		sig = "internal " + sig
	}
	if fn.IsDeclaration() {
		p.writeLine("declare %s", sig)
		return
	}
	p.writeLine("%s {", sig)
	p.indent++
	for _, block := range fn.Blocks {
		p.printBlock(block)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(b *BasicBlock) {
	preds := make([]string, len(b.Predecessors))
	for i, pr := range b.Predecessors {
		preds[i] = pr.Label
	}
	if len(preds) > 0 {
		p.writeLine("%s:  ; preds = %s", b.Label, strings.Join(preds, ", "))
	} else {
		p.writeLine("%s:", b.Label)
	}
	p.indent++
	for _, inst := range b.Instructions {
		p.printInstruction(inst)
	}
	p.indent--
}

func (p *Printer) printInstruction(i *Instruction) {
	types := i.Block.Func.Module.Types
	result := ""
	if i.Result != nil {
		result = p.valueString(i.Result) + " = "
	}
	switch i.Op {
	case OpBinary:
		p.writeLine("%s%s %s, %s", result, i.BinOp, p.valueString(i.Operands[0].Value), p.valueString(i.Operands[1].Value))
	case OpCompare:
		p.writeLine("%scmp %s %s, %s", result, i.Pred, p.valueString(i.Operands[0].Value), p.valueString(i.Operands[1].Value))
	case OpCast:
		p.writeLine("%scast %s, %s", result, p.valueString(i.Operands[0].Value), types.String(i.Result.Type))
	case OpAlloca:
		p.writeLine("%salloca %s", result, types.String(i.ElemType))
	case OpLoad:
		volatile := ""
		if i.Volatile {
			volatile = "volatile "
		}
		p.writeLine("%s%sload %s", result, volatile, p.valueString(i.Operands[0].Value))
	case OpStore:
		volatile := ""
		if i.Volatile {
			volatile = "volatile "
		}
		p.writeLine("%sstore %s, %s", volatile, p.valueString(i.Operands[1].Value), p.valueString(i.Operands[0].Value))
	case OpMalloc:
		p.writeLine("%smalloc %s", result, types.String(i.ElemType))
	case OpFree:
		p.writeLine("free %s", p.valueString(i.Operands[0].Value))
	case OpGetElementPtr:
		idx := make([]string, 0, len(i.Operands)-1)
		for _, u := range i.Operands[1:] {
			idx = append(idx, p.valueString(u.Value))
		}
		p.writeLine("%sgetelementptr %s, %s", result, p.valueString(i.Operands[0].Value), strings.Join(idx, ", "))
	case OpCall:
		args := make([]string, len(i.Operands))
		for j, u := range i.Operands {
			args[j] = p.valueString(u.Value)
		}
		p.writeLine("%scall %s(%s)", result, i.Callee, strings.Join(args, ", "))
	case OpPhi:
		incoming := make([]string, len(i.PhiPreds))
		for j, pred := range i.PhiPreds {
			incoming[j] = fmt.Sprintf("[%s: %s]", pred.Label, p.valueString(i.Operands[j].Value))
		}
		p.writeLine("%sphi %s", result, strings.Join(incoming, ", "))
	case OpJump:
		p.writeLine("jump %s", i.Target.Label)
	case OpCondBranch:
		p.writeLine("br %s, %s, %s", p.valueString(i.Operands[0].Value), i.TrueBlock.Label, i.FalseBlock.Label)
	case OpReturn:
		if len(i.Operands) > 0 {
			p.writeLine("return %s", p.valueString(i.Operands[0].Value))
		} else {
			p.writeLine("return")
		}
	case OpUnreachable:
		p.writeLine("unreachable")
	default:
		p.writeLine("%s<unknown opcode %d>", result, i.Op)
	}
}

func (p *Printer) valueString(v *Value) string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case ValConstant:
		return fmt.Sprintf("%v", v.ConstVal)
	case ValBlockRef:
		return "label:" + v.BlockRef.Label
	default:
		if v.Name != "" {
			return "%" + v.Name
		}
		return fmt.Sprintf("%%%d", v.ID)
	}
}

func (f *Function) String() string   { return "function " + f.Name }
func (b *BasicBlock) String() string { return "block " + b.Label }
func (v *Value) String() string {
	if v.Name != "" {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%%d", v.ID)
}
