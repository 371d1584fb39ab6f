package ir

import "ssacore/internal/errs"

// This file implements the IR model's construction, iteration, and
// mutation primitives (§4.1): append/insert/erase, ReplaceAllUsesWith,
// Splice, RemovePredecessor, and the opcode constructors used to build
// instructions with correctly-linked operand uses.

func newUse(user *Instruction, slot int, v *Value) *Use {
	u := &Use{Value: v, User: user, Slot: slot}
	if v != nil {
		v.addUse(u)
	}
	return u
}

// setOperands replaces inst.Operands wholesale, creating a Use (and
// registering it on each value's use-list) for every non-nil operand.
func setOperands(inst *Instruction, values []*Value) {
	inst.Operands = make([]*Use, len(values))
	for i, v := range values {
		inst.Operands[i] = newUse(inst, i, v)
	}
}

// ReplaceOperand rewrites the value referenced by inst's operand at
// slot, updating both use-lists.
func ReplaceOperand(inst *Instruction, slot int, newVal *Value) {
	old := inst.Operands[slot]
	if old.Value != nil {
		old.Value.removeUse(old)
	}
	inst.Operands[slot] = newUse(inst, slot, newVal)
}

// checkNotDestroyed returns an IRInvariant error if v has already been
// destroyed. AppendInst runs it over every operand of the instruction
// it appends; NewBinary and NewNegate also run it before creating any
// use.
func checkNotDestroyed(v *Value) error {
	if v != nil && v.IsDestroyed() {
		return errs.New(errs.IRInvariant, "use of destroyed value %q", v.Name)
	}
	return nil
}

// AppendInst appends inst to the end of b. Errors with IRInvariant if
// b already has a terminator (§4.1: "inserting after a terminator"), or
// if one of inst's operands is a destroyed value; in that case inst's
// operand uses are detached again.
func AppendInst(b *BasicBlock, inst *Instruction) error {
	if b.Terminator() != nil {
		return errs.New(errs.IRInvariant, "cannot append %s after terminator in block %s", inst.Op, b.Label)
	}
	for _, u := range inst.Operands {
		if err := checkNotDestroyed(u.Value); err != nil {
			detachOperands(inst)
			return err
		}
	}
	inst.Block = b
	b.Instructions = append(b.Instructions, inst)
	return nil
}

// InsertBefore inserts inst immediately before mark in mark's block.
func InsertBefore(mark *Instruction, inst *Instruction) error {
	b := mark.Block
	idx := b.IndexOf(mark)
	if idx < 0 {
		return errs.New(errs.IRInvariant, "marker instruction not found in its own block")
	}
	inst.Block = b
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+1:], b.Instructions[idx:])
	b.Instructions[idx] = inst
	return nil
}

// InsertPhi inserts a phi instruction at the end of the block's phi
// prefix, preserving the §3 invariant that phis form a contiguous
// prefix at the top of the block.
func InsertPhi(b *BasicBlock, phi *Instruction) error {
	if phi.Op != OpPhi {
		return errs.New(errs.IRInvariant, "InsertPhi called with non-phi instruction")
	}
	phis := b.Phis()
	phi.Block = b
	if len(phis) == len(b.Instructions) {
		b.Instructions = append(b.Instructions, phi)
		return nil
	}
	idx := len(phis)
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+1:], b.Instructions[idx:])
	b.Instructions[idx] = phi
	return nil
}

// detachOperands clears every operand use of inst from its def's
// use-list without touching inst.Operands itself — the "drop all
// references" half of the two-phase destruction contract (§9).
func detachOperands(inst *Instruction) {
	for _, u := range inst.Operands {
		if u.Value != nil {
			u.Value.removeUse(u)
		}
	}
}

// DropAllReferences detaches every outgoing use of inst, breaking any
// cycle (phi nodes can reference each other and even themselves) so
// the instruction and its result can be safely destroyed afterward.
func DropAllReferences(inst *Instruction) {
	detachOperands(inst)
}

// Erase removes inst from its block and detaches its operand uses.
// Errors with IRInvariant if inst.Result still has uses and the
// caller has not first redirected them (via ReplaceAllUsesWith) or
// called DropAllReferences on its users.
func Erase(inst *Instruction) error {
	if inst.Result != nil && len(inst.Result.Uses) > 0 {
		return errs.New(errs.IRInvariant, "cannot erase %s: result %q still has uses", inst.Op, inst.Result.Name)
	}
	b := inst.Block
	idx := b.IndexOf(inst)
	if idx < 0 {
		return errs.New(errs.IRInvariant, "instruction not found in its own block")
	}
	detachOperands(inst)
	b.Instructions = append(b.Instructions[:idx], b.Instructions[idx+1:]...)
	if inst.Result != nil {
		inst.Result.destroyed = true
	}
	return nil
}

// ReplaceAllUsesWith rewrites every use of old to refer to new instead,
// without cloning any instruction (§4.1). A use of a BlockRef value
// (a branch target) is rewritten just like any other operand.
func ReplaceAllUsesWith(old, new *Value) {
	if old == new {
		return
	}
	uses := old.Uses
	old.Uses = nil
	for _, u := range uses {
		u.Value = new
		if new != nil {
			new.addUse(u)
		}
	}
}

// Splice moves the half-open instruction range [from,to) of src into
// dst, inserted immediately before the instruction currently at dst's
// index dstIdx (or appended if dstIdx == len(dst.Instructions)).
func Splice(src *BasicBlock, from, to int, dst *BasicBlock, dstIdx int) error {
	if from < 0 || to > len(src.Instructions) || from > to {
		return errs.New(errs.IRInvariant, "invalid splice range [%d,%d) on block %s", from, to, src.Label)
	}
	moved := append([]*Instruction{}, src.Instructions[from:to]...)
	src.Instructions = append(src.Instructions[:from], src.Instructions[to:]...)
	for _, inst := range moved {
		inst.Block = dst
	}
	tail := append([]*Instruction{}, dst.Instructions[dstIdx:]...)
	dst.Instructions = append(dst.Instructions[:dstIdx], moved...)
	dst.Instructions = append(dst.Instructions, tail...)
	return nil
}

// RemovePredecessor removes pred from b's predecessor list and strips
// the corresponding incoming entry from every phi at the top of b
// (§4.1).
func RemovePredecessor(b *BasicBlock, pred *BasicBlock) {
	for i, p := range b.Predecessors {
		if p == pred {
			b.Predecessors = append(b.Predecessors[:i], b.Predecessors[i+1:]...)
			break
		}
	}
	for j, s := range pred.Successors {
		if s == b {
			pred.Successors = append(pred.Successors[:j], pred.Successors[j+1:]...)
			break
		}
	}
	for _, phi := range b.Phis() {
		removePhiIncoming(phi, pred)
	}
}

// removePhiIncoming deletes the incoming value/predecessor pair for
// pred from phi, keeping Operands and PhiPreds parallel.
func removePhiIncoming(phi *Instruction, pred *BasicBlock) {
	for i, p := range phi.PhiPreds {
		if p == pred {
			u := phi.Operands[i]
			if u.Value != nil {
				u.Value.removeUse(u)
			}
			phi.PhiPreds = append(phi.PhiPreds[:i], phi.PhiPreds[i+1:]...)
			phi.Operands = append(phi.Operands[:i], phi.Operands[i+1:]...)
			for k := i; k < len(phi.Operands); k++ {
				phi.Operands[k].Slot = k
			}
			return
		}
	}
}

// AddPhiIncoming appends an (pred, value) incoming edge to phi.
func AddPhiIncoming(phi *Instruction, pred *BasicBlock, val *Value) {
	slot := len(phi.Operands)
	phi.PhiPreds = append(phi.PhiPreds, pred)
	phi.Operands = append(phi.Operands, newUse(phi, slot, val))
}

// connect records a CFG edge a -> b in both blocks' adjacency lists.
func connect(a, b *BasicBlock) {
	a.Successors = append(a.Successors, b)
	b.Predecessors = append(b.Predecessors, a)
}

// --- Opcode constructors -------------------------------------------------

// NewBinary creates and appends `result = op lhs, rhs` to b.
func NewBinary(f *Function, b *BasicBlock, op BinOp, lhs, rhs *Value, typ TypeID, name string) (*Instruction, error) {
	if err := checkNotDestroyed(lhs); err != nil {
		return nil, err
	}
	if err := checkNotDestroyed(rhs); err != nil {
		return nil, err
	}
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpBinary, BinOp: op}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: typ, Kind: ValInstruction, Def: inst}
	setOperands(inst, []*Value{lhs, rhs})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewCompare creates and appends `result = cmp pred lhs, rhs`.
func NewCompare(f *Function, b *BasicBlock, pred CmpPred, lhs, rhs *Value, boolType TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpCompare, Pred: pred}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: boolType, Kind: ValInstruction, Def: inst}
	setOperands(inst, []*Value{lhs, rhs})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewCast creates and appends a conversion instruction.
func NewCast(f *Function, b *BasicBlock, kind CastKind, src *Value, dstType TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpCast, Cast: kind}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: dstType, Kind: ValInstruction, Def: inst}
	setOperands(inst, []*Value{src})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewAlloca creates and appends a stack-slot allocation of elemType,
// yielding a pointer-to-elemType result.
func NewAlloca(f *Function, b *BasicBlock, elemType TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpAlloca, ElemType: elemType}
	ptrType := f.Module.Types.PointerType(elemType)
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: ptrType, Kind: ValInstruction, Def: inst}
	setOperands(inst, nil)
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewLoad creates and appends `result = load addr`.
func NewLoad(f *Function, b *BasicBlock, addr *Value, elemType TypeID, volatile bool, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpLoad, Volatile: volatile}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: elemType, Kind: ValInstruction, Def: inst}
	setOperands(inst, []*Value{addr})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewStore creates and appends `store val, addr`.
func NewStore(f *Function, b *BasicBlock, addr, val *Value, volatile bool) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpStore, Volatile: volatile}
	setOperands(inst, []*Value{addr, val})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewMalloc creates a heap allocation of elemType, optionally sized by
// a dynamic element count.
func NewMalloc(f *Function, b *BasicBlock, elemType TypeID, count *Value, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpMalloc, ElemType: elemType}
	ptrType := f.Module.Types.PointerType(elemType)
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: ptrType, Kind: ValInstruction, Def: inst}
	if count != nil {
		setOperands(inst, []*Value{count})
	} else {
		setOperands(inst, nil)
	}
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewFree creates and appends `free ptr`.
func NewFree(f *Function, b *BasicBlock, ptr *Value) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpFree}
	setOperands(inst, []*Value{ptr})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewGEP creates `result = getelementptr base, indices...`. A negative
// entry in staticIndices marks the corresponding index operand as
// dynamic (use the runtime value rather than a compile-time constant).
func NewGEP(f *Function, b *BasicBlock, base *Value, indexVals []*Value, staticIndices []int64, resultType TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpGetElementPtr, GEPIndices: staticIndices}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: resultType, Kind: ValInstruction, Def: inst}
	operands := append([]*Value{base}, indexVals...)
	setOperands(inst, operands)
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewCall creates `result = call callee(args...)`. resultType may be
// the void type for calls whose value is discarded.
func NewCall(f *Function, b *BasicBlock, callee string, args []*Value, resultType TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpCall, Callee: callee}
	if resultType != f.Module.Types.VoidType() {
		inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: resultType, Kind: ValInstruction, Def: inst}
	}
	setOperands(inst, args)
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewPhi creates an empty phi instruction (no incoming edges yet) and
// inserts it at the end of b's phi prefix.
func NewPhi(f *Function, b *BasicBlock, typ TypeID, name string) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpPhi}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: typ, Kind: ValInstruction, Def: inst}
	if err := InsertPhi(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// FinalizePhi validates that phi has exactly one incoming value per
// predecessor of its block, per §4.1's IRInvariant on phi arity.
func FinalizePhi(phi *Instruction) error {
	b := phi.Block
	if len(phi.PhiPreds) != len(b.Predecessors) {
		return errs.New(errs.IRInvariant, "phi in %s has %d incoming edges, block has %d predecessors",
			b.Label, len(phi.PhiPreds), len(b.Predecessors))
	}
	seen := make(map[*BasicBlock]bool, len(phi.PhiPreds))
	for _, p := range phi.PhiPreds {
		seen[p] = true
	}
	for _, p := range b.Predecessors {
		if !seen[p] {
			return errs.New(errs.IRInvariant, "phi in %s missing incoming edge from predecessor %s", b.Label, p.Label)
		}
	}
	return nil
}

// NewJump creates and appends an unconditional branch to target,
// connecting the CFG edge.
func NewJump(f *Function, b *BasicBlock, target *Value /* BlockRef */) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpJump, Target: target.BlockRef}
	setOperands(inst, []*Value{target})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	connect(b, target.BlockRef)
	return inst, nil
}

// NewCondBranch creates and appends a conditional branch, connecting
// both CFG edges.
func NewCondBranch(f *Function, b *BasicBlock, cond *Value, trueTarget, falseTarget *Value) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpCondBranch, TrueBlock: trueTarget.BlockRef, FalseBlock: falseTarget.BlockRef}
	setOperands(inst, []*Value{cond, trueTarget, falseTarget})
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	connect(b, trueTarget.BlockRef)
	connect(b, falseTarget.BlockRef)
	return inst, nil
}

// NewReturn creates and appends a return terminator. val may be nil
// for a void return.
func NewReturn(f *Function, b *BasicBlock, val *Value) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpReturn}
	if val != nil {
		setOperands(inst, []*Value{val})
	} else {
		setOperands(inst, nil)
	}
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewNegate creates `result = sub 0, x`, the canonical representation
// of unary negation used by the subtraction rewrite (§4.5.5), and
// inserts it immediately before mark rather than appending it — mark's
// block already has a terminator, so AppendInst would reject it.
func NewNegate(f *Function, mark *Instruction, x *Value, typ TypeID, name string) (*Instruction, error) {
	if err := checkNotDestroyed(x); err != nil {
		return nil, err
	}
	zero := f.Module.NewConstant(typ, int64(0))
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpBinary, BinOp: Sub}
	inst.Result = &Value{ID: f.Module.nextValue(), Name: name, Type: typ, Kind: ValInstruction, Def: inst}
	setOperands(inst, []*Value{zero, x})
	if err := InsertBefore(mark, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewUnreachable creates and appends an unreachable terminator.
func NewUnreachable(f *Function, b *BasicBlock) (*Instruction, error) {
	inst := &Instruction{ID: f.Module.nextInst(), Op: OpUnreachable}
	setOperands(inst, nil)
	if err := AppendInst(b, inst); err != nil {
		return nil, err
	}
	return inst, nil
}
