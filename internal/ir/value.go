package ir

// ValueKind discriminates the things that can be used as an operand:
// instruction results, function arguments, constants, globals, and
// basic blocks referenced as branch targets (§3: "Value: anything that
// can be used").
type ValueKind int

const (
	ValInstruction ValueKind = iota
	ValArgument
	ValConstant
	ValGlobal
	ValBlockRef
)

// Value is anything that can be the operand of an instruction. Every
// Value owns a use-list of every Use that references it; the two are
// kept reciprocally consistent by the mutation primitives in
// builder.go (§3 invariant).
type Value struct {
	ID   int
	Name string
	Type TypeID
	Kind ValueKind

	Def      *Instruction // set iff Kind == ValInstruction
	ConstVal interface{}  // set iff Kind == ValConstant
	BlockRef *BasicBlock  // set iff Kind == ValBlockRef

	Uses      []*Use
	destroyed bool
}

// Use is one reference of a Value by an instruction operand, indexed
// both by user (the Operands slice, ordered) and by value (this
// Value's Uses slice, unordered) per §9's "Use–def graph cycles" design
// note.
type Use struct {
	Value *Value
	User  *Instruction
	Slot  int
}

// IsDestroyed reports whether this value's defining instruction has
// already been removed by Erase.
func (v *Value) IsDestroyed() bool { return v.destroyed }

// addUse appends u to v's use-list. Internal: callers go through
// newUse (builder.go) so the reciprocal Operands entry is always
// created alongside.
func (v *Value) addUse(u *Use) {
	v.Uses = append(v.Uses, u)
}

// removeUse deletes the first Use in v's use-list matching u by
// identity. Internal: called when an operand slot is rewritten or torn
// down.
func (v *Value) removeUse(u *Use) {
	for i, existing := range v.Uses {
		if existing == u {
			v.Uses = append(v.Uses[:i], v.Uses[i+1:]...)
			return
		}
	}
}
