package ir

// Module owns a collection of Functions and global symbols (§3).
type Module struct {
	Name      string
	Types     *TypeInterner
	Functions []*Function
	Globals   []*Value
	Symbols   *SymbolTable

	nextValueID int
	nextInstID  int
	nextBlockID int
}

// NewModule creates an empty module with its own type interner and
// symbol table.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		Types:   NewTypeInterner(),
		Symbols: NewSymbolTable(),
	}
}

func (m *Module) nextValue() int {
	id := m.nextValueID
	m.nextValueID++
	return id
}

func (m *Module) nextInst() int {
	id := m.nextInstID
	m.nextInstID++
	return id
}

func (m *Module) nextBlock() int {
	id := m.nextBlockID
	m.nextBlockID++
	return id
}

// AddFunction appends fn to the module in source order and registers
// its name in the symbol table. A Function must be attached to a
// Module (via AddFunction) before any block, parameter, or value is
// created on it, since value/block IDs are minted from the module.
func (m *Module) AddFunction(fn *Function) {
	fn.Module = m
	m.Functions = append(m.Functions, fn)
	m.Symbols.BindFunction(fn.Name, fn)
}

// NewGlobal creates a module-owned global Value of the given type.
func (m *Module) NewGlobal(name string, typ TypeID) *Value {
	v := &Value{ID: m.nextValue(), Name: name, Type: typ, Kind: ValGlobal}
	m.Globals = append(m.Globals, v)
	m.Symbols.BindValue(name, v)
	return v
}

// NewConstant creates a constant Value carrying data. Constants have
// rank 0 for reassociation (§4.5.5) and are never owned/destroyed by
// a block.
func (m *Module) NewConstant(typ TypeID, data interface{}) *Value {
	return &Value{ID: m.nextValue(), Type: typ, Kind: ValConstant, ConstVal: data}
}

// SymbolTable maps names to values and to functions within a Module or
// Function scope (§3).
type SymbolTable struct {
	functions map[string]*Function
	values    map[string]*Value
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{functions: make(map[string]*Function), values: make(map[string]*Value)}
}

func (s *SymbolTable) BindFunction(name string, fn *Function) { s.functions[name] = fn }
func (s *SymbolTable) BindValue(name string, v *Value)        { s.values[name] = v }
func (s *SymbolTable) LookupFunction(name string) *Function   { return s.functions[name] }
func (s *SymbolTable) LookupValue(name string) *Value         { return s.values[name] }

// Clear empties the table in place. Used by Strip (§4.5.9).
func (s *SymbolTable) Clear() {
	s.functions = make(map[string]*Function)
	s.values = make(map[string]*Value)
}

// Linkage distinguishes externally-visible symbols from ones
// Internalize (§4.5.9) has folded down to module-private.
type Linkage int

const (
	External Linkage = iota
	Internal
)

// Parameter is a formal argument of a Function.
type Parameter struct {
	Name  string
	Type  TypeID
	Value *Value // Kind == ValArgument
}

// Function owns an ordered sequence of BasicBlocks (the first is the
// entry) and an ordered list of formal Arguments (§3). A Function with
// an empty Blocks list is an external declaration.
type Function struct {
	Module     *Module
	Name       string
	Linkage    Linkage
	ParamTypes []TypeID
	RetType    TypeID
	Params     []*Parameter
	Blocks     []*BasicBlock
	Locals     *SymbolTable
}

// NewFunction creates a function with the given signature and no
// blocks (an external declaration until blocks are appended).
func NewFunction(name string, paramTypes []TypeID, retType TypeID) *Function {
	return &Function{
		Name:       name,
		ParamTypes: paramTypes,
		RetType:    retType,
		Locals:     NewSymbolTable(),
	}
}

// AddParam appends a named, typed formal argument and returns its
// Value (rank 1 for reassociation, §4.5.5).
func (f *Function) AddParam(name string, typ TypeID) *Value {
	v := &Value{ID: f.Module.nextValue(), Name: name, Type: typ, Kind: ValArgument}
	f.Params = append(f.Params, &Parameter{Name: name, Type: typ, Value: v})
	f.Locals.BindValue(name, v)
	return v
}

// Entry returns the function's entry block, or nil for a declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// NewBlock creates a new, detached basic block and appends it to the
// function (§4.2 step 4 explicitly permits blocks created mid-pass).
func (f *Function) NewBlock(label string) *BasicBlock {
	b := &BasicBlock{ID: f.Module.nextBlock(), Label: label, Func: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// BasicBlock owns an ordered sequence of Instructions whose last
// element is a Terminator (§3).
type BasicBlock struct {
	ID           int
	Label        string
	Func         *Function
	Instructions []*Instruction
	Predecessors []*BasicBlock
	Successors   []*BasicBlock

	blockValue *Value // lazily created; see AsValue
}

// AsValue returns the Value used to reference this block as a branch
// target, creating it on first use. This is what makes "BasicBlocks
// when used as branch targets" (§3) participate in the ordinary
// use-list machinery like any other Value.
func (b *BasicBlock) AsValue() *Value {
	if b.blockValue == nil {
		b.blockValue = &Value{ID: b.Func.Module.nextValue(), Name: b.Label, Kind: ValBlockRef, BlockRef: b}
	}
	return b.blockValue
}

// Terminator returns the block's terminating instruction, or nil if
// the block is malformed (empty, or last instruction isn't a
// terminator — both are IRInvariant violations the builder prevents).
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Phis returns the contiguous prefix of phi instructions at the top of
// the block (§3 invariant).
func (b *BasicBlock) Phis() []*Instruction {
	var phis []*Instruction
	for _, inst := range b.Instructions {
		if inst.Op != OpPhi {
			break
		}
		phis = append(phis, inst)
	}
	return phis
}

// IndexOf returns the position of inst within the block's instruction
// list, or -1 if absent. Used to resolve same-block ordering queries
// (§4.3 "for two instructions in the same block, linear scan within
// that block resolves ordering").
func (b *BasicBlock) IndexOf(inst *Instruction) int {
	for i, e := range b.Instructions {
		if e == inst {
			return i
		}
	}
	return -1
}
