package ir

// newTestFunc builds a detached single-block function `i32 @f() -> i32`
// for unit tests across the ir package; callers append instructions to
// the returned block and must themselves terminate it.
func newTestFunc(name string) (*Module, *Function, *BasicBlock) {
	m := NewModule("test")
	i32 := m.Types.IntType(32, true)
	fn := NewFunction(name, nil, i32)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")
	return m, fn, b
}
