package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternCanonicalizesStructurallyEqualTypes(t *testing.T) {
	ti := NewTypeInterner()
	a := ti.IntType(32, true)
	b := ti.IntType(32, true)
	assert.Equal(t, a, b)
}

func TestInternDistinguishesSignedness(t *testing.T) {
	ti := NewTypeInterner()
	signed := ti.IntType(32, true)
	unsigned := ti.IntType(32, false)
	assert.NotEqual(t, signed, unsigned)
}

func TestInternDistinguishesStructuralNesting(t *testing.T) {
	ti := NewTypeInterner()
	i32 := ti.IntType(32, true)
	i64 := ti.IntType(64, true)
	p1 := ti.PointerType(i32)
	p2 := ti.PointerType(i64)
	p3 := ti.PointerType(i32)
	assert.NotEqual(t, p1, p2)
	assert.Equal(t, p1, p3)
}

func TestStructTypeInternsByFieldSequence(t *testing.T) {
	ti := NewTypeInterner()
	i32 := ti.IntType(32, true)
	boolT := ti.BoolType()
	s1 := ti.StructType([]TypeID{i32, boolT})
	s2 := ti.StructType([]TypeID{i32, boolT})
	s3 := ti.StructType([]TypeID{boolT, i32})
	assert.Equal(t, s1, s2)
	assert.NotEqual(t, s1, s3)
}

func TestStringRendersReadableNames(t *testing.T) {
	ti := NewTypeInterner()
	i32 := ti.IntType(32, true)
	arr := ti.ArrayType(i32, 4)
	ptr := ti.PointerType(i32)

	assert.Equal(t, "i32", ti.String(i32))
	assert.Equal(t, "[4 x i32]", ti.String(arr))
	assert.Equal(t, "i32*", ti.String(ptr))
	assert.Equal(t, "void", ti.String(ti.VoidType()))
	assert.Equal(t, "bool", ti.String(ti.BoolType()))
}

func TestFuncTypeInterning(t *testing.T) {
	ti := NewTypeInterner()
	i32 := ti.IntType(32, true)
	voidT := ti.VoidType()
	f1 := ti.FuncType([]TypeID{i32, i32}, voidT)
	f2 := ti.FuncType([]TypeID{i32, i32}, voidT)
	f3 := ti.FuncType([]TypeID{i32}, voidT)
	assert.Equal(t, f1, f2)
	assert.NotEqual(t, f1, f3)
}
