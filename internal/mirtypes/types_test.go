package mirtypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeOf(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		want int
	}{
		{"felt", NewFelt(), 1},
		{"bool", NewBool(), 1},
		{"u32", NewU32(), 2},
		{"pointer to u32 is one slot", NewPointer(NewU32()), 1},
		{"array of 3 felts", NewFixedArray(NewFelt(), 3), 3},
		{"array of 3 u32", NewFixedArray(NewU32(), 3), 6},
		{"tuple felt,u32,bool", NewTuple(NewFelt(), NewU32(), NewBool()), 4},
		{
			"struct point{x:felt,y:felt}",
			NewStruct("Point", StructField{"x", NewFelt()}, StructField{"y", NewFelt()}),
			2,
		},
		{
			"nested struct with u32 field",
			NewStruct("Pair", StructField{"a", NewU32()}, StructField{"b", NewFelt()}),
			3,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, SizeOf(c.typ))
		})
	}
}

func TestEqual(t *testing.T) {
	a := NewTuple(NewFelt(), NewU32())
	b := NewTuple(NewFelt(), NewU32())
	c := NewTuple(NewU32(), NewFelt())
	require.True(t, Equal(a, b), "expected equal tuples to compare equal")
	require.False(t, Equal(a, c), "expected differently-ordered tuples to compare unequal")

	s1 := NewStruct("P", StructField{"x", NewFelt()})
	s2 := NewStruct("P", StructField{"x", NewFelt()})
	s3 := NewStruct("Q", StructField{"x", NewFelt()})
	require.True(t, Equal(s1, s2), "expected structurally identical structs to compare equal")
	require.False(t, Equal(s1, s3), "expected differently-named structs to compare unequal")
}

func TestFieldOffset(t *testing.T) {
	st := NewStruct("S", StructField{"a", NewU32()}, StructField{"b", NewFelt()})
	off, ok := st.FieldOffset("b")
	require.True(t, ok)
	require.EqualValues(t, 2, off)

	_, ok = st.FieldOffset("missing")
	require.False(t, ok, "expected missing field to report ok=false")
}

func TestPointerAlwaysOneSlot(t *testing.T) {
	big := NewStruct("Big", StructField{"a", NewU32()}, StructField{"b", NewU32()}, StructField{"c", NewFelt()})
	ptr := NewPointer(big)
	require.Equal(t, 1, SizeOf(ptr), "pointer size must stay 1 regardless of pointee size %d", SizeOf(big))
}
