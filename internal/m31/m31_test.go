package m31

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSubRoundTrip(t *testing.T) {
	a, b := FromInt64(100), FromInt64(5000000000)
	sum := Add(a, b)
	require.Equal(t, a, Sub(sum, b))
}

func TestFromInt64Negative(t *testing.T) {
	require.Equal(t, Elem(P-1), FromInt64(-1))
}

func TestFromInt64Wraps(t *testing.T) {
	require.Equal(t, Elem(7), FromInt64(int64(P)+7))
}

func TestMulReduce(t *testing.T) {
	a := Elem(P - 1)
	b := Elem(P - 1)
	want := FromUint64(uint64(a) * uint64(b) % P)
	require.Equal(t, want, Mul(a, b))
}

func TestNegZero(t *testing.T) {
	require.EqualValues(t, 0, Neg(0))
}

func TestInversePanicsOnZero(t *testing.T) {
	require.Panics(t, func() { Inverse(0) })
}

func TestDivInverseRoundTrip(t *testing.T) {
	a := FromInt64(12345)
	b := FromInt64(6789)
	q := Div(a, b)
	require.Equal(t, a, Mul(q, b))
}

func TestIsZero(t *testing.T) {
	require.True(t, IsZero(FromInt64(int64(P))))
	require.False(t, IsZero(FromInt64(1)))
}
