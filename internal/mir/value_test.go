package mir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueIDValidity(t *testing.T) {
	require.False(t, InvalidValueID.Valid())
	require.True(t, ValueID(0).Valid())
	require.Equal(t, "<invalid>", InvalidValueID.String())
	require.Equal(t, "v3", ValueID(3).String())
}

func TestLiteralConstructorsAndAccessors(t *testing.T) {
	i := IntLiteral(42)
	require.Equal(t, int64(42), i.AsInt())
	require.Equal(t, LiteralInt, i.Kind)
	require.False(t, i.IsZero())

	zero := IntLiteral(0)
	require.True(t, zero.IsZero())

	b := BoolLiteral(true)
	require.True(t, b.AsBool())
	require.Equal(t, LiteralBool, b.Kind)
	require.False(t, b.IsZero(), "a bool literal should never report IsZero")
}

func TestLiteralString(t *testing.T) {
	require.Equal(t, "7", IntLiteral(7).String())
	require.Equal(t, "false", BoolLiteral(false).String())
}

func TestValueOperandVsLiteral(t *testing.T) {
	op := Operand(5)
	require.False(t, op.IsLiteral())
	require.Equal(t, ValueID(5), op.ID())

	lit := Lit(IntLiteral(9))
	require.True(t, lit.IsLiteral())
	require.Equal(t, int64(9), lit.Literal().AsInt())
}

func TestValueIDPanicsOnLiteral(t *testing.T) {
	require.Panics(t, func() { Lit(IntLiteral(1)).ID() })
}

func TestValueLiteralPanicsOnOperand(t *testing.T) {
	require.Panics(t, func() { Operand(1).Literal() })
}

func TestValueString(t *testing.T) {
	require.Equal(t, "v2", Operand(2).String())
	require.Equal(t, "3", Lit(IntLiteral(3)).String())
}
