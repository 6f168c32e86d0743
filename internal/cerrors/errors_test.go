package cerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvalidMIRErrorMessage(t *testing.T) {
	err := &InvalidMIR{
		Location: Location{Function: "f", Block: "bb0", Index: 2},
		Reason:   "division by a literal residue of zero",
	}
	var target *InvalidMIR
	require.ErrorAs(t, err, &target)
	require.NotEmpty(t, target.Error())
}

func TestUnsupportedInstructionAs(t *testing.T) {
	var err error = &UnsupportedInstruction{
		Location: Location{Function: "f"},
		Reason:   "felt ordering has no total order",
	}
	var target *UnsupportedInstruction
	require.ErrorAs(t, err, &target)
}

func TestLayoutErrorAs(t *testing.T) {
	var err error = &LayoutError{Function: "f", Reason: "offset overflow"}
	var target *LayoutError
	require.ErrorAs(t, err, &target)
}

func TestLinkErrorMessageNamesSymbol(t *testing.T) {
	err := &LinkError{Symbol: "foo.bb3", Reason: "unresolved label"}
	require.Contains(t, err.Error(), "foo.bb3")
}

func TestSpanStringNoSpan(t *testing.T) {
	var s Span
	require.Equal(t, "<no span>", s.String())
}
