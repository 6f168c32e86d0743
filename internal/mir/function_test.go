package mir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zkcasm/internal/mirtypes"
)

func TestReversePostorderSkipsUnreachableBlocks(t *testing.T) {
	fn := NewFunction("f", nil, nil)
	entry := fn.Entry
	live := fn.NewBlock("live")
	dead := fn.NewBlock("dead")
	_ = dead

	fn.Block(entry).Terminator = &Jump{Target: live}
	fn.AddEdge(entry, live)
	fn.Block(live).Terminator = &Return{}

	order := fn.ReversePostorder()
	require.Equal(t, []BasicBlockID{entry, live}, order)
}

func TestReversePostorderOrdersBranchBeforeJoin(t *testing.T) {
	fn := NewFunction("f", nil, nil)
	entry := fn.Entry
	thenBlk := fn.NewBlock("then")
	elseBlk := fn.NewBlock("else")
	join := fn.NewBlock("join")

	fn.Block(entry).Terminator = &If{Cond: Lit(BoolLiteral(true)), Then: thenBlk, Else: elseBlk}
	fn.AddEdge(entry, thenBlk)
	fn.AddEdge(entry, elseBlk)
	fn.Block(thenBlk).Terminator = &Jump{Target: join}
	fn.AddEdge(thenBlk, join)
	fn.Block(elseBlk).Terminator = &Jump{Target: join}
	fn.AddEdge(elseBlk, join)
	fn.Block(join).Terminator = &Return{}

	order := fn.ReversePostorder()
	require.Len(t, order, 4, "want all 4 blocks")
	require.Equal(t, entry, order[0], "entry should be first")
	require.Equal(t, join, order[len(order)-1], "join should be last (it postdominates both branches)")
}

func TestNewValueAllocatesDistinctIDsAndRecordsType(t *testing.T) {
	fn := NewFunction("f", nil, nil)
	a := fn.NewValue(mirtypes.NewFelt())
	b := fn.NewValue(mirtypes.NewU32())
	require.NotEqual(t, a, b, "NewValue should allocate distinct IDs")

	ty, ok := fn.TypeOf(a)
	require.True(t, ok)
	require.Equal(t, mirtypes.Felt, ty.Kind())

	ty, ok = fn.TypeOf(b)
	require.True(t, ok)
	require.Equal(t, mirtypes.U32, ty.Kind())
}

func TestParamsAreRegisteredAsDefinedValues(t *testing.T) {
	params := []Param{{ID: 0, Name: "x", Type: mirtypes.NewBool()}}
	fn := NewFunction("f", params, nil)
	ty, ok := fn.TypeOf(0)
	require.True(t, ok)
	require.Equal(t, mirtypes.Bool, ty.Kind())

	// NewValue must not reuse a param's ID.
	next := fn.NewValue(mirtypes.NewFelt())
	require.NotEqual(t, ValueID(0), next, "NewValue should not collide with an existing param ID")
}

func TestProgramAddFunctionPreservesOrder(t *testing.T) {
	prog := NewProgram()
	prog.AddFunction(NewFunction("a", nil, nil))
	prog.AddFunction(NewFunction("b", nil, nil))
	prog.AddFunction(NewFunction("a", nil, nil)) // re-adding should not duplicate Order

	require.Equal(t, []string{"a", "b"}, prog.Order)
}
