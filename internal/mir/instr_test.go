package mir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zkcasm/internal/mirtypes"
)

func TestBinOpIsU32(t *testing.T) {
	for _, op := range []BinOp{Add, Sub, Mul, Div, Eq, And, Or} {
		require.False(t, op.IsU32(), "%s.IsU32()", op)
	}
	for _, op := range []BinOp{U32Add, U32Sub, U32Mul, U32Div, U32Rem, U32BitwiseXor} {
		require.True(t, op.IsU32(), "%s.IsU32()", op)
	}
}

func TestBinOpIsComparison(t *testing.T) {
	for _, op := range []BinOp{Eq, Neq, Less, Greater, LessEqual, GreaterEqual, U32Eq, U32Less} {
		require.True(t, op.IsComparison(), "%s.IsComparison()", op)
	}
	for _, op := range []BinOp{Add, Sub, Mul, And, U32Add, U32BitwiseAnd} {
		require.False(t, op.IsComparison(), "%s.IsComparison()", op)
	}
}

func TestUnOpString(t *testing.T) {
	require.Equal(t, "neg", Neg.String())
	require.Equal(t, "not", Not.String())
}

func TestBaseComment(t *testing.T) {
	a := &Assign{Dest: 0, Source: Lit(IntLiteral(1))}
	require.Empty(t, a.Comment(), "fresh instruction should have no comment")
	a.SetComment("hoisted")
	require.Equal(t, "hoisted", a.Comment())
}

// instrCase exercises an Instruction's Destination/UsedValues/ReplaceUses
// trio generically, since every variant follows the same "operand or
// literal, never both" contract.
type instrCase struct {
	name       string
	instr      Instruction
	wantDest   ValueID
	hasDest    bool
	wantUsed   []ValueID
	replaceOld ValueID
	replaceNew ValueID
	wantAfter  []ValueID
}

func TestInstructionDestinationAndOperands(t *testing.T) {
	cases := []instrCase{
		{
			name:       "Assign operand",
			instr:      &Assign{Dest: 0, Source: Operand(5)},
			wantDest:   0, hasDest: true,
			wantUsed:   []ValueID{5},
			replaceOld: 5, replaceNew: 9, wantAfter: []ValueID{9},
		},
		{
			name:     "Assign literal",
			instr:    &Assign{Dest: 0, Source: Lit(IntLiteral(1))},
			wantDest: 0, hasDest: true,
			wantUsed: nil,
		},
		{
			name:       "BinaryOp both operands",
			instr:      &BinaryOp{Op: Add, Dest: 2, Left: Operand(0), Right: Operand(1)},
			wantDest:   2, hasDest: true,
			wantUsed:   []ValueID{0, 1},
			replaceOld: 1, replaceNew: 7, wantAfter: []ValueID{0, 7},
		},
		{
			name:     "UnaryOp",
			instr:    &UnaryOp{Op: Neg, Dest: 1, Source: Operand(0)},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:    "FrameAlloc has no operands",
			instr:   &FrameAlloc{Dest: 0, Type: mirtypes.NewFelt()},
			wantDest: 0, hasDest: true,
			wantUsed: nil,
		},
		{
			name:     "Load",
			instr:    &Load{Dest: 1, Address: Operand(0), Type: mirtypes.NewFelt()},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:    "Store has no destination",
			instr:   &Store{Address: Operand(0), Value: Operand(1), Type: mirtypes.NewFelt()},
			hasDest: false,
			wantUsed: []ValueID{0, 1},
		},
		{
			name:       "GetElementPtr",
			instr:      &GetElementPtr{Dest: 2, Base: Operand(0), Index: Operand(1)},
			wantDest:   2, hasDest: true,
			wantUsed:   []ValueID{0, 1},
			replaceOld: 0, replaceNew: 9, wantAfter: []ValueID{9, 1},
		},
		{
			name:     "MakeTuple",
			instr:    &MakeTuple{Dest: 3, Elements: []Value{Operand(0), Lit(IntLiteral(1)), Operand(2)}},
			wantDest: 3, hasDest: true,
			wantUsed: []ValueID{0, 2},
		},
		{
			name:     "ExtractTupleElement",
			instr:    &ExtractTupleElement{Dest: 1, Tuple: Operand(0), Index: 1},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:     "InsertTuple",
			instr:    &InsertTuple{Dest: 2, Base: Operand(0), Index: 0, Value: Operand(1)},
			wantDest: 2, hasDest: true,
			wantUsed: []ValueID{0, 1},
		},
		{
			name: "MakeStruct",
			instr: &MakeStruct{Dest: 2, Fields: []FieldValue{
				{Name: "a", Value: Operand(0)},
				{Name: "b", Value: Lit(IntLiteral(1))},
			}},
			wantDest: 2, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:     "ExtractStructField",
			instr:    &ExtractStructField{Dest: 1, Base: Operand(0), FieldName: "a"},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:     "InsertField",
			instr:    &InsertField{Dest: 2, Base: Operand(0), FieldName: "a", Value: Operand(1)},
			wantDest: 2, hasDest: true,
			wantUsed: []ValueID{0, 1},
		},
		{
			name:     "MakeFixedArray",
			instr:    &MakeFixedArray{Dest: 1, Elements: []Value{Operand(0), Operand(2)}},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0, 2},
		},
		{
			name:     "ArrayIndex",
			instr:    &ArrayIndex{Dest: 2, Array: Operand(0), Index: Operand(1)},
			wantDest: 2, hasDest: true,
			wantUsed: []ValueID{0, 1},
		},
		{
			name:     "ArrayInsert",
			instr:    &ArrayInsert{Dest: 3, Base: Operand(0), Index: Operand(1), Value: Operand(2)},
			wantDest: 3, hasDest: true,
			wantUsed: []ValueID{0, 1, 2},
		},
		{
			name:     "Cast",
			instr:    &Cast{Dest: 1, Source: Operand(0), SourceTyp: mirtypes.NewU32(), TargetTyp: mirtypes.NewFelt()},
			wantDest: 1, hasDest: true,
			wantUsed: []ValueID{0},
		},
		{
			name:     "Call single result",
			instr:    &Call{Dests: []ValueID{2}, Callee: "f", Args: []Value{Operand(0), Operand(1)}},
			wantDest: 2, hasDest: true,
			wantUsed: []ValueID{0, 1},
		},
		{
			name:    "Call no results",
			instr:   &Call{Dests: nil, Callee: "f"},
			hasDest: false,
		},
		{
			name: "Phi",
			instr: &Phi{Dest: 3, Sources: []PhiSource{
				{Pred: 0, Value: Operand(1)},
				{Pred: 1, Value: Operand(2)},
			}},
			wantDest: 3, hasDest: true,
			wantUsed: []ValueID{1, 2},
		},
		{
			name:    "Debug has no destination or operands",
			instr:   &Debug{Text: "x"},
			hasDest: false,
		},
		{
			name:    "Nop has no destination or operands",
			instr:   &Nop{},
			hasDest: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dest, ok := c.instr.Destination()
			require.Equal(t, c.hasDest, ok)
			if ok {
				require.Equal(t, c.wantDest, dest)
			}
			require.Equal(t, c.wantUsed, c.instr.UsedValues())
			if c.wantAfter != nil {
				c.instr.ReplaceUses(c.replaceOld, c.replaceNew)
				require.Equal(t, c.wantAfter, c.instr.UsedValues())
			}
			// Every instruction must be safely Stringable, even mid-construction.
			require.NotEmpty(t, c.instr.String())
		})
	}
}

func TestPhiSourceFor(t *testing.T) {
	p := &Phi{Dest: 2, Sources: []PhiSource{
		{Pred: 0, Value: Operand(1)},
		{Pred: 1, Value: Lit(IntLiteral(5))},
	}}
	v, ok := p.SourceFor(0)
	require.True(t, ok)
	require.Equal(t, ValueID(1), v.ID())

	v, ok = p.SourceFor(1)
	require.True(t, ok)
	require.Equal(t, int64(5), v.Literal().AsInt())

	_, ok = p.SourceFor(99)
	require.False(t, ok, "SourceFor(99) should report not found")
}

func TestCallAllDestinations(t *testing.T) {
	c := &Call{Dests: []ValueID{1, 2, 3}, Callee: "f"}
	require.Equal(t, []ValueID{1, 2, 3}, c.AllDestinations())
	dest, ok := c.Destination()
	require.True(t, ok)
	require.Equal(t, ValueID(1), dest, "Destination() should return the first result")
}

func TestInstructionPurity(t *testing.T) {
	pure := []Instruction{
		&Assign{Dest: 0, Source: Lit(IntLiteral(1))},
		&BinaryOp{Op: Add, Dest: 0},
		&FrameAlloc{Dest: 0},
		&GetElementPtr{Dest: 0},
		&Phi{Dest: 0},
		&Debug{},
		&Nop{},
	}
	for _, in := range pure {
		require.True(t, in.IsPure(), "%T.IsPure()", in)
	}
	impure := []Instruction{
		&Load{Dest: 0},
		&Store{},
		&Call{},
	}
	for _, in := range impure {
		require.False(t, in.IsPure(), "%T.IsPure()", in)
	}
}
