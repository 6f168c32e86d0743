package mir

import (
	"fmt"
	"strings"

	"zkcasm/internal/mirtypes"
)

// BinOp enumerates the binary operators a BinaryOp instruction can carry.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Eq
	Neq
	Less
	Greater
	LessEqual
	GreaterEqual
	And
	Or
	U32Add
	U32Sub
	U32Mul
	U32Div
	U32Rem
	U32Eq
	U32Neq
	U32Less
	U32Greater
	U32LessEqual
	U32GreaterEqual
	U32BitwiseAnd
	U32BitwiseOr
	U32BitwiseXor
)

var binOpNames = map[BinOp]string{
	Add: "add", Sub: "sub", Mul: "mul", Div: "div",
	Eq: "eq", Neq: "neq", Less: "lt", Greater: "gt", LessEqual: "le", GreaterEqual: "ge",
	And: "and", Or: "or",
	U32Add: "u32add", U32Sub: "u32sub", U32Mul: "u32mul", U32Div: "u32div", U32Rem: "u32rem",
	U32Eq: "u32eq", U32Neq: "u32neq", U32Less: "u32lt", U32Greater: "u32gt",
	U32LessEqual: "u32le", U32GreaterEqual: "u32ge",
	U32BitwiseAnd: "u32and", U32BitwiseOr: "u32or", U32BitwiseXor: "u32xor",
}

func (op BinOp) String() string { return binOpNames[op] }

// IsU32 reports whether op operates on U32 operands.
func (op BinOp) IsU32() bool { return op >= U32Add }

// IsComparison reports whether op produces a Bool result from two
// operands of the same scalar type.
func (op BinOp) IsComparison() bool {
	switch op {
	case Eq, Neq, Less, Greater, LessEqual, GreaterEqual,
		U32Eq, U32Neq, U32Less, U32Greater, U32LessEqual, U32GreaterEqual:
		return true
	default:
		return false
	}
}

// UnOp enumerates the unary operators a UnaryOp instruction can carry.
type UnOp int

const (
	Neg UnOp = iota
	Not
)

func (op UnOp) String() string {
	if op == Neg {
		return "neg"
	}
	return "not"
}

// Instruction is the tagged-variant interface every MIR instruction
// implements. Dispatch is a wide switch on concrete type at every use
// site: no inheritance, each case explicit.
type Instruction interface {
	// Destination returns the defined ValueID and true for instructions
	// with a result; (InvalidValueID, false) otherwise.
	Destination() (ValueID, bool)
	// UsedValues returns the operand ValueIDs read by this instruction
	// (literals are not included).
	UsedValues() []ValueID
	// ReplaceUses rewrites any operand equal to old to new in-place.
	ReplaceUses(old, new ValueID)
	// IsPure reports whether the instruction has no observable side
	// effect (used by LVN and DCE).
	IsPure() bool
	// Comment returns the human-readable annotation attached at
	// construction time, or "" if none.
	Comment() string
	SetComment(string)
	String() string
}

// base carries the optional comment shared by every instruction,
// mirroring the reference compiler's InstructionBuilder::with_comment.
type base struct {
	comment string
}

func (b *base) Comment() string     { return b.comment }
func (b *base) SetComment(s string) { b.comment = s }

// Assign copies a Value (literal or operand) into dest.
type Assign struct {
	base
	Dest   ValueID
	Source Value
	Type   mirtypes.Type
}

func (i *Assign) Destination() (ValueID, bool) { return i.Dest, true }
func (i *Assign) UsedValues() []ValueID {
	if i.Source.IsLiteral() {
		return nil
	}
	return []ValueID{i.Source.ID()}
}
func (i *Assign) ReplaceUses(old, new ValueID) {
	if !i.Source.IsLiteral() && i.Source.ID() == old {
		i.Source = Operand(new)
	}
}
func (i *Assign) IsPure() bool { return true }
func (i *Assign) String() string {
	return fmt.Sprintf("%s = assign %s : %s", i.Dest, i.Source, i.Type)
}

// BinaryOp computes Op(Left, Right) into Dest.
type BinaryOp struct {
	base
	Op          BinOp
	Dest        ValueID
	Left, Right Value
}

func (i *BinaryOp) Destination() (ValueID, bool) { return i.Dest, true }
func (i *BinaryOp) UsedValues() []ValueID {
	var out []ValueID
	if !i.Left.IsLiteral() {
		out = append(out, i.Left.ID())
	}
	if !i.Right.IsLiteral() {
		out = append(out, i.Right.ID())
	}
	return out
}
func (i *BinaryOp) ReplaceUses(old, new ValueID) {
	if !i.Left.IsLiteral() && i.Left.ID() == old {
		i.Left = Operand(new)
	}
	if !i.Right.IsLiteral() && i.Right.ID() == old {
		i.Right = Operand(new)
	}
}
func (i *BinaryOp) IsPure() bool { return true }
func (i *BinaryOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dest, i.Op, i.Left, i.Right)
}

// UnaryOp computes Op(Source) into Dest.
type UnaryOp struct {
	base
	Op     UnOp
	Dest   ValueID
	Source Value
}

func (i *UnaryOp) Destination() (ValueID, bool) { return i.Dest, true }
func (i *UnaryOp) UsedValues() []ValueID {
	if i.Source.IsLiteral() {
		return nil
	}
	return []ValueID{i.Source.ID()}
}
func (i *UnaryOp) ReplaceUses(old, new ValueID) {
	if !i.Source.IsLiteral() && i.Source.ID() == old {
		i.Source = Operand(new)
	}
}
func (i *UnaryOp) IsPure() bool { return true }
func (i *UnaryOp) String() string {
	return fmt.Sprintf("%s = %s %s", i.Dest, i.Op, i.Source)
}

// FrameAlloc reserves a fresh stack slot of size SizeOf(Type) and binds
// Dest to a Pointer to it.
type FrameAlloc struct {
	base
	Dest ValueID
	Type mirtypes.Type
}

func (i *FrameAlloc) Destination() (ValueID, bool) { return i.Dest, true }
func (i *FrameAlloc) UsedValues() []ValueID         { return nil }
func (i *FrameAlloc) ReplaceUses(ValueID, ValueID)  {}
func (i *FrameAlloc) IsPure() bool                  { return true }
func (i *FrameAlloc) String() string {
	return fmt.Sprintf("%s = framealloc %s", i.Dest, i.Type)
}

// Load reads SizeOf(Type) slots from *Address into Dest.
type Load struct {
	base
	Dest    ValueID
	Type    mirtypes.Type
	Address Value
}

func (i *Load) Destination() (ValueID, bool) { return i.Dest, true }
func (i *Load) UsedValues() []ValueID {
	if i.Address.IsLiteral() {
		return nil
	}
	return []ValueID{i.Address.ID()}
}
func (i *Load) ReplaceUses(old, new ValueID) {
	if !i.Address.IsLiteral() && i.Address.ID() == old {
		i.Address = Operand(new)
	}
}

// IsPure returns false: a Load observes memory state written by a prior
// Store and so is not safely reorderable/eliminable by value-numbering
// alone (mem2reg promotes the loads it can prove safe).
func (i *Load) IsPure() bool { return false }
func (i *Load) String() string {
	return fmt.Sprintf("%s = load %s, [%s]", i.Dest, i.Type, i.Address)
}

// Store writes SizeOf(Type) slots of Value into *Address.
type Store struct {
	base
	Address Value
	Value   Value
	Type    mirtypes.Type
}

func (i *Store) Destination() (ValueID, bool) { return InvalidValueID, false }
func (i *Store) UsedValues() []ValueID {
	var out []ValueID
	if !i.Address.IsLiteral() {
		out = append(out, i.Address.ID())
	}
	if !i.Value.IsLiteral() {
		out = append(out, i.Value.ID())
	}
	return out
}
func (i *Store) ReplaceUses(old, new ValueID) {
	if !i.Address.IsLiteral() && i.Address.ID() == old {
		i.Address = Operand(new)
	}
	if !i.Value.IsLiteral() && i.Value.ID() == old {
		i.Value = Operand(new)
	}
}
func (i *Store) IsPure() bool { return false }
func (i *Store) String() string {
	return fmt.Sprintf("store [%s], %s : %s", i.Address, i.Value, i.Type)
}

// GetElementPtr computes Base + Index (in slot units) into Dest.
type GetElementPtr struct {
	base
	Dest  ValueID
	Base  Value
	Index Value
}

func (i *GetElementPtr) Destination() (ValueID, bool) { return i.Dest, true }
func (i *GetElementPtr) UsedValues() []ValueID {
	var out []ValueID
	if !i.Base.IsLiteral() {
		out = append(out, i.Base.ID())
	}
	if !i.Index.IsLiteral() {
		out = append(out, i.Index.ID())
	}
	return out
}
func (i *GetElementPtr) ReplaceUses(old, new ValueID) {
	if !i.Base.IsLiteral() && i.Base.ID() == old {
		i.Base = Operand(new)
	}
	if !i.Index.IsLiteral() && i.Index.ID() == old {
		i.Index = Operand(new)
	}
}
func (i *GetElementPtr) IsPure() bool { return true }
func (i *GetElementPtr) String() string {
	return fmt.Sprintf("%s = getelementptr %s, %s", i.Dest, i.Base, i.Index)
}

// MakeTuple materializes a Tuple value at a fresh address from Elements.
type MakeTuple struct {
	base
	Dest     ValueID
	Elements []Value
	Type     mirtypes.Type
}

func (i *MakeTuple) Destination() (ValueID, bool) { return i.Dest, true }
func (i *MakeTuple) UsedValues() []ValueID         { return operandsOf(i.Elements) }
func (i *MakeTuple) ReplaceUses(old, new ValueID)  { replaceIn(i.Elements, old, new) }
func (i *MakeTuple) IsPure() bool                  { return true }
func (i *MakeTuple) String() string {
	return fmt.Sprintf("%s = maketuple %s", i.Dest, joinValues(i.Elements))
}

// ExtractTupleElement reads element Index of Tuple into Dest.
type ExtractTupleElement struct {
	base
	Dest       ValueID
	Tuple      Value
	Index      int
	ElementTyp mirtypes.Type
}

func (i *ExtractTupleElement) Destination() (ValueID, bool) { return i.Dest, true }
func (i *ExtractTupleElement) UsedValues() []ValueID {
	if i.Tuple.IsLiteral() {
		return nil
	}
	return []ValueID{i.Tuple.ID()}
}
func (i *ExtractTupleElement) ReplaceUses(old, new ValueID) {
	if !i.Tuple.IsLiteral() && i.Tuple.ID() == old {
		i.Tuple = Operand(new)
	}
}
func (i *ExtractTupleElement) IsPure() bool { return true }
func (i *ExtractTupleElement) String() string {
	return fmt.Sprintf("%s = extracttuple %s[%d]", i.Dest, i.Tuple, i.Index)
}

// InsertTuple returns a new tuple equal to Base with element Index
// replaced by Value.
type InsertTuple struct {
	base
	Dest      ValueID
	Base      Value
	Index     int
	Value     Value
	TupleType mirtypes.Type
}

func (i *InsertTuple) Destination() (ValueID, bool) { return i.Dest, true }
func (i *InsertTuple) UsedValues() []ValueID {
	var out []ValueID
	if !i.Base.IsLiteral() {
		out = append(out, i.Base.ID())
	}
	if !i.Value.IsLiteral() {
		out = append(out, i.Value.ID())
	}
	return out
}
func (i *InsertTuple) ReplaceUses(old, new ValueID) {
	if !i.Base.IsLiteral() && i.Base.ID() == old {
		i.Base = Operand(new)
	}
	if !i.Value.IsLiteral() && i.Value.ID() == old {
		i.Value = Operand(new)
	}
}
func (i *InsertTuple) IsPure() bool { return true }
func (i *InsertTuple) String() string {
	return fmt.Sprintf("%s = inserttuple %s[%d] = %s", i.Dest, i.Base, i.Index, i.Value)
}

// FieldValue pairs a struct field name with its value, used by MakeStruct.
type FieldValue struct {
	Name  string
	Value Value
}

// MakeStruct materializes a Struct value at a fresh address from Fields.
type MakeStruct struct {
	base
	Dest   ValueID
	Fields []FieldValue
	Type   mirtypes.Type
}

func (i *MakeStruct) Destination() (ValueID, bool) { return i.Dest, true }
func (i *MakeStruct) UsedValues() []ValueID {
	vs := make([]Value, len(i.Fields))
	for idx, f := range i.Fields {
		vs[idx] = f.Value
	}
	return operandsOf(vs)
}
func (i *MakeStruct) ReplaceUses(old, new ValueID) {
	for idx := range i.Fields {
		v := i.Fields[idx].Value
		if !v.IsLiteral() && v.ID() == old {
			i.Fields[idx].Value = Operand(new)
		}
	}
}
func (i *MakeStruct) IsPure() bool { return true }
func (i *MakeStruct) String() string {
	parts := make([]string, len(i.Fields))
	for idx, f := range i.Fields {
		parts[idx] = fmt.Sprintf("%s: %s", f.Name, f.Value)
	}
	return fmt.Sprintf("%s = makestruct %s{%s}", i.Dest, i.Type, strings.Join(parts, ", "))
}

// ExtractStructField reads FieldName of Base into Dest.
type ExtractStructField struct {
	base
	Dest      ValueID
	Base      Value
	FieldName string
	FieldTyp  mirtypes.Type
}

func (i *ExtractStructField) Destination() (ValueID, bool) { return i.Dest, true }
func (i *ExtractStructField) UsedValues() []ValueID {
	if i.Base.IsLiteral() {
		return nil
	}
	return []ValueID{i.Base.ID()}
}
func (i *ExtractStructField) ReplaceUses(old, new ValueID) {
	if !i.Base.IsLiteral() && i.Base.ID() == old {
		i.Base = Operand(new)
	}
}
func (i *ExtractStructField) IsPure() bool { return true }
func (i *ExtractStructField) String() string {
	return fmt.Sprintf("%s = extractfield %s.%s", i.Dest, i.Base, i.FieldName)
}

// InsertField returns a new struct equal to Base with FieldName replaced
// by Value.
type InsertField struct {
	base
	Dest       ValueID
	Base       Value
	FieldName  string
	Value      Value
	StructType mirtypes.Type
}

func (i *InsertField) Destination() (ValueID, bool) { return i.Dest, true }
func (i *InsertField) UsedValues() []ValueID {
	var out []ValueID
	if !i.Base.IsLiteral() {
		out = append(out, i.Base.ID())
	}
	if !i.Value.IsLiteral() {
		out = append(out, i.Value.ID())
	}
	return out
}
func (i *InsertField) ReplaceUses(old, new ValueID) {
	if !i.Base.IsLiteral() && i.Base.ID() == old {
		i.Base = Operand(new)
	}
	if !i.Value.IsLiteral() && i.Value.ID() == old {
		i.Value = Operand(new)
	}
}
func (i *InsertField) IsPure() bool { return true }
func (i *InsertField) String() string {
	return fmt.Sprintf("%s = insertfield %s.%s = %s", i.Dest, i.Base, i.FieldName, i.Value)
}

// MakeFixedArray materializes a FixedArray value at a fresh address.
type MakeFixedArray struct {
	base
	Dest     ValueID
	Elements []Value
	Type     mirtypes.Type
}

func (i *MakeFixedArray) Destination() (ValueID, bool) { return i.Dest, true }
func (i *MakeFixedArray) UsedValues() []ValueID         { return operandsOf(i.Elements) }
func (i *MakeFixedArray) ReplaceUses(old, new ValueID)  { replaceIn(i.Elements, old, new) }
func (i *MakeFixedArray) IsPure() bool                  { return true }
func (i *MakeFixedArray) String() string {
	return fmt.Sprintf("%s = makearray %s", i.Dest, joinValues(i.Elements))
}

// ArrayIndex reads element Index of Array into Dest.
type ArrayIndex struct {
	base
	Dest       ValueID
	Array      Value
	Index      Value
	ElementTyp mirtypes.Type
}

func (i *ArrayIndex) Destination() (ValueID, bool) { return i.Dest, true }
func (i *ArrayIndex) UsedValues() []ValueID {
	var out []ValueID
	if !i.Array.IsLiteral() {
		out = append(out, i.Array.ID())
	}
	if !i.Index.IsLiteral() {
		out = append(out, i.Index.ID())
	}
	return out
}
func (i *ArrayIndex) ReplaceUses(old, new ValueID) {
	if !i.Array.IsLiteral() && i.Array.ID() == old {
		i.Array = Operand(new)
	}
	if !i.Index.IsLiteral() && i.Index.ID() == old {
		i.Index = Operand(new)
	}
}
func (i *ArrayIndex) IsPure() bool { return true }
func (i *ArrayIndex) String() string {
	return fmt.Sprintf("%s = arrayindex %s[%s]", i.Dest, i.Array, i.Index)
}

// ArrayInsert returns a new array equal to Base with element Index
// replaced by Value.
type ArrayInsert struct {
	base
	Dest  ValueID
	Base  Value
	Index Value
	Value Value
}

func (i *ArrayInsert) Destination() (ValueID, bool) { return i.Dest, true }
func (i *ArrayInsert) UsedValues() []ValueID {
	var out []ValueID
	for _, v := range []Value{i.Base, i.Index, i.Value} {
		if !v.IsLiteral() {
			out = append(out, v.ID())
		}
	}
	return out
}
func (i *ArrayInsert) ReplaceUses(old, new ValueID) {
	if !i.Base.IsLiteral() && i.Base.ID() == old {
		i.Base = Operand(new)
	}
	if !i.Index.IsLiteral() && i.Index.ID() == old {
		i.Index = Operand(new)
	}
	if !i.Value.IsLiteral() && i.Value.ID() == old {
		i.Value = Operand(new)
	}
}
func (i *ArrayInsert) IsPure() bool { return true }
func (i *ArrayInsert) String() string {
	return fmt.Sprintf("%s = arrayinsert %s[%s] = %s", i.Dest, i.Base, i.Index, i.Value)
}

// Cast converts Source from SourceType to TargetType. Currently only
// U32->Felt is supported, with a run-time precondition enforced by
// codegen.
type Cast struct {
	base
	Dest             ValueID
	Source           Value
	SourceTyp, TargetTyp mirtypes.Type
}

func (i *Cast) Destination() (ValueID, bool) { return i.Dest, true }
func (i *Cast) UsedValues() []ValueID {
	if i.Source.IsLiteral() {
		return nil
	}
	return []ValueID{i.Source.ID()}
}
func (i *Cast) ReplaceUses(old, new ValueID) {
	if !i.Source.IsLiteral() && i.Source.ID() == old {
		i.Source = Operand(new)
	}
}
func (i *Cast) IsPure() bool { return true }
func (i *Cast) String() string {
	return fmt.Sprintf("%s = cast %s : %s -> %s", i.Dest, i.Source, i.SourceTyp, i.TargetTyp)
}

// Call invokes Callee with Args, producing zero or more Dests.
type Call struct {
	base
	Dests     []ValueID
	Callee    string
	Args      []Value
	Signature mirtypes.Signature
}

func (i *Call) Destination() (ValueID, bool) {
	if len(i.Dests) == 0 {
		return InvalidValueID, false
	}
	return i.Dests[0], true
}

// AllDestinations returns every result ValueID a multi-return call
// produces.
func (i *Call) AllDestinations() []ValueID { return i.Dests }
func (i *Call) UsedValues() []ValueID      { return operandsOf(i.Args) }
func (i *Call) ReplaceUses(old, new ValueID) { replaceIn(i.Args, old, new) }

// IsPure is always false: calls may have arbitrary side effects and are
// never eligible for CSE/DCE as pure instructions even though an unused
// result may still be dead-code eliminated by a dedicated call-aware
// check if the callee is known pure (not implemented: out of scope).
func (i *Call) IsPure() bool { return false }
func (i *Call) String() string {
	parts := make([]string, len(i.Dests))
	for idx, d := range i.Dests {
		parts[idx] = d.String()
	}
	return fmt.Sprintf("%s = call %s(%s)", strings.Join(parts, ", "), i.Callee, joinValues(i.Args))
}

// PhiSource pairs a predecessor block with the value flowing from it.
type PhiSource struct {
	Pred  BasicBlockID
	Value Value
}

// Phi selects among Sources depending on the predecessor block taken.
// Must precede any non-Phi instruction in its block.
type Phi struct {
	base
	Dest    ValueID
	Type    mirtypes.Type
	Sources []PhiSource
}

func (i *Phi) Destination() (ValueID, bool) { return i.Dest, true }
func (i *Phi) UsedValues() []ValueID {
	var out []ValueID
	for _, s := range i.Sources {
		if !s.Value.IsLiteral() {
			out = append(out, s.Value.ID())
		}
	}
	return out
}
func (i *Phi) ReplaceUses(old, new ValueID) {
	for idx := range i.Sources {
		v := i.Sources[idx].Value
		if !v.IsLiteral() && v.ID() == old {
			i.Sources[idx].Value = Operand(new)
		}
	}
}
func (i *Phi) IsPure() bool { return true }

// SourceFor returns the value Phi selects when arriving from pred, and
// whether pred is present in Sources.
func (i *Phi) SourceFor(pred BasicBlockID) (Value, bool) {
	for _, s := range i.Sources {
		if s.Pred == pred {
			return s.Value, true
		}
	}
	return Value{}, false
}

func (i *Phi) String() string {
	parts := make([]string, len(i.Sources))
	for idx, s := range i.Sources {
		parts[idx] = fmt.Sprintf("%s: %s", s.Pred, s.Value)
	}
	return fmt.Sprintf("%s = phi %s [%s]", i.Dest, i.Type, strings.Join(parts, ", "))
}

// Debug carries a human-readable annotation with no runtime effect,
// used by the frontend to embed source-level breadcrumbs in -emit-mir
// listings.
type Debug struct {
	base
	Text string
}

func (i *Debug) Destination() (ValueID, bool) { return InvalidValueID, false }
func (i *Debug) UsedValues() []ValueID         { return nil }
func (i *Debug) ReplaceUses(ValueID, ValueID)  {}
func (i *Debug) IsPure() bool                  { return true }
func (i *Debug) String() string                { return "debug " + i.Text }

// Nop performs no operation and codegen emits nothing for it. DCE does
// not remove it, since it has no destination.
type Nop struct {
	base
}

func (i *Nop) Destination() (ValueID, bool) { return InvalidValueID, false }
func (i *Nop) UsedValues() []ValueID         { return nil }
func (i *Nop) ReplaceUses(ValueID, ValueID)  {}
func (i *Nop) IsPure() bool                  { return true }
func (i *Nop) String() string                { return "nop" }

func operandsOf(vs []Value) []ValueID {
	var out []ValueID
	for _, v := range vs {
		if !v.IsLiteral() {
			out = append(out, v.ID())
		}
	}
	return out
}

func replaceIn(vs []Value, old, new ValueID) {
	for idx, v := range vs {
		if !v.IsLiteral() && v.ID() == old {
			vs[idx] = Operand(new)
		}
	}
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
