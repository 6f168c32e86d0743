package codegen

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/cerrors"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// m31Modulus is the base field's prime, used by negMod to normalize
// negated immediates at codegen time.
const m31Modulus = (int64(1) << 31) - 1

func (g *generator) lowerBlock(blk *mir.BasicBlock) error {
	if len(blk.Phis()) > 0 {
		return &cerrors.UnsupportedInstruction{
			Location: cerrors.Location{Function: g.fn.Name, Block: blk.String()},
			Reason:   "phi reached codegen; phielim.Eliminate must run first",
		}
	}
	for idx, inst := range blk.Instructions {
		if err := g.lowerInstruction(inst); err != nil {
			return annotate(err, g.fn.Name, blk.String(), idx)
		}
	}
	return g.lowerTerminator(blk)
}

func annotate(err error, fn, block string, idx int) error {
	if im, ok := err.(*cerrors.InvalidMIR); ok && im.Location.Function == "" {
		im.Location = cerrors.Location{Function: fn, Block: block, Index: idx}
		return im
	}
	if ui, ok := err.(*cerrors.UnsupportedInstruction); ok && ui.Location.Function == "" {
		ui.Location = cerrors.Location{Function: fn, Block: block, Index: idx}
		return ui
	}
	return err
}

func (g *generator) lowerInstruction(inst mir.Instruction) error {
	switch in := inst.(type) {
	case *mir.Assign:
		return g.lowerAssign(in)
	case *mir.BinaryOp:
		return g.lowerBinaryOp(in)
	case *mir.UnaryOp:
		return g.lowerUnaryOp(in)
	case *mir.FrameAlloc:
		_, err := g.allocDest(in.Dest, mirtypes.NewPointer(in.Type))
		return err
	case *mir.Load:
		return g.lowerLoad(in)
	case *mir.Store:
		return g.lowerStore(in)
	case *mir.GetElementPtr:
		return g.lowerGEP(in)
	case *mir.MakeTuple:
		return g.lowerAggregateMake(in.Dest, in.Type, in.Elements)
	case *mir.ExtractTupleElement:
		off, err := g.tupleSlotOffset(in.Tuple, in.Index)
		if err != nil {
			return err
		}
		return g.lowerExtract(in.Dest, in.Tuple, off, in.ElementTyp)
	case *mir.InsertTuple:
		off, err := g.tupleSlotOffset(in.Base, in.Index)
		if err != nil {
			return err
		}
		return g.lowerInsert(in.Dest, in.Base, off, in.Value, in.TupleType)
	case *mir.MakeStruct:
		return g.lowerMakeStruct(in)
	case *mir.ExtractStructField:
		return g.lowerExtractField(in)
	case *mir.InsertField:
		return g.lowerInsertField(in)
	case *mir.MakeFixedArray:
		return g.lowerAggregateMake(in.Dest, in.Type, in.Elements)
	case *mir.ArrayIndex:
		return g.lowerArrayIndex(in)
	case *mir.ArrayInsert:
		return g.lowerArrayInsert(in)
	case *mir.Cast:
		return g.lowerCast(in)
	case *mir.Call:
		return g.lowerCall(in)
	case *mir.Phi:
		return &cerrors.UnsupportedInstruction{Reason: "phi reached codegen"}
	case *mir.Debug, *mir.Nop:
		return nil
	default:
		return &cerrors.UnsupportedInstruction{Reason: fmt.Sprintf("unhandled MIR instruction %T", inst)}
	}
}

// tupleSlotOffset sums the sizes of every tuple element before index,
// using the tuple value's recorded type (nested aggregates are sized
// recursively by mirtypes.SizeOf, so this is correct for tuples of
// tuples/structs/arrays too).
func (g *generator) tupleSlotOffset(tuple mir.Value, index int) (int, error) {
	if tuple.IsLiteral() {
		return 0, &cerrors.InvalidMIR{Reason: "tuple extract/insert on a literal value"}
	}
	ty, ok := g.fn.TypeOf(tuple.ID())
	if !ok || ty.Kind() != mirtypes.Tuple {
		return 0, &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s is not a recorded tuple type", tuple.ID())}
	}
	off := 0
	for i, e := range ty.Elements() {
		if i == index {
			return off, nil
		}
		off += mirtypes.SizeOf(e)
	}
	return 0, &cerrors.InvalidMIR{Reason: fmt.Sprintf("tuple index %d out of range", index)}
}

func (g *generator) lowerAssign(in *mir.Assign) error {
	dst, err := g.allocDest(in.Dest, in.Type)
	if err != nil {
		return err
	}
	return g.copyValue(dst, in.Source, in.Type)
}

// copyValue emits the instruction(s) moving src into the slot(s) starting
// at dst, sized by ty. Scalars are a single store; aggregates copy
// field-by-field (slot copy has no native multi-slot opcode).
func (g *generator) copyValue(dst int32, src mir.Value, ty mirtypes.Type) error {
	n := mirtypes.SizeOf(ty)
	if n == 1 {
		op, err := g.operand(src)
		if err != nil {
			return err
		}
		if op.Kind == casm.OperandImm {
			g.emit(casm.StoreImm, casm.FpOperand(dst), op, casm.Operand{}, "")
		} else {
			g.emit(casm.StoreDerefFp, casm.FpOperand(dst), op, casm.Operand{}, "")
		}
		return nil
	}
	if src.IsLiteral() {
		return &cerrors.InvalidMIR{Reason: "literal source for a multi-slot aggregate copy"}
	}
	srcOff, ok := g.layout.Offset(src.ID())
	if !ok {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s used before its frame slot was assigned", src.ID())}
	}
	for i := int32(0); i < int32(n); i++ {
		g.emit(casm.StoreDerefFp, casm.FpOperand(dst+i), casm.FpOperand(srcOff+i), casm.Operand{}, "")
	}
	return nil
}

func (g *generator) lowerUnaryOp(in *mir.UnaryOp) error {
	dst, err := g.allocDestForUnary(in)
	if err != nil {
		return err
	}
	src, err := g.operand(in.Source)
	if err != nil {
		return err
	}
	switch in.Op {
	case mir.Neg:
		// neg(x) = 0 - x; StoreSubFpImm with a zero left operand is not a
		// form this ISA has (sub is dst = src0 - src1), so stage src as the
		// subtrahend against an immediate zero minuend via StoreSubFpFp
		// against a zero slot, falling back to the Imm form directly.
		if src.Kind == casm.OperandImm {
			g.emit(casm.StoreImm, casm.FpOperand(dst), casm.ImmOperand(negMod(src.Imm)), casm.Operand{}, "")
			return nil
		}
		zero, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		g.emit(casm.StoreImm, casm.FpOperand(zero), casm.ImmOperand(0), casm.Operand{}, "")
		g.emit(casm.StoreSubFpFp, casm.FpOperand(dst), casm.FpOperand(zero), src, "")
		return nil
	case mir.Not:
		// not(b) = 1 - b; booleans are represented as the felt 0/1.
		if src.Kind == casm.OperandImm {
			g.emit(casm.StoreImm, casm.FpOperand(dst), casm.ImmOperand(1-src.Imm), casm.Operand{}, "")
			return nil
		}
		return g.negateBool(dst, src)
	default:
		return &cerrors.UnsupportedInstruction{Reason: fmt.Sprintf("unknown unary op %s", in.Op)}
	}
}

// negateBool computes dst = 1 - src for a non-literal boolean operand.
// StoreSubFpImm's semantics are src0 - imm, not imm - src0, so 1 - src
// cannot be built directly from an immediate 1; stage it into a temp and
// fall through to StoreSubFpFp instead, mirroring the Neg case's own
// zero-staging above.
func (g *generator) negateBool(dst int32, src casm.Operand) error {
	one, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreImm, casm.FpOperand(one), casm.ImmOperand(1), casm.Operand{}, "")
	g.emit(casm.StoreSubFpFp, casm.FpOperand(dst), casm.FpOperand(one), src, "")
	return nil
}

func (g *generator) allocDestForUnary(in *mir.UnaryOp) (int32, error) {
	ty := mirtypes.NewFelt()
	if in.Op == mir.Not {
		ty = mirtypes.NewBool()
	}
	return g.allocDest(in.Dest, ty)
}

func negMod(v int64) int64 {
	m := ((-v) % m31Modulus) + m31Modulus
	return m % m31Modulus
}

func (g *generator) lowerLoad(in *mir.Load) error {
	dst, err := g.allocDest(in.Dest, in.Type)
	if err != nil {
		return err
	}
	addr, err := g.operand(in.Address)
	if err != nil {
		return err
	}
	n := mirtypes.SizeOf(in.Type)
	for i := int32(0); i < int32(n); i++ {
		// Multi-slot loads read consecutive cells relative to the same base
		// pointer; the double-deref opcode's Src1 carries the per-slot
		// offset added before dereferencing.
		g.emit(casm.StoreDoubleDerefFp, casm.FpOperand(dst+i), addr, casm.ImmOperand(int64(i)), "")
	}
	return nil
}

func (g *generator) lowerStore(in *mir.Store) error {
	addr, err := g.operand(in.Address)
	if err != nil {
		return err
	}
	n := mirtypes.SizeOf(in.Type)
	if n == 1 {
		val, err := g.operand(in.Value)
		if err != nil {
			return err
		}
		if val.Kind == casm.OperandImm {
			g.emit(casm.StoreToDoubleDerefFpImm, casm.Operand{}, addr, val, "")
		} else {
			// Stage through a temp: a non-literal source is first copied
			// into a fresh slot, then written via the pointer.
			tmp, err := g.freshTemp(1)
			if err != nil {
				return err
			}
			g.emit(casm.StoreDerefFp, casm.FpOperand(tmp), val, casm.Operand{}, "")
			g.emit(casm.StoreToDoubleDerefFpImm, casm.Operand{}, addr, casm.FpOperand(tmp), "")
		}
		return nil
	}
	if in.Value.IsLiteral() {
		return &cerrors.InvalidMIR{Reason: "literal source for a multi-slot store"}
	}
	srcOff, ok := g.layout.Offset(in.Value.ID())
	if !ok {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s used before its frame slot was assigned", in.Value.ID())}
	}
	for i := int32(0); i < int32(n); i++ {
		// StoreToDoubleDerefFpImm has no offset operand of its own, so each
		// slot past the first writes through a freshly offset pointer.
		cellAddr, err := g.offsetPointer(addr, i)
		if err != nil {
			return err
		}
		g.emit(casm.StoreToDoubleDerefFpImm, casm.Operand{}, cellAddr, casm.FpOperand(srcOff+i), "")
	}
	return nil
}

// offsetPointer returns an operand addressing ptr+i: ptr itself when i is
// zero, otherwise a freshly materialized pointer value.
func (g *generator) offsetPointer(ptr casm.Operand, i int32) (casm.Operand, error) {
	if i == 0 {
		return ptr, nil
	}
	if ptr.Kind == casm.OperandImm {
		return casm.ImmOperand(ptr.Imm + int64(i)), nil
	}
	tmp, err := g.freshTemp(1)
	if err != nil {
		return casm.Operand{}, err
	}
	g.emit(casm.StoreAddFpImm, casm.FpOperand(tmp), ptr, casm.ImmOperand(int64(i)), "")
	return casm.FpOperand(tmp), nil
}

func (g *generator) lowerGEP(in *mir.GetElementPtr) error {
	dst, err := g.allocDest(in.Dest, mirtypes.NewPointer(mirtypes.NewUnknown()))
	if err != nil {
		return err
	}
	base, err := g.operand(in.Base)
	if err != nil {
		return err
	}
	if in.Index.IsLiteral() && in.Index.Literal().Kind == mir.LiteralInt {
		off := in.Index.Literal().AsInt()
		if base.Kind == casm.OperandImm {
			g.emit(casm.StoreImm, casm.FpOperand(dst), casm.ImmOperand(base.Imm+off), casm.Operand{}, "")
		} else {
			g.emit(casm.StoreAddFpImm, casm.FpOperand(dst), base, casm.ImmOperand(off), "")
		}
		return nil
	}
	idx, err := g.operand(in.Index)
	if err != nil {
		return err
	}
	g.emit(casm.StoreAddFpFp, casm.FpOperand(dst), base, idx, "")
	return nil
}

func (g *generator) lowerAggregateMake(dest mir.ValueID, ty mirtypes.Type, elements []mir.Value) error {
	dst, err := g.allocDest(dest, ty)
	if err != nil {
		return err
	}
	off := dst
	var elemTypes []mirtypes.Type
	switch ty.Kind() {
	case mirtypes.Tuple:
		elemTypes = ty.Elements()
	case mirtypes.FixedArray:
		for range elements {
			elemTypes = append(elemTypes, ty.Elem())
		}
	default:
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("lowerAggregateMake called with non-aggregate type %s", ty)}
	}
	for i, e := range elements {
		if err := g.copyValue(off, e, elemTypes[i]); err != nil {
			return err
		}
		off += int32(mirtypes.SizeOf(elemTypes[i]))
	}
	return nil
}

func (g *generator) lowerExtract(dest mir.ValueID, base mir.Value, slotOffset int, ty mirtypes.Type) error {
	baseOff, ok := g.layout.Offset(valueIDOrInvalid(base))
	if !ok {
		return &cerrors.InvalidMIR{Reason: "aggregate extract from an unlaid-out base value"}
	}
	dst, err := g.allocDest(dest, ty)
	if err != nil {
		return err
	}
	n := mirtypes.SizeOf(ty)
	for i := int32(0); i < int32(n); i++ {
		g.emit(casm.StoreDerefFp, casm.FpOperand(dst+i), casm.FpOperand(baseOff+int32(slotOffset)+i), casm.Operand{}, "")
	}
	return nil
}

func (g *generator) lowerInsert(dest mir.ValueID, base mir.Value, slotOffset int, value mir.Value, aggTy mirtypes.Type) error {
	baseOff, ok := g.layout.Offset(valueIDOrInvalid(base))
	if !ok {
		return &cerrors.InvalidMIR{Reason: "aggregate insert from an unlaid-out base value"}
	}
	dst, err := g.allocDest(dest, aggTy)
	if err != nil {
		return err
	}
	n := mirtypes.SizeOf(aggTy)
	for i := int32(0); i < int32(n); i++ {
		g.emit(casm.StoreDerefFp, casm.FpOperand(dst+i), casm.FpOperand(baseOff+i), casm.Operand{}, "")
	}
	valTy := fieldTypeAtSlot(aggTy, slotOffset)
	return g.copyValue(dst+int32(slotOffset), value, valTy)
}

// fieldTypeAtSlot is a best-effort lookup used only to size the
// overwritten region of an InsertTuple/InsertField/ArrayInsert; every
// caller already knows the element is scalar-or-uniform sized, so a
// linear scan suffices.
func fieldTypeAtSlot(aggTy mirtypes.Type, slot int) mirtypes.Type {
	switch aggTy.Kind() {
	case mirtypes.Tuple:
		off := 0
		for _, e := range aggTy.Elements() {
			if off == slot {
				return e
			}
			off += mirtypes.SizeOf(e)
		}
	case mirtypes.Struct:
		off := 0
		for _, f := range aggTy.Fields() {
			if off == slot {
				return f.Type
			}
			off += mirtypes.SizeOf(f.Type)
		}
	case mirtypes.FixedArray:
		return aggTy.Elem()
	}
	return mirtypes.NewFelt()
}

func valueIDOrInvalid(v mir.Value) mir.ValueID {
	if v.IsLiteral() {
		return mir.InvalidValueID
	}
	return v.ID()
}

func (g *generator) lowerMakeStruct(in *mir.MakeStruct) error {
	dst, err := g.allocDest(in.Dest, in.Type)
	if err != nil {
		return err
	}
	off := dst
	for _, f := range in.Fields {
		ft, _ := in.Type.FieldType(f.Name)
		if err := g.copyValue(off, f.Value, ft); err != nil {
			return err
		}
		off += int32(mirtypes.SizeOf(ft))
	}
	return nil
}

func (g *generator) lowerExtractField(in *mir.ExtractStructField) error {
	if in.Base.IsLiteral() {
		return &cerrors.InvalidMIR{Reason: "struct field extract on a literal value"}
	}
	baseTy, ok := g.fn.TypeOf(in.Base.ID())
	if !ok || baseTy.Kind() != mirtypes.Struct {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s is not a recorded struct type", in.Base.ID())}
	}
	slotOff, ok := baseTy.FieldOffset(in.FieldName)
	if !ok {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("unknown field %q", in.FieldName)}
	}
	return g.lowerExtract(in.Dest, in.Base, slotOff, in.FieldTyp)
}

func (g *generator) lowerInsertField(in *mir.InsertField) error {
	slotOff, ok := in.StructType.FieldOffset(in.FieldName)
	if !ok {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("unknown field %q", in.FieldName)}
	}
	return g.lowerInsert(in.Dest, in.Base, slotOff, in.Value, in.StructType)
}

func (g *generator) lowerArrayIndex(in *mir.ArrayIndex) error {
	elemSize := mirtypes.SizeOf(in.ElementTyp)
	if in.Index.IsLiteral() && in.Index.Literal().Kind == mir.LiteralInt {
		slot := int(in.Index.Literal().AsInt()) * elemSize
		return g.lowerExtract(in.Dest, in.Array, slot, in.ElementTyp)
	}
	// Dynamic index: compute base+index*elemSize at runtime via a pointer,
	// then double-deref load, mirroring GetElementPtr's dynamic-offset path.
	baseOff, ok := g.layout.Offset(valueIDOrInvalid(in.Array))
	if !ok {
		return &cerrors.InvalidMIR{Reason: "array index into an unlaid-out base value"}
	}
	idx, err := g.operand(in.Index)
	if err != nil {
		return err
	}
	ptr, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	if elemSize == 1 {
		g.emit(casm.StoreAddFpFp, casm.FpOperand(ptr), casm.FpOperand(baseOff), idx, "")
	} else {
		scaled, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		g.emit(casm.StoreMulFpImm, casm.FpOperand(scaled), idx, casm.ImmOperand(int64(elemSize)), "")
		g.emit(casm.StoreAddFpFp, casm.FpOperand(ptr), casm.FpOperand(baseOff), casm.FpOperand(scaled), "")
	}
	dst, err := g.allocDest(in.Dest, in.ElementTyp)
	if err != nil {
		return err
	}
	for i := int32(0); i < int32(mirtypes.SizeOf(in.ElementTyp)); i++ {
		g.emit(casm.StoreDoubleDerefFp, casm.FpOperand(dst+i), casm.FpOperand(ptr), casm.ImmOperand(int64(i)), "")
	}
	return nil
}

func (g *generator) lowerArrayInsert(in *mir.ArrayInsert) error {
	if in.Base.IsLiteral() {
		return &cerrors.InvalidMIR{Reason: "array insert on a literal value"}
	}
	arrTy, ok := g.fn.TypeOf(in.Base.ID())
	if !ok || arrTy.Kind() != mirtypes.FixedArray {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s is not a recorded array type", in.Base.ID())}
	}
	elemTy := arrTy.Elem()
	if !in.Index.IsLiteral() || in.Index.Literal().Kind != mir.LiteralInt {
		return &cerrors.UnsupportedInstruction{Reason: "dynamic-index ArrayInsert is not supported by codegen"}
	}
	slot := int(in.Index.Literal().AsInt()) * mirtypes.SizeOf(elemTy)
	return g.lowerInsert(in.Dest, in.Base, slot, in.Value, arrTy)
}
