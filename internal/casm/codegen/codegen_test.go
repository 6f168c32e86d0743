package codegen

import (
	"testing"

	"zkcasm/internal/casm"
	"zkcasm/internal/m31"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// addFunction builds add(a, b felt) felt { return a + b }, two params and
// a single binary op feeding the return terminator.
func addFunction() *mir.Function {
	params := []mir.Param{
		{ID: 0, Name: "a", Type: mirtypes.NewFelt()},
		{ID: 1, Name: "b", Type: mirtypes.NewFelt()},
	}
	fn := mir.NewFunction("add", params, []mirtypes.Type{mirtypes.NewFelt()})
	dest := fn.NewValue(mirtypes.NewFelt())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Add, Dest: dest, Left: mir.Operand(0), Right: mir.Operand(1)})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}
	return fn
}

func TestGenerateSimpleFunction(t *testing.T) {
	fc, err := Generate(addFunction())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fc.Name != "add" {
		t.Errorf("FuncCode.Name = %q, want add", fc.Name)
	}
	if fc.ParamSlots != 2 || fc.RetSlots != 1 {
		t.Errorf("ParamSlots/RetSlots = %d/%d, want 2/1", fc.ParamSlots, fc.RetSlots)
	}
	instrs := fc.Instrs.Slice()
	if len(instrs) == 0 {
		t.Fatalf("Generate produced no instructions")
	}
	last := instrs[len(instrs)-1]
	if last.Op != casm.Ret {
		t.Errorf("last instruction should be Ret, got %s", last.Op)
	}
	// Params sit at negative offsets immediately before saved_fp(-2).
	aOff, ok := fc.Layout.Offset(0)
	if !ok || aOff != -4 {
		t.Errorf("param a offset = %d (ok=%v), want -4", aOff, ok)
	}
	bOff, ok := fc.Layout.Offset(1)
	if !ok || bOff != -3 {
		t.Errorf("param b offset = %d (ok=%v), want -3", bOff, ok)
	}
	if _, ok := fc.BlockPCs[fc.EntryLabel]; !ok {
		t.Errorf("BlockPCs missing an entry for the entry label")
	}
}

func TestGenerateBinaryOpEmitsNativeAdd(t *testing.T) {
	fc, err := Generate(addFunction())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var sawAdd bool
	for _, in := range fc.Instrs.Slice() {
		if in.Op == casm.StoreAddFpFp {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Errorf("expected a native StoreAddFpFp for felt Add, got none")
	}
}

func TestGenerateFeltDivisionByZeroLiteralRejected(t *testing.T) {
	params := []mir.Param{{ID: 0, Name: "a", Type: mirtypes.NewFelt()}}
	fn := mir.NewFunction("bad_div", params, []mirtypes.Type{mirtypes.NewFelt()})
	dest := fn.NewValue(mirtypes.NewFelt())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Div, Dest: dest, Left: mir.Operand(0), Right: mir.Lit(mir.IntLiteral(0))})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	if _, err := Generate(fn); err == nil {
		t.Errorf("dividing by a literal zero residue should fail to generate")
	}
}

func TestGenerateFeltOrderingComparisonRejected(t *testing.T) {
	params := []mir.Param{
		{ID: 0, Name: "a", Type: mirtypes.NewFelt()},
		{ID: 1, Name: "b", Type: mirtypes.NewFelt()},
	}
	fn := mir.NewFunction("bad_cmp", params, []mirtypes.Type{mirtypes.NewBool()})
	dest := fn.NewValue(mirtypes.NewBool())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Less, Dest: dest, Left: mir.Operand(0), Right: mir.Operand(1)})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	if _, err := Generate(fn); err == nil {
		t.Errorf("a felt ordering comparison has no native opcode and should fail to generate")
	}
}

// oneParamFunc builds f(a felt) resultTy { ... } with a single destination
// value ready for one unary or binary op against param a.
func oneParamFunc(resultTy mirtypes.Type) (*mir.Function, mir.ValueID) {
	params := []mir.Param{{ID: 0, Name: "a", Type: mirtypes.NewFelt()}}
	fn := mir.NewFunction("f", params, []mirtypes.Type{resultTy})
	dest := fn.NewValue(resultTy)
	return fn, dest
}

func findOpcode(instrs []*casm.Instr, op casm.Opcode) *casm.Instr {
	for _, in := range instrs {
		if in.Op == op {
			return in
		}
	}
	return nil
}

func TestGenerateFeltSubImmediateUsesAddWithNegatedImm(t *testing.T) {
	fn, dest := oneParamFunc(mirtypes.NewFelt())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Sub, Dest: dest, Left: mir.Operand(0), Right: mir.Lit(mir.IntLiteral(5))})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.StoreSubFpImm) != nil {
		t.Errorf("Sub with an immediate right operand must never emit StoreSubFpImm")
	}
	add := findOpcode(instrs, casm.StoreAddFpImm)
	if add == nil {
		t.Fatalf("expected a StoreAddFpImm encoding Sub-by-immediate as Add(-imm)")
	}
	want := int64(m31.Neg(m31.FromInt64(5)))
	if add.Src1.Imm != want {
		t.Errorf("StoreAddFpImm immediate = %d, want %d (-5 mod P)", add.Src1.Imm, want)
	}
}

func TestGenerateFeltDivImmediateUsesMulWithInverse(t *testing.T) {
	fn, dest := oneParamFunc(mirtypes.NewFelt())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Div, Dest: dest, Left: mir.Operand(0), Right: mir.Lit(mir.IntLiteral(5))})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.StoreDivFpImm) != nil {
		t.Errorf("Div with an immediate right operand must never emit StoreDivFpImm")
	}
	mul := findOpcode(instrs, casm.StoreMulFpImm)
	if mul == nil {
		t.Fatalf("expected a StoreMulFpImm encoding Div-by-immediate as Mul(inv(imm))")
	}
	want := int64(m31.Inverse(m31.FromInt64(5)))
	if mul.Src1.Imm != want {
		t.Errorf("StoreMulFpImm immediate = %d, want %d (inverse of 5 mod P)", mul.Src1.Imm, want)
	}
}

func TestGenerateU32SubImmediateUsesAddWithTwosComplement(t *testing.T) {
	params := []mir.Param{{ID: 0, Name: "a", Type: mirtypes.NewU32()}}
	fn := mir.NewFunction("f", params, []mirtypes.Type{mirtypes.NewU32()})
	dest := fn.NewValue(mirtypes.NewU32())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.U32Sub, Dest: dest, Left: mir.Operand(0), Right: mir.Lit(mir.IntLiteral(1))})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.U32StoreSubFpImm) != nil {
		t.Errorf("U32Sub with an immediate right operand must never emit U32StoreSubFpImm")
	}
	add := findOpcode(instrs, casm.U32StoreAddFpImm)
	if add == nil {
		t.Fatalf("expected a U32StoreAddFpImm encoding U32Sub-by-immediate via two's complement")
	}
	if uint32(add.Src1.Imm) != 0xFFFFFFFF {
		t.Errorf("U32StoreAddFpImm immediate = %#x, want two's complement of 1 (0xffffffff)", uint32(add.Src1.Imm))
	}
}

func TestGenerateNotOfNonLiteralComputesOneMinusSrc(t *testing.T) {
	fn, dest := oneParamFunc(mirtypes.NewBool())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.UnaryOp{Op: mir.Not, Dest: dest, Source: mir.Operand(0)})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.StoreSubFpImm) != nil {
		t.Errorf("Not of a non-literal must not use StoreSubFpImm (computes src-1, not 1-src)")
	}
	one := findOpcode(instrs, casm.StoreImm)
	if one == nil || one.Src0.Imm != 1 {
		t.Fatalf("expected a StoreImm staging the literal 1 ahead of the subtraction, got %+v", one)
	}
	sub := findOpcode(instrs, casm.StoreSubFpFp)
	if sub == nil {
		t.Fatalf("expected Not to fall through to StoreSubFpFp computing 1 - src")
	}
}

func TestGenerateNeqOfNonLiteralNegatesViaStoreSubFpFp(t *testing.T) {
	params := []mir.Param{
		{ID: 0, Name: "a", Type: mirtypes.NewFelt()},
		{ID: 1, Name: "b", Type: mirtypes.NewFelt()},
	}
	fn := mir.NewFunction("f", params, []mirtypes.Type{mirtypes.NewBool()})
	dest := fn.NewValue(mirtypes.NewBool())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.Neq, Dest: dest, Left: mir.Operand(0), Right: mir.Operand(1)})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.StoreSubFpImm) != nil {
		t.Errorf("Neq negation must not use StoreSubFpImm (computes result-1, not 1-result)")
	}
	if findOpcode(instrs, casm.StoreLeFpImm) == nil {
		t.Errorf("expected the equality test's StoreLeFpImm to still run before negation")
	}
}

func TestGenerateCastEmitsBoundaryBranch(t *testing.T) {
	params := []mir.Param{{ID: 0, Name: "a", Type: mirtypes.NewU32()}}
	fn := mir.NewFunction("f", params, []mirtypes.Type{mirtypes.NewFelt()})
	dest := fn.NewValue(mirtypes.NewFelt())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.Cast{Dest: dest, Source: mir.Operand(0), SourceTyp: mirtypes.NewU32(), TargetTyp: mirtypes.NewFelt()})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	fc, err := Generate(fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	instrs := fc.Instrs.Slice()
	if findOpcode(instrs, casm.JnzFpImm) == nil {
		t.Errorf("expected the cast's boundary check to branch around the slow path")
	}
	if findOpcode(instrs, casm.StoreDivFpFp) == nil {
		t.Errorf("expected a nonzero assertion (division) guarding the out-of-range case")
	}
}

func TestGenerateU32RemRejected(t *testing.T) {
	params := []mir.Param{
		{ID: 0, Name: "a", Type: mirtypes.NewU32()},
		{ID: 1, Name: "b", Type: mirtypes.NewU32()},
	}
	fn := mir.NewFunction("bad_rem", params, []mirtypes.Type{mirtypes.NewU32()})
	dest := fn.NewValue(mirtypes.NewU32())
	entry := fn.Block(fn.Entry)
	entry.Append(&mir.BinaryOp{Op: mir.U32Rem, Dest: dest, Left: mir.Operand(0), Right: mir.Operand(1)})
	entry.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(dest)}}

	if _, err := Generate(fn); err == nil {
		t.Errorf("u32 remainder has no native opcode and should fail to generate")
	}
}
