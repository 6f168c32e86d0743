package codegen

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/cerrors"
	"zkcasm/internal/m31"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

func (g *generator) lowerBinaryOp(in *mir.BinaryOp) error {
	if in.Op.IsU32() {
		return g.lowerU32BinaryOp(in)
	}
	switch in.Op {
	case mir.Add, mir.Sub, mir.Mul, mir.Div:
		return g.lowerFeltArith(in)
	case mir.Eq, mir.Neq:
		return g.lowerFeltEquality(in)
	case mir.Less, mir.Greater, mir.LessEqual, mir.GreaterEqual:
		return &cerrors.UnsupportedInstruction{
			Reason: fmt.Sprintf("felt %s has no total order in M31; the frontend must not emit it", in.Op),
		}
	case mir.And, mir.Or:
		return g.lowerBoolOp(in)
	default:
		return &cerrors.UnsupportedInstruction{Reason: fmt.Sprintf("unhandled binary op %s", in.Op)}
	}
}

// lowerFeltArith emits Add/Sub/Mul/Div over Felt operands. Add/Mul are
// commutative and normalize any immediate operand onto the right, where
// the native fp-imm opcodes expect it. Sub and Div have no native
// fp-imm opcode emission path at all: StoreSubFpImm/StoreDivFpImm are
// real prover-level ISA entries but codegen never targets them for a
// literal operand, on either side. An immediate right operand folds into
// Add(-imm mod P) / Mul(inv(imm) mod P); an immediate left operand is
// staged into a temp and falls through to the native fp-fp opcode.
func (g *generator) lowerFeltArith(in *mir.BinaryOp) error {
	dst, err := g.allocDest(in.Dest, mirtypes.NewFelt())
	if err != nil {
		return err
	}
	left, err := g.operand(in.Left)
	if err != nil {
		return err
	}
	right, err := g.operand(in.Right)
	if err != nil {
		return err
	}
	if (in.Op == mir.Add || in.Op == mir.Mul) && left.Kind == casm.OperandImm && right.Kind != casm.OperandImm {
		left, right = right, left
	}
	switch in.Op {
	case mir.Add:
		if right.Kind == casm.OperandImm {
			g.emit(casm.StoreAddFpImm, casm.FpOperand(dst), left, casm.ImmOperand(int64(m31.FromInt64(right.Imm))), "")
			return nil
		}
		g.emit(casm.StoreAddFpFp, casm.FpOperand(dst), left, right, "")
		return nil
	case mir.Mul:
		if right.Kind == casm.OperandImm {
			g.emit(casm.StoreMulFpImm, casm.FpOperand(dst), left, casm.ImmOperand(int64(m31.FromInt64(right.Imm))), "")
			return nil
		}
		g.emit(casm.StoreMulFpFp, casm.FpOperand(dst), left, right, "")
		return nil
	case mir.Sub:
		return g.emitFeltSub(dst, left, right)
	case mir.Div:
		return g.emitFeltDiv(dst, left, right)
	}
	panic("codegen: lowerFeltArith called with non-arithmetic op")
}

// emitFeltSub emits dst = left - right. A literal right operand folds
// into StoreAddFpImm with the negated immediate; a literal left operand
// is staged into a temp via StoreImm since the fp-fp opcode requires
// both operands in frame slots.
func (g *generator) emitFeltSub(dst int32, left, right casm.Operand) error {
	if right.Kind == casm.OperandImm {
		g.emit(casm.StoreAddFpImm, casm.FpOperand(dst), left, casm.ImmOperand(int64(m31.Neg(m31.FromInt64(right.Imm)))), "")
		return nil
	}
	if left.Kind == casm.OperandImm {
		staged, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		g.emit(casm.StoreImm, casm.FpOperand(staged), casm.ImmOperand(int64(m31.FromInt64(left.Imm))), casm.Operand{}, "")
		left = casm.FpOperand(staged)
	}
	g.emit(casm.StoreSubFpFp, casm.FpOperand(dst), left, right, "")
	return nil
}

// emitFeltDiv emits dst = left / right, mirroring emitFeltSub: a literal
// right operand folds into StoreMulFpImm with the modular inverse of the
// immediate (rejecting an immediate congruent to 0 mod P), and a literal
// left operand is staged into a temp ahead of the native fp-fp opcode.
func (g *generator) emitFeltDiv(dst int32, left, right casm.Operand) error {
	if right.Kind == casm.OperandImm {
		elem := m31.FromInt64(right.Imm)
		if m31.IsZero(elem) {
			return &cerrors.InvalidMIR{Reason: "felt division by a literal congruent to 0 mod P"}
		}
		g.emit(casm.StoreMulFpImm, casm.FpOperand(dst), left, casm.ImmOperand(int64(m31.Inverse(elem))), "")
		return nil
	}
	if left.Kind == casm.OperandImm {
		staged, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		g.emit(casm.StoreImm, casm.FpOperand(staged), casm.ImmOperand(int64(m31.FromInt64(left.Imm))), casm.Operand{}, "")
		left = casm.FpOperand(staged)
	}
	g.emit(casm.StoreDivFpFp, casm.FpOperand(dst), left, right, "")
	return nil
}

// lowerFeltEquality materializes Eq/Neq as a boolean 0/1 via a
// subtract-and-test sequence: d = (a - b); result = (d == 0) for Eq, the
// negation for Neq. CASM has no native felt-equality opcode, so codegen
// uses StoreLeFpImm (value <= 0 test) against the zero residue, which for
// field elements only ever equals zero when the subtraction is exactly
// zero (no other felt is "<= 0" in this backend's reduced representation
// besides the canonical zero).
func (g *generator) lowerFeltEquality(in *mir.BinaryOp) error {
	dst, err := g.allocDest(in.Dest, mirtypes.NewBool())
	if err != nil {
		return err
	}
	left, err := g.operand(in.Left)
	if err != nil {
		return err
	}
	right, err := g.operand(in.Right)
	if err != nil {
		return err
	}
	diff, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	if err := g.emitFeltSub(diff, left, right); err != nil {
		return err
	}
	g.emit(casm.StoreLeFpImm, casm.FpOperand(dst), casm.FpOperand(diff), casm.ImmOperand(0), "")
	if in.Op == mir.Neq {
		return g.negateBool(dst, casm.FpOperand(dst))
	}
	return nil
}

func (g *generator) lowerBoolOp(in *mir.BinaryOp) error {
	dst, err := g.allocDest(in.Dest, mirtypes.NewBool())
	if err != nil {
		return err
	}
	left, err := g.operand(in.Left)
	if err != nil {
		return err
	}
	right, err := g.operand(in.Right)
	if err != nil {
		return err
	}
	switch in.Op {
	case mir.And:
		// Booleans are 0/1 felts; logical AND is multiplication.
		if right.Kind == casm.OperandImm {
			g.emit(casm.StoreMulFpImm, casm.FpOperand(dst), left, right, "")
		} else {
			g.emit(casm.StoreMulFpFp, casm.FpOperand(dst), left, right, "")
		}
	case mir.Or:
		// a OR b = a + b - a*b, computed via a temp product.
		prod, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		if right.Kind == casm.OperandImm {
			g.emit(casm.StoreMulFpImm, casm.FpOperand(prod), left, right, "")
		} else {
			g.emit(casm.StoreMulFpFp, casm.FpOperand(prod), left, right, "")
		}
		sum, err := g.freshTemp(1)
		if err != nil {
			return err
		}
		if right.Kind == casm.OperandImm {
			g.emit(casm.StoreAddFpImm, casm.FpOperand(sum), left, right, "")
		} else {
			g.emit(casm.StoreAddFpFp, casm.FpOperand(sum), left, right, "")
		}
		g.emit(casm.StoreSubFpFp, casm.FpOperand(dst), casm.FpOperand(sum), casm.FpOperand(prod), "")
	}
	return nil
}

// lowerU32BinaryOp emits the native two-limb opcode for each u32 op,
// asserting the comparison legalization pass already rewrote Greater/
// GreaterEqual/LessEqual/Neq away (only Eq and Less reach codegen).
func (g *generator) lowerU32BinaryOp(in *mir.BinaryOp) error {
	resultTy := mirtypes.NewU32()
	if in.Op.IsComparison() {
		resultTy = mirtypes.NewBool()
	}
	dst, err := g.allocDest(in.Dest, resultTy)
	if err != nil {
		return err
	}
	left, err := g.operand(in.Left)
	if err != nil {
		return err
	}
	right, err := g.operand(in.Right)
	if err != nil {
		return err
	}
	if in.Op == mir.U32Rem {
		return &cerrors.UnsupportedInstruction{Reason: "u32 remainder has no native CASM opcode; express it as a - (a/b)*b"}
	}
	if in.Op == mir.U32Div && right.Kind == casm.OperandImm && right.Imm == 0 {
		return &cerrors.InvalidMIR{Reason: "u32 division by a literal zero divisor"}
	}
	op, ok := u32Opcode(in.Op, right.Kind == casm.OperandImm)
	if !ok {
		return &cerrors.UnsupportedInstruction{
			Reason: fmt.Sprintf("u32 %s must be legalized before codegen (legalize.U32Comparisons)", in.Op),
		}
	}
	if right.Kind == casm.OperandImm {
		g.emit(op, casm.FpOperand(dst), left, casm.ImmOperand(normalizeU32Imm(in.Op, right.Imm)), "")
		return nil
	}
	g.emit(op, casm.FpOperand(dst), left, right, "")
	return nil
}

// normalizeU32Imm reduces an immediate into the 32-bit wrapping range.
// U32Sub has no native fp-imm opcode: u32Opcode biases it onto
// U32StoreAddFpImm, so its immediate must already be two's-complement
// negated here, matching twos_complement_u32 in the reference codegen.
func normalizeU32Imm(op mir.BinOp, imm int64) int64 {
	if op == mir.U32Sub {
		return int64(-uint32(imm))
	}
	return int64(uint32(imm))
}

func u32Opcode(op mir.BinOp, imm bool) (casm.Opcode, bool) {
	switch op {
	case mir.U32Add:
		if imm {
			return casm.U32StoreAddFpImm, true
		}
		return casm.U32StoreAddFpFp, true
	case mir.U32Sub:
		if imm {
			// No native u32_sub_fp_imm emission path exists; bias through
			// add with the two's complement of the immediate instead.
			return casm.U32StoreAddFpImm, true
		}
		return casm.U32StoreSubFpFp, true
	case mir.U32Mul:
		if imm {
			return casm.U32StoreMulFpImm, true
		}
		return casm.U32StoreMulFpFp, true
	case mir.U32Div:
		if imm {
			return casm.U32StoreDivFpImm, true
		}
		return casm.U32StoreDivFpFp, true
	case mir.U32BitwiseAnd:
		if imm {
			return casm.U32StoreAndFpImm, true
		}
		return casm.U32StoreAndFpFp, true
	case mir.U32BitwiseOr:
		if imm {
			return casm.U32StoreOrFpImm, true
		}
		return casm.U32StoreOrFpFp, true
	case mir.U32BitwiseXor:
		if imm {
			return casm.U32StoreXorFpImm, true
		}
		return casm.U32StoreXorFpFp, true
	case mir.U32Eq:
		if imm {
			return casm.U32StoreEqFpImm, true
		}
		return casm.U32StoreEqFpFp, true
	case mir.U32Less:
		if imm {
			return casm.U32StoreLtFpImm, true
		}
		return casm.U32StoreLtFpFp, true
	default:
		return 0, false
	}
}
