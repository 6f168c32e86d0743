package codegen

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/cerrors"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// lowerCast implements the U32->Felt conversion: a u32 is stored as two
// 16-bit limbs (hi, lo), and reassembling it as a felt is only safe when
// hi*2^16+lo is itself a canonical M31 residue, i.e. hi < 2^15-1, or
// hi == 2^15-1 and lo < 2^16-1 (hi*65536+lo == P-1 is the last in-range
// value; P itself and beyond must halt, not silently wrap). Codegen emits
// a branch: fast path when hi < 32767, else assert hi == 32767 && lo <
// 65535 via comparison opcodes and a nonzero assertion, before both paths
// converge on the same hi*65536+lo assembly. A literal source is
// range-checked at compile time and stored with a single StoreImm.
func (g *generator) lowerCast(in *mir.Cast) error {
	if in.SourceTyp.Kind() != mirtypes.U32 || in.TargetTyp.Kind() != mirtypes.Felt {
		return &cerrors.UnsupportedInstruction{
			Reason: fmt.Sprintf("cast %s -> %s is not supported; only u32 -> felt is implemented", in.SourceTyp, in.TargetTyp),
		}
	}
	dst, err := g.allocDest(in.Dest, mirtypes.NewFelt())
	if err != nil {
		return err
	}
	if in.Source.IsLiteral() {
		v := int64(uint32(in.Source.Literal().AsInt()))
		if v >= m31Modulus {
			return &cerrors.InvalidMIR{Reason: fmt.Sprintf("u32 literal %d cast to felt is not below the M31 modulus", v)}
		}
		g.emit(casm.StoreImm, casm.FpOperand(dst), casm.ImmOperand(v), casm.Operand{}, "cast u32->felt: literal")
		return nil
	}
	srcOff, ok := g.layout.Offset(in.Source.ID())
	if !ok {
		return &cerrors.InvalidMIR{Reason: fmt.Sprintf("value %s used before its frame slot was assigned", in.Source.ID())}
	}
	hi := casm.FpOperand(srcOff)
	lo := casm.FpOperand(srcOff + 1)

	hiBelowBound, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreLeFpImm, casm.FpOperand(hiBelowBound), hi, casm.ImmOperand(32766), "cast u32->felt: hi < 2^15-1")

	okLabel := g.newLabel("cast_ok")
	g.emit(casm.JnzFpImm, casm.Operand{}, casm.FpOperand(hiBelowBound), casm.LabelOperand(okLabel), "")

	// Slow path: hi >= 32767. In range only when hi == 32767 (computed as
	// (hi <= 32767) - (hi <= 32766), both already boolean) and lo < 65535.
	hiAtBound, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreLeFpImm, casm.FpOperand(hiAtBound), hi, casm.ImmOperand(32767), "cast u32->felt: hi <= 2^15-1")
	hiEqBound, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreSubFpFp, casm.FpOperand(hiEqBound), casm.FpOperand(hiAtBound), casm.FpOperand(hiBelowBound), "cast u32->felt: hi == 2^15-1")
	loBelowBound, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreLeFpImm, casm.FpOperand(loBelowBound), lo, casm.ImmOperand(65534), "cast u32->felt: lo < 2^16-1")
	conj, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreMulFpFp, casm.FpOperand(conj), casm.FpOperand(hiEqBound), casm.FpOperand(loBelowBound), "cast u32->felt: hi==2^15-1 && lo<2^16-1")

	// Assert conj != 0. conj is a product of two booleans, so nonzero
	// means exactly 1; dividing by it halts the VM when conj is 0, since
	// field division by zero is undefined.
	one, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreImm, casm.FpOperand(one), casm.ImmOperand(1), casm.Operand{}, "")
	assertSlot, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreDivFpFp, casm.FpOperand(assertSlot), casm.FpOperand(one), casm.FpOperand(conj), "cast u32->felt: assert hi==2^15-1 && lo<2^16-1")

	g.bindLabel(okLabel)

	// result = hi * 65536 + lo, computed directly: safe now that the
	// branch above has rejected every out-of-range (hi, lo) pair.
	scaled, err := g.freshTemp(1)
	if err != nil {
		return err
	}
	g.emit(casm.StoreMulFpImm, casm.FpOperand(scaled), hi, casm.ImmOperand(1<<16), "cast u32->felt: hi*2^16")
	g.emit(casm.StoreAddFpFp, casm.FpOperand(dst), casm.FpOperand(scaled), lo, "cast u32->felt: + lo")
	return nil
}
