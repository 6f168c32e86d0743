package codegen

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/cerrors"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

func (g *generator) lowerTerminator(blk *mir.BasicBlock) error {
	switch term := blk.Terminator.(type) {
	case *mir.Jump:
		g.emit(casm.JumpRelImm, casm.Operand{}, casm.LabelOperand(g.labels[term.Target]), casm.Operand{}, "")
		return nil
	case *mir.If:
		return g.lowerIf(term)
	case *mir.Return:
		return g.lowerReturn(term)
	case *mir.Unreachable:
		// No instruction needed at runtime; the prover never generates an
		// execution trace that reaches this point. Emit nothing.
		return nil
	default:
		return &cerrors.UnsupportedInstruction{Reason: fmt.Sprintf("unhandled terminator %T", term)}
	}
}

func (g *generator) lowerIf(term *mir.If) error {
	cond, err := g.operand(term.Cond)
	if err != nil {
		return err
	}
	if cond.Kind == casm.OperandImm {
		target := term.Else
		if cond.Imm != 0 {
			target = term.Then
		}
		g.emit(casm.JumpRelImm, casm.Operand{}, casm.LabelOperand(g.labels[target]), casm.Operand{}, "")
		return nil
	}
	g.emit(casm.JnzFpImm, casm.Operand{}, cond, casm.LabelOperand(g.labels[term.Then]), "")
	g.emit(casm.JumpRelImm, casm.Operand{}, casm.LabelOperand(g.labels[term.Else]), casm.Operand{}, "")
	return nil
}

// lowerReturn copies each return value into the caller-reserved return
// slots (offsets -2-argSlots-retSlots .. per layoutSignature) and emits
// Ret. Since those slots have no SSA ValueID, the offsets are recomputed
// here the same way layoutSignature derived them.
func (g *generator) lowerReturn(term *mir.Return) error {
	argSlots := int32(0)
	for _, p := range g.fn.Params {
		argSlots += int32(mirtypes.SizeOf(p.Type))
	}
	retSlots := int32(0)
	for _, r := range g.fn.Returns {
		retSlots += int32(mirtypes.SizeOf(r))
	}
	off := int32(-2) - argSlots - retSlots
	for i, v := range term.Values {
		ty := g.fn.Returns[i]
		if err := g.copyValue(off, v, ty); err != nil {
			return err
		}
		off += int32(mirtypes.SizeOf(ty))
	}
	g.emit(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{}, "")
	return nil
}
