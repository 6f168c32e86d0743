package codegen

import (
	"zkcasm/internal/casm"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// lowerCall implements the calling convention: the caller carves a
// contiguous [ret][arg] region out of its own frame, copies arguments
// into it, and calls through a label naming the callee's entry block.
// Call destinations are mapped directly onto the reserved return slots
// rather than copied a second time afterward.
func (g *generator) lowerCall(in *mir.Call) error {
	retSlots := 0
	for _, r := range in.Signature.Returns {
		retSlots += mirtypes.SizeOf(r)
	}
	argSlots := 0
	for _, a := range in.Signature.Params {
		argSlots += mirtypes.SizeOf(a)
	}
	base, err := g.freshTemp(int32(retSlots + argSlots))
	if err != nil {
		return err
	}
	argOff := base + int32(retSlots)
	for i, arg := range in.Args {
		ty := in.Signature.Params[i]
		if err := g.copyValue(argOff, arg, ty); err != nil {
			return err
		}
		argOff += int32(mirtypes.SizeOf(ty))
	}
	g.emit(casm.CallRelImm, casm.FpOperand(base), casm.LabelOperand(casm.Label(in.Callee)), casm.Operand{}, "")
	retOff := base
	for i, dest := range in.Dests {
		ty := in.Signature.Returns[i]
		if err := g.layout.MapValue(dest, retOff); err != nil {
			return err
		}
		retOff += int32(mirtypes.SizeOf(ty))
	}
	return nil
}
