// Package codegen lowers a phi-free mir.Function into a CASM instruction
// list, computing its frame layout along the way. Labels are symbolic
// (casm.Label) and resolved later by the assembler.
package codegen

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/casm/frame"
	"zkcasm/internal/cerrors"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// FuncCode is one function's generated CASM, still carrying symbolic
// block labels.
type FuncCode struct {
	Name       string
	Layout     *frame.Layout
	Instrs     *casm.List
	EntryLabel casm.Label
	// BlockPCs maps every block's label to its first instruction's offset
	// within this function, counted in opcode-Width units — the assembler
	// adds the function's own entry PC to get an absolute address.
	BlockPCs   map[casm.Label]int
	ParamSlots int
	RetSlots   int
}

type generator struct {
	fn       *mir.Function
	layout   *frame.Layout
	instrs   *casm.List
	labels   map[mir.BasicBlockID]casm.Label
	blockPCs map[casm.Label]int
	pc       int
}

// Generate lowers fn to CASM. Call sites reference callees by function
// name; resolving those across the whole program happens in the
// assembler.
func Generate(fn *mir.Function) (*FuncCode, error) {
	g := &generator{
		fn:       fn,
		layout:   frame.NewLayout(fn.Name),
		instrs:   &casm.List{},
		labels:   make(map[mir.BasicBlockID]casm.Label),
		blockPCs: make(map[casm.Label]int),
	}
	if err := g.layoutSignature(); err != nil {
		return nil, err
	}
	for _, id := range fn.ReversePostorder() {
		g.labels[id] = g.blockLabel(id)
	}
	for _, id := range fn.ReversePostorder() {
		label := g.labels[id]
		g.blockPCs[label] = g.pc
		if err := g.lowerBlock(fn.Block(id)); err != nil {
			return nil, err
		}
	}
	paramSlots, retSlots := 0, 0
	for _, p := range fn.Params {
		paramSlots += mirtypes.SizeOf(p.Type)
	}
	for _, r := range fn.Returns {
		retSlots += mirtypes.SizeOf(r)
	}
	return &FuncCode{
		Name:       fn.Name,
		Layout:     g.layout,
		Instrs:     g.instrs,
		EntryLabel: g.labels[fn.Entry],
		BlockPCs:   g.blockPCs,
		ParamSlots: paramSlots,
		RetSlots:   retSlots,
	}, nil
}

// layoutSignature places parameters at negative offsets immediately
// before the saved_fp/saved_pc pair, per the calling convention in §4.7(d):
// [ret1…retM][arg1…argN][saved_fp][saved_pc][callee_locals…]. From the
// callee's own fp, saved_pc is at -1 and saved_fp at -2; arguments occupy
// the region just before that (argN adjacent to saved_fp), and return
// slots the region before the arguments.
func (g *generator) layoutSignature() error {
	offset := int32(-2)
	for i := len(g.fn.Params) - 1; i >= 0; i-- {
		p := g.fn.Params[i]
		size := int32(mirtypes.SizeOf(p.Type))
		offset -= size
		if err := g.layout.MapValue(p.ID, offset); err != nil {
			return err
		}
	}
	// Return slots have no SSA ValueID — the callee writes them by
	// position, with lowerReturn computing their offsets from the
	// signature, not through MapValue.
	return nil
}

func (g *generator) blockLabel(id mir.BasicBlockID) casm.Label {
	return casm.Label(fmt.Sprintf("%s.%s", g.fn.Name, id))
}

// newLabel returns a fresh symbolic label for an intra-block branch that
// isn't tied to any MIR block (e.g. Cast's boundary-check fast path),
// disambiguated by the current instruction offset, which is unique at
// the point the label is minted.
func (g *generator) newLabel(hint string) casm.Label {
	return casm.Label(fmt.Sprintf("%s.%s%d", g.fn.Name, hint, g.pc))
}

// bindLabel records label's address as the generator's current pc, the
// same way Generate binds every block's entry label.
func (g *generator) bindLabel(label casm.Label) {
	g.blockPCs[label] = g.pc
}

// allocDest reserves and binds fresh stack slots for dest, sized by ty.
func (g *generator) allocDest(dest mir.ValueID, ty mirtypes.Type) (int32, error) {
	if off, ok := g.layout.Offset(dest); ok {
		return off, nil
	}
	off, err := g.layout.ReserveStack(int32(mirtypes.SizeOf(ty)))
	if err != nil {
		return 0, err
	}
	if err := g.layout.MapValue(dest, off); err != nil {
		return 0, err
	}
	return off, nil
}

// freshTemp reserves n slots for a codegen-internal temporary not
// corresponding to any MIR value (cast staging, immediate-left operand
// staging).
func (g *generator) freshTemp(n int32) (int32, error) {
	return g.layout.ReserveStack(n)
}

func (g *generator) emit(op casm.Opcode, dst, src0, src1 casm.Operand, comment string) {
	g.instrs.Append(&casm.Instr{Op: op, Dst: dst, Src0: src0, Src1: src1, Comment: comment})
	g.pc += op.Width()
}

// operand resolves a MIR Value to a CASM operand: an fp-relative slot for
// an already-laid-out SSA value, or an immediate for a literal.
func (g *generator) operand(v mir.Value) (casm.Operand, error) {
	if v.IsLiteral() {
		lit := v.Literal()
		if lit.Kind == mir.LiteralBool {
			return casm.ImmOperand(boolToInt(lit.AsBool())), nil
		}
		return casm.ImmOperand(lit.AsInt()), nil
	}
	off, ok := g.layout.Offset(v.ID())
	if !ok {
		return casm.Operand{}, &cerrors.InvalidMIR{
			Location: cerrors.Location{Function: g.fn.Name},
			Reason:   fmt.Sprintf("value %s used before its frame slot was assigned", v.ID()),
		}
	}
	return casm.FpOperand(off), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
