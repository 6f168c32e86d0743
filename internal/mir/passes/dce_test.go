package passes

import (
	"testing"

	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

func TestDCERemovesUnusedPureInstruction(t *testing.T) {
	fn := mir.NewFunction("f", nil, []mirtypes.Type{mirtypes.NewFelt()})
	dead := fn.NewValue(mirtypes.NewFelt())
	live := fn.NewValue(mirtypes.NewFelt())
	blk := fn.Block(fn.Entry)
	blk.Append(&mir.Assign{Dest: dead, Source: mir.Lit(mir.IntLiteral(1))})
	blk.Append(&mir.Assign{Dest: live, Source: mir.Lit(mir.IntLiteral(2))})
	blk.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(live)}}

	p := &DCE{}
	changed, err := p.Run(fn)
	if err != nil || !changed {
		t.Fatalf("Run() = (%v, %v)", changed, err)
	}
	if len(blk.Instructions) != 1 {
		t.Fatalf("expected the dead assign to be removed, got %v", blk.Instructions)
	}
	if assign := blk.Instructions[0].(*mir.Assign); assign.Dest != live {
		t.Errorf("the live assign should remain, got %#v", assign)
	}
}

func TestDCEChainsThroughDependentDeadValues(t *testing.T) {
	fn := mir.NewFunction("f", nil, nil)
	a := fn.NewValue(mirtypes.NewFelt())
	b := fn.NewValue(mirtypes.NewFelt())
	blk := fn.Block(fn.Entry)
	blk.Append(&mir.Assign{Dest: a, Source: mir.Lit(mir.IntLiteral(1))})
	blk.Append(&mir.UnaryOp{Op: mir.Neg, Dest: b, Source: mir.Operand(a)}) // uses a, but b is itself unused
	blk.Terminator = &mir.Return{}

	p := &DCE{}
	changed, err := p.Run(fn)
	if err != nil || !changed {
		t.Fatalf("Run() = (%v, %v)", changed, err)
	}
	if len(blk.Instructions) != 0 {
		t.Fatalf("expected both instructions to be swept away transitively, got %v", blk.Instructions)
	}
}

func TestDCEPreservesReturnOperand(t *testing.T) {
	fn := mir.NewFunction("f", nil, []mirtypes.Type{mirtypes.NewFelt()})
	v := fn.NewValue(mirtypes.NewFelt())
	blk := fn.Block(fn.Entry)
	blk.Append(&mir.Assign{Dest: v, Source: mir.Lit(mir.IntLiteral(9))})
	blk.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(v)}}

	p := &DCE{}
	changed, err := p.Run(fn)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if changed {
		t.Errorf("a value consumed by Return must never be eliminated")
	}
}

func TestDCELeavesImpureInstructionsAlone(t *testing.T) {
	fn := mir.NewFunction("f", nil, nil)
	dest := fn.NewValue(mirtypes.NewFelt())
	blk := fn.Block(fn.Entry)
	blk.Append(&mir.Call{Dests: []mir.ValueID{dest}, Callee: "sideEffecting"})
	blk.Terminator = &mir.Return{}

	p := &DCE{}
	changed, err := p.Run(fn)
	if err != nil || changed {
		t.Errorf("an impure Call with an unused result must not be eliminated")
	}
	if len(blk.Instructions) != 1 {
		t.Errorf("the call should remain, got %v", blk.Instructions)
	}
}
