package passes

import (
	"testing"

	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// diamondWithPhi builds entry -> {thenBlk, elseBlk} -> join, with a phi
// at join whose sources are supplied by the caller.
func diamondWithPhi(t *testing.T, thenVal, elseVal mir.Value) (*mir.Function, mir.BasicBlockID, mir.ValueID) {
	t.Helper()
	fn := mir.NewFunction("f", nil, []mirtypes.Type{mirtypes.NewFelt()})
	entry := fn.Entry
	thenBlk := fn.NewBlock("then")
	elseBlk := fn.NewBlock("else")
	join := fn.NewBlock("join")

	fn.Block(entry).Terminator = &mir.If{Cond: mir.Lit(mir.BoolLiteral(true)), Then: thenBlk, Else: elseBlk}
	fn.AddEdge(entry, thenBlk)
	fn.AddEdge(entry, elseBlk)
	fn.Block(thenBlk).Terminator = &mir.Jump{Target: join}
	fn.AddEdge(thenBlk, join)
	fn.Block(elseBlk).Terminator = &mir.Jump{Target: join}
	fn.AddEdge(elseBlk, join)

	phiDest := fn.NewValue(mirtypes.NewFelt())
	joinBlk := fn.Block(join)
	joinBlk.Append(&mir.Phi{Dest: phiDest, Type: mirtypes.NewFelt(), Sources: []mir.PhiSource{
		{Pred: thenBlk, Value: thenVal},
		{Pred: elseBlk, Value: elseVal},
	}})
	joinBlk.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(phiDest)}}
	return fn, join, phiDest
}

func TestPhiSimplifyCollapsesAgreeingLiteralSources(t *testing.T) {
	fn, join, dest := diamondWithPhi(t, mir.Lit(mir.IntLiteral(5)), mir.Lit(mir.IntLiteral(5)))
	p := &PhiSimplify{}
	changed, err := p.Run(fn)
	if err != nil || !changed {
		t.Fatalf("Run() = (%v, %v)", changed, err)
	}
	blk := fn.Block(join)
	if len(blk.Phis()) != 0 {
		t.Fatalf("expected the phi to be removed, got %v", blk.Phis())
	}
	assign, ok := blk.Instructions[0].(*mir.Assign)
	if !ok || assign.Dest != dest || assign.Source.Literal().AsInt() != 5 {
		t.Fatalf("expected the phi to become 'assign 5', got %#v", blk.Instructions[0])
	}
}

func TestPhiSimplifyLeavesDisagreeingSourcesAlone(t *testing.T) {
	fn, join, _ := diamondWithPhi(t, mir.Lit(mir.IntLiteral(5)), mir.Lit(mir.IntLiteral(6)))
	p := &PhiSimplify{}
	changed, err := p.Run(fn)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if changed {
		t.Errorf("a phi whose sources disagree must not be simplified")
	}
	if len(fn.Block(join).Phis()) != 1 {
		t.Errorf("the real phi should remain")
	}
}

func TestPhiSimplifyIgnoresSelfReferenceThroughBackEdge(t *testing.T) {
	fn := mir.NewFunction("f", nil, []mirtypes.Type{mirtypes.NewFelt()})
	entry := fn.Entry
	header := fn.NewBlock("header")
	fn.Block(entry).Terminator = &mir.Jump{Target: header}
	fn.AddEdge(entry, header)

	phiDest := fn.NewValue(mirtypes.NewFelt())
	headerBlk := fn.Block(header)
	headerBlk.Append(&mir.Phi{Dest: phiDest, Type: mirtypes.NewFelt(), Sources: []mir.PhiSource{
		{Pred: entry, Value: mir.Lit(mir.IntLiteral(0))},
		{Pred: header, Value: mir.Operand(phiDest)}, // back-edge self reference
	}})
	headerBlk.Terminator = &mir.Return{Values: []mir.Value{mir.Operand(phiDest)}}
	fn.AddEdge(header, header)

	p := &PhiSimplify{}
	changed, err := p.Run(fn)
	if err != nil || !changed {
		t.Fatalf("Run() = (%v, %v)", changed, err)
	}
	assign, ok := headerBlk.Instructions[0].(*mir.Assign)
	if !ok || assign.Source.Literal().AsInt() != 0 {
		t.Fatalf("a phi with only one real source plus a self-reference should collapse to that source, got %#v", headerBlk.Instructions[0])
	}
}
