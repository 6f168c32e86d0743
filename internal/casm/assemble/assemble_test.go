package assemble

import (
	"testing"

	"zkcasm/internal/casm"
	"zkcasm/internal/casm/codegen"
	"zkcasm/internal/casm/frame"
)

func oneBlockFunc(name string, instrs ...*casm.Instr) *codegen.FuncCode {
	l := &casm.List{}
	pc := 0
	blockPCs := map[casm.Label]int{casm.Label(name + ".bb0"): 0}
	for _, in := range instrs {
		l.Append(in)
		pc += in.Op.Width()
	}
	return &codegen.FuncCode{
		Name:       name,
		Layout:     frame.NewLayout(name),
		Instrs:     l,
		EntryLabel: casm.Label(name + ".bb0"),
		BlockPCs:   blockPCs,
		ParamSlots: 0,
		RetSlots:   1,
	}
}

func TestLinkResolvesIntraFunctionJump(t *testing.T) {
	jmp := casm.NewInstr(casm.JumpRelImm, casm.Operand{}, casm.LabelOperand("f.bb0"), casm.Operand{})
	ret := casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{})
	fc := oneBlockFunc("f", jmp, ret)

	prog, err := Link([]*codegen.FuncCode{fc})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(prog.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(prog.Instructions))
	}
	resolved := prog.Instructions[0]
	if resolved.Src0.Kind != casm.OperandImm {
		t.Fatalf("label operand should have resolved to an immediate displacement, got %+v", resolved.Src0)
	}
	// f.bb0 is at absolute pc 0; the jump instruction is also at pc 0, so
	// the displacement back to its own block entry is 0.
	if resolved.Src0.Imm != 0 {
		t.Errorf("displacement = %d, want 0", resolved.Src0.Imm)
	}
}

func TestLinkResolvesCrossFunctionCall(t *testing.T) {
	call := casm.NewInstr(casm.CallRelImm, casm.FpOperand(0), casm.LabelOperand("callee"), casm.Operand{})
	ret1 := casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{})
	caller := oneBlockFunc("caller", call, ret1)

	ret2 := casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{})
	callee := oneBlockFunc("callee", ret2)

	prog, err := Link([]*codegen.FuncCode{caller, callee})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	// caller occupies instructions [0,2); callee's entry is at absolute pc 2.
	resolvedCall := prog.Instructions[0]
	if resolvedCall.Src0.Kind != casm.OperandImm {
		t.Fatalf("call's label operand should have resolved, got %+v", resolvedCall.Src0)
	}
	want := int64(2 - 0) // target pc 2, resolving instruction at pc 0
	if resolvedCall.Src0.Imm != want {
		t.Errorf("call displacement = %d, want %d", resolvedCall.Src0.Imm, want)
	}

	sym, err := prog.EntryPoint("callee")
	if err != nil {
		t.Fatalf("EntryPoint: %v", err)
	}
	if sym.EntryPC != 2 {
		t.Errorf("callee EntryPC = %d, want 2", sym.EntryPC)
	}
}

func TestLinkRejectsDuplicateFunctionNames(t *testing.T) {
	ret := casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{})
	a := oneBlockFunc("dup", ret)
	b := oneBlockFunc("dup", casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{}))

	if _, err := Link([]*codegen.FuncCode{a, b}); err == nil {
		t.Errorf("Link should reject two functions with the same name")
	}
}

func TestLinkRejectsUnresolvedLabel(t *testing.T) {
	jmp := casm.NewInstr(casm.JumpRelImm, casm.Operand{}, casm.LabelOperand("nowhere"), casm.Operand{})
	fc := oneBlockFunc("f", jmp)

	if _, err := Link([]*codegen.FuncCode{fc}); err == nil {
		t.Errorf("Link should fail when a label has no matching target")
	}
}

func TestEntryPointUnknownFunction(t *testing.T) {
	prog := &Program{}
	if _, err := prog.EntryPoint("missing"); err == nil {
		t.Errorf("EntryPoint should fail for a function absent from the symbol table")
	}
}

func TestEncodeRoundTripsInstructionCount(t *testing.T) {
	ret := casm.NewInstr(casm.Ret, casm.Operand{}, casm.Operand{}, casm.Operand{})
	fc := oneBlockFunc("f", ret)
	prog, err := Link([]*codegen.FuncCode{fc})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	bin, err := Encode(prog)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(bin) < 4 {
		t.Fatalf("encoded binary too short: %d bytes", len(bin))
	}
	count := uint32(bin[0]) | uint32(bin[1])<<8 | uint32(bin[2])<<16 | uint32(bin[3])<<24
	if count != 1 {
		t.Errorf("encoded instruction count = %d, want 1", count)
	}
}
