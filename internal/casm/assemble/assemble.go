// Package assemble resolves symbolic CASM labels into absolute
// instruction addresses and serializes the linked program into the
// binary format the VM and prover consume.
package assemble

import (
	"fmt"

	"zkcasm/internal/casm"
	"zkcasm/internal/casm/codegen"
	"zkcasm/internal/cerrors"
)

// Symbol describes one function's entry point and frame shape in the
// linked program, forming the program's symbol table.
type Symbol struct {
	Name       string
	EntryPC    int
	ParamSlots int
	RetSlots   int
}

// Program is a fully linked, label-free CASM program ready for
// serialization: a flat instruction stream plus a symbol table.
type Program struct {
	Instructions []*casm.Instr
	Symbols      []Symbol
}

// Link concatenates every function's instruction stream into one
// program, in the order given, resolving every Jump/Jnz/Call label
// operand to a relative displacement from the resolving instruction.
// Functions are linked in the order passed; callers should put the
// program's designated entry function first only if the external
// loader requires it (this package imposes no such requirement itself).
func Link(funcs []*codegen.FuncCode) (*Program, error) {
	addr, order, err := layoutAddresses(funcs)
	if err != nil {
		return nil, err
	}
	globalLabels := make(map[casm.Label]int)
	for _, fc := range funcs {
		for blockLabel, pc := range addr[fc.Name].blockPCs {
			globalLabels[blockLabel] = pc
		}
		globalLabels[casm.Label(fc.Name)] = addr[fc.Name].entryPC
	}

	var out []*casm.Instr
	for _, fc := range funcs {
		pc := addr[fc.Name].entryPC
		for _, in := range fc.Instrs.Slice() {
			resolved, err := resolveInstr(in, pc, globalLabels)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
			pc += in.Op.Width()
		}
	}

	symbols := make([]Symbol, 0, len(funcs))
	for _, name := range order {
		fc := addr[name].code
		symbols = append(symbols, Symbol{
			Name:       name,
			EntryPC:    addr[name].entryPC,
			ParamSlots: fc.ParamSlots,
			RetSlots:   fc.RetSlots,
		})
	}
	return &Program{Instructions: out, Symbols: symbols}, nil
}

type funcAddr struct {
	code     *codegen.FuncCode
	entryPC  int
	blockPCs map[casm.Label]int
}

// layoutAddresses computes each function's entry PC (its position in the
// whole-program instruction stream, counted in opcode Width units) and
// every block label's PC within it.
func layoutAddresses(funcs []*codegen.FuncCode) (map[string]*funcAddr, []string, error) {
	addr := make(map[string]*funcAddr, len(funcs))
	order := make([]string, 0, len(funcs))
	pc := 0
	for _, fc := range funcs {
		if _, dup := addr[fc.Name]; dup {
			return nil, nil, &cerrors.LinkError{Symbol: fc.Name, Reason: "duplicate function symbol"}
		}
		blockPCs := make(map[casm.Label]int, len(fc.BlockPCs))
		for label, offset := range fc.BlockPCs {
			blockPCs[label] = pc + offset
		}
		addr[fc.Name] = &funcAddr{code: fc, entryPC: pc, blockPCs: blockPCs}
		order = append(order, fc.Name)
		for _, in := range fc.Instrs.Slice() {
			pc += in.Op.Width()
		}
	}
	return addr, order, nil
}

func resolveInstr(in *casm.Instr, pc int, labels map[casm.Label]int) (*casm.Instr, error) {
	resolve := func(op casm.Operand) (casm.Operand, error) {
		if op.Kind != casm.OperandLabel {
			return op, nil
		}
		target, ok := labels[op.Label]
		if !ok {
			return casm.Operand{}, &cerrors.LinkError{Symbol: string(op.Label), Reason: "unresolved label"}
		}
		return casm.ImmOperand(int64(target - pc)), nil
	}
	dst, err := resolve(in.Dst)
	if err != nil {
		return nil, err
	}
	src0, err := resolve(in.Src0)
	if err != nil {
		return nil, err
	}
	src1, err := resolve(in.Src1)
	if err != nil {
		return nil, err
	}
	out := casm.NewInstr(in.Op, dst, src0, src1)
	out.Comment = in.Comment
	return out, nil
}

// EntryPoint returns the symbol table entry for the named function, used
// by the loader to seed the VM's initial pc.
func (p *Program) EntryPoint(name string) (Symbol, error) {
	for _, s := range p.Symbols {
		if s.Name == name {
			return s, nil
		}
	}
	return Symbol{}, &cerrors.LinkError{Symbol: name, Reason: fmt.Sprintf("no such function %q in program", name)}
}
