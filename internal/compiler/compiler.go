// Package compiler is the whole-program driver: it ties mir construction
// (performed by an external frontend via mir.Builder) through the
// optimization manager, u32 legalization, phi elimination, CASM codegen,
// the post-codegen passes, and the assembler into one
// CompileProgram entry point.
package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"zkcasm/internal/casm"
	"zkcasm/internal/casm/assemble"
	"zkcasm/internal/casm/codegen"
	"zkcasm/internal/casm/postpass"
	"zkcasm/internal/mir"
	"zkcasm/internal/mir/legalize"
	"zkcasm/internal/mir/passes"
	"zkcasm/internal/mir/phielim"
)

var log = commonlog.GetLogger("zkcasm.compiler")

// Diagnostic reports a single function's compile failure; CompileProgram
// collects one per failing function when Options.StopAtFirstError is
// false, so a caller can report every error in one pass instead of
// fixing them one at a time.
type Diagnostic struct {
	Function string
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Function, d.Err)
}

// CompileProgram runs every function in prog through the full pipeline
// and links the results into a single assemble.Program. When
// opts.StopAtFirstError is set, compilation halts at the first failing
// function and that one Diagnostic is returned; otherwise every function
// is attempted and all Diagnostics are returned together, alongside a nil
// Program if any function failed (a partially linked binary is not a
// useful artifact).
func CompileProgram(prog *mir.Program, opts Options) (*assemble.Program, []Diagnostic) {
	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	mgr := passes.NewManager(passes.Options{
		MaxIterations:         opts.MaxIterations,
		ValidateEachIteration: opts.ValidateEachIteration,
	}, passes.DefaultPipeline()...)

	var diags []Diagnostic
	var compiled []*codegen.FuncCode
	for _, name := range prog.Order {
		fn := prog.Functions[name]
		fc, err := compileFunction(fn, mgr)
		if err != nil {
			log.Errorf("compiling %s: %v", name, err)
			diags = append(diags, Diagnostic{Function: name, Err: err})
			if opts.StopAtFirstError {
				return nil, diags
			}
			continue
		}
		compiled = append(compiled, fc)
	}
	if len(diags) > 0 {
		return nil, diags
	}

	linked, err := assemble.Link(compiled)
	if err != nil {
		return nil, []Diagnostic{{Function: "<link>", Err: err}}
	}
	return linked, nil
}

func compileFunction(fn *mir.Function, mgr *passes.Manager) (*codegen.FuncCode, error) {
	log.Debugf("optimizing %s", fn.Name)
	if err := mgr.Run(fn); err != nil {
		return nil, fmt.Errorf("optimizing %s: %w", fn.Name, err)
	}

	u32legal := &legalize.U32Comparisons{}
	if _, err := u32legal.Run(fn); err != nil {
		return nil, fmt.Errorf("legalizing u32 comparisons in %s: %w", fn.Name, err)
	}

	if _, err := phielim.Eliminate(fn); err != nil {
		return nil, fmt.Errorf("eliminating phis in %s: %w", fn.Name, err)
	}

	fc, err := codegen.Generate(fn)
	if err != nil {
		return nil, fmt.Errorf("generating CASM for %s: %w", fn.Name, err)
	}

	labels := labelIndex(fc)
	if err := postpass.RunAll(fc.Instrs, labels, fc.Layout, postpass.DefaultPasses()...); err != nil {
		return nil, fmt.Errorf("post-passing %s: %w", fn.Name, err)
	}
	// Dedup may have spliced instructions in ahead of a label's original
	// target, shifting every later offset; BlockPCs must be rebuilt from
	// the (possibly retargeted) label->instruction map rather than reused.
	fc.BlockPCs = recomputeBlockPCs(fc, labels)
	return fc, nil
}

func recomputeBlockPCs(fc *codegen.FuncCode, labels map[casm.Label]*casm.Instr) map[casm.Label]int {
	offsetOf := make(map[*casm.Instr]int)
	pc := 0
	for _, in := range fc.Instrs.Slice() {
		offsetOf[in] = pc
		pc += in.Op.Width()
	}
	out := make(map[casm.Label]int, len(labels))
	for label, instr := range labels {
		out[label] = offsetOf[instr]
	}
	return out
}

// labelIndex builds the casm.Label -> *casm.Instr map postpass.Pass needs
// to keep block-entry labels pointing at the right instruction across
// dedup's splices. Labels mark block entries and, inside a block, the
// join point after a u32->felt cast's range check; each names a single
// instruction, so this is a one-instruction-per-label map, not a
// reverse index over every label occurrence.
func labelIndex(fc *codegen.FuncCode) map[casm.Label]*casm.Instr {
	pcToLabel := make(map[int]casm.Label, len(fc.BlockPCs))
	for label, off := range fc.BlockPCs {
		pcToLabel[off] = label
	}
	out := make(map[casm.Label]*casm.Instr, len(fc.BlockPCs))
	pc := 0
	for _, in := range fc.Instrs.Slice() {
		if label, ok := pcToLabel[pc]; ok {
			out[label] = in
		}
		pc += in.Op.Width()
	}
	return out
}
