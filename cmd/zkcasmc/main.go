// Command zkcasmc drives the zkcasm middle end and backend over an
// already-built MIR program: optimize, legalize, eliminate phis,
// generate CASM, and assemble the linked binary.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"zkcasm/internal/casm/assemble"
	"zkcasm/internal/compiler"
	"zkcasm/internal/mir"
)

var (
	outPath   string
	emitMIR   bool
	validate  bool
	dumpCASM  bool
	verbosity int
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zkcasmc",
		Short: "Compile zkcasm MIR into a linked CASM binary",
		RunE:  runCompile,
	}
	flags := cmd.Flags()
	flags.StringVar(&outPath, "out", "a.casm", "output path for the assembled binary")
	flags.BoolVar(&emitMIR, "emit-mir", false, "print each function's MIR before optimization")
	flags.BoolVar(&validate, "validate", false, "run the structural validator after every optimization sweep")
	flags.BoolVar(&dumpCASM, "dump-casm", false, "print each function's generated CASM instructions")
	flags.IntVar(&verbosity, "verbosity", 0, "commonlog verbosity level (0=info, higher=more verbose)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("zkcasmc")

	prog := loadProgram(args)
	if emitMIR {
		for _, name := range prog.Order {
			fmt.Println(prog.Functions[name].String())
		}
	}

	opts := compiler.DefaultOptions()
	opts.ValidateEachIteration = validate

	linked, diags := compiler.CompileProgram(prog, opts)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, color.RedString(d.String()))
		}
		return fmt.Errorf("%d function(s) failed to compile", len(diags))
	}

	if dumpCASM {
		for _, s := range linked.Symbols {
			fmt.Printf("%s @ pc=%d (params=%d, rets=%d)\n", s.Name, s.EntryPC, s.ParamSlots, s.RetSlots)
		}
		pc := 0
		for _, in := range linked.Instructions {
			fmt.Printf("%4d: %s\n", pc, in)
			pc += in.Op.Width()
		}
	}

	bin, err := assemble.Encode(linked)
	if err != nil {
		return fmt.Errorf("encoding binary: %w", err)
	}
	if err := os.WriteFile(outPath, bin, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	log.Infof("wrote %d bytes to %s", len(bin), outPath)
	return nil
}

// loadProgram is a placeholder entry point for the external frontend:
// this command compiles a zkcasm MIR program already constructed
// in-process by a frontend (lexing, parsing, and semantic analysis are
// out of scope here); it takes no file arguments today since no
// serialized MIR interchange format exists yet.
func loadProgram(args []string) *mir.Program {
	return mir.NewProgram()
}
