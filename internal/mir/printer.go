package mir

import "io"

// Printer renders a Program or Function as a debug listing: one
// instruction per line with its operands and optional trailing comment.
// Function.String/Program.String already implement the same rendering;
// Printer exists as the addressable entry point frontend/CLI code is
// expected to depend on (cmd/zkcasmc's -emit-mir flag).
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// PrintFunction writes fn's listing to the printer's writer.
func (p *Printer) PrintFunction(fn *Function) error {
	_, err := io.WriteString(p.w, fn.String())
	return err
}

// PrintProgram writes every function in prog, in declaration order.
func (p *Printer) PrintProgram(prog *Program) error {
	_, err := io.WriteString(p.w, prog.String())
	return err
}
