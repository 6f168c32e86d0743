// Package cerrors defines the compiler's boundary-facing error taxonomy:
// the four kinds a caller of internal/compiler can distinguish with
// errors.As, each wrapping either a MIR location or a source span handed
// in by the external semantic layer.
package cerrors

import "fmt"

// Span is a source location, supplied by the external semantic index
// when available. A zero Span means none was available; callers should
// treat File == "" as "no span".
type Span struct {
	File        string
	Line, Col   int
	EndLine     int
	EndCol      int
}

func (s Span) String() string {
	if s.File == "" {
		return "<no span>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Location pinpoints a MIR instruction when no source span is available.
type Location struct {
	Function string
	Block    string
	Index    int
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s#%d", l.Function, l.Block, l.Index)
}

// InvalidMIR reports a structural or semantic violation of the MIR
// invariants: double-defined values, malformed phis, out-of-bounds
// aggregate access, division by a field-zero literal, and similar
// programmer/compiler bugs caught while still in MIR form.
type InvalidMIR struct {
	Span     Span
	Location Location
	Reason   string
}

func (e *InvalidMIR) Error() string {
	return fmt.Sprintf("invalid MIR at %s (%s): %s", e.Location, e.Span, e.Reason)
}

// UnsupportedInstruction reports an attempt to emit a CASM form the
// backend does not provide, e.g. a Felt ordering comparison or an
// un-legalized u32 comparison reaching codegen.
type UnsupportedInstruction struct {
	Location Location
	Reason   string
}

func (e *UnsupportedInstruction) Error() string {
	return fmt.Sprintf("unsupported instruction at %s: %s", e.Location, e.Reason)
}

// LayoutError reports a frame-layout failure: offset overflow beyond the
// 16-bit immediate range, or an attempt to double-bind a value to two
// offsets.
type LayoutError struct {
	Function string
	Reason   string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error in %s: %s", e.Function, e.Reason)
}

// LinkError reports a whole-program assembly failure: an unresolved
// label, a missing entrypoint, or a duplicate function symbol.
type LinkError struct {
	Symbol string
	Reason string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link error for %q: %s", e.Symbol, e.Reason)
}
