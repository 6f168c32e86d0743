// Package postpass implements the two post-codegen CASM optimizations:
// operand deduplication (enforcing the prover's per-cell read-clock
// discipline) and immediate canonicalization (collapsing trivial
// arithmetic-by-constant forms). Both run over a casm.List and a label
// table built by codegen, splicing replacement instructions in place via
// List.Replace.
package postpass

import (
	"zkcasm/internal/casm"
	"zkcasm/internal/casm/frame"
)

// Pass is the small optimization interface every post-codegen CASM pass
// implements, so a third pass can be added later without touching the
// pipeline's call sites.
type Pass interface {
	Name() string
	// Run rewrites instrs in place and relabels any label in labels that
	// pointed at a removed/replaced instruction. layout supplies fresh
	// temporary slots for passes that need to stage a value (Dedup's
	// overlap-breaking copy). Returns whether anything changed.
	Run(instrs *casm.List, labels map[casm.Label]*casm.Instr, layout *frame.Layout) (bool, error)
}

// RunAll applies each pass in order once; unlike mir/passes.Manager these
// passes are not run to a fixed point: both are single-sweep rewrites,
// and in DefaultPasses' order dedup sees every repeated read
// canonicalize introduces, while dedup's staging copies contain no
// multiply for canonicalize to rewrite.
func RunAll(instrs *casm.List, labels map[casm.Label]*casm.Instr, layout *frame.Layout, passes ...Pass) error {
	for _, p := range passes {
		if _, err := p.Run(instrs, labels, layout); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPasses returns the required pass order: canonicalize must run
// before dedup, since canonicalize turns a u32 multiply-by-zero into a
// self-xor that reads the same slots through both operands, which dedup
// then stages through a temporary.
func DefaultPasses() []Pass {
	return []Pass{&Canonicalize{}, &Dedup{}}
}

// retarget points every label in labels that referred to old at first
// onto new, used whenever a pass replaces an instruction with a
// different first instruction in its expansion.
func retarget(labels map[casm.Label]*casm.Instr, old, new *casm.Instr) {
	for l, target := range labels {
		if target == old {
			labels[l] = new
		}
	}
}
