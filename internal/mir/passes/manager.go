// Package passes implements the MIR optimization pipeline: an ordered
// manager running constant folding, local value numbering, mem2reg, phi
// simplification, dead-code elimination, branch threading, and
// validation, iterated to a fixed point or a bounded budget.
package passes

import (
	"fmt"

	"zkcasm/internal/mir"
)

// Pass is a single optimization or analysis step over one function.
// Run mutates fn in place and reports whether it changed anything.
type Pass interface {
	Name() string
	Run(fn *mir.Function) (changed bool, err error)
}

// Options configures a Manager run.
type Options struct {
	// MaxIterations bounds how many times the full pass list is replayed
	// in search of a fixed point. Zero means 1 (run each pass exactly
	// once, in order).
	MaxIterations int
	// ValidateEachIteration interleaves the Validate pass after every
	// full sweep, matching the reference compiler's debug-mode behavior.
	ValidateEachIteration bool
}

// Manager runs a configured, ordered list of Pass implementations.
type Manager struct {
	passes []Pass
	opts   Options
}

// NewManager returns a Manager running passes in the given order.
func NewManager(opts Options, passes ...Pass) *Manager {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 1
	}
	return &Manager{passes: passes, opts: opts}
}

// Run executes the configured passes against fn, iterating the full list
// up to MaxIterations times or until a sweep makes no change, whichever
// comes first.
func (m *Manager) Run(fn *mir.Function) error {
	for iter := 0; iter < m.opts.MaxIterations; iter++ {
		anyChanged := false
		for _, p := range m.passes {
			changed, err := p.Run(fn)
			if err != nil {
				return fmt.Errorf("pass %q on function %q: %w", p.Name(), fn.Name, err)
			}
			anyChanged = anyChanged || changed
		}
		if m.opts.ValidateEachIteration {
			v := &Validate{}
			if _, err := v.Run(fn); err != nil {
				return fmt.Errorf("validation after iteration %d on function %q: %w", iter, fn.Name, err)
			}
		}
		if !anyChanged {
			break
		}
	}
	return nil
}

// DefaultPipeline returns the required pass list in the order spec'd:
// constant folding, local value numbering, mem2reg, phi simplification,
// dead-code elimination, branch threading. Validation is run separately
// (via Options.ValidateEachIteration or standalone) so tests can assert
// invariants between passes.
func DefaultPipeline() []Pass {
	return []Pass{
		&ConstFold{},
		&LVN{},
		&Mem2Reg{},
		&PhiSimplify{},
		&DCE{},
		&BranchThread{},
	}
}
