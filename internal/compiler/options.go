package compiler

// Options configures a single CompileProgram invocation, mirroring
// wazevo's engine configuration struct shape: a small value type passed
// once at the top of the pipeline rather than threaded as separate
// arguments through every stage.
type Options struct {
	// MaxIterations bounds the optimization manager's fixed-point loop
	// (mir/passes.Manager); zero selects a sane default.
	MaxIterations int
	// ValidateEachIteration runs the structural validator after every
	// optimization sweep, not just once at the end. Expensive; intended
	// for compiler development and CI, not production builds.
	ValidateEachIteration bool
	// StopAtFirstError aborts CompileProgram as soon as one function
	// fails; otherwise every function is attempted and all resulting
	// diagnostics are returned together.
	StopAtFirstError bool
}

// DefaultOptions returns the options CompileProgram uses when none are
// supplied: a 32-iteration optimization budget, no per-iteration
// validation, and continue-past-errors diagnostics collection.
func DefaultOptions() Options {
	return Options{MaxIterations: 32, ValidateEachIteration: false, StopAtFirstError: false}
}
