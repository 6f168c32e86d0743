// Package frame computes the fp-relative stack layout for a single MIR
// function: where each SSA value lives, and the high-water mark codegen
// draws fresh temporaries from.
package frame

import (
	"fmt"

	"zkcasm/internal/cerrors"
	"zkcasm/internal/mir"
)

// maxImmediate16 is the largest signed offset CASM's 16-bit immediate
// field can address; offsets beyond this range are a cerrors.LayoutError.
const maxImmediate16 = (1 << 15) - 1
const minImmediate16 = -(1 << 15)

// LayoutError is the frame package's own name for cerrors.LayoutError,
// the boundary-facing type every caller matches with errors.As.
type LayoutError = cerrors.LayoutError

// Layout maps a function's SSA values to signed fp-relative offsets:
// parameters at negative offsets, locals at non-negative offsets, with a
// reserved region at the top of the frame for codegen-introduced
// temporaries (cast staging, u32 immediate rewrites, operand-dedup
// copies).
type Layout struct {
	Function string
	offsets  map[mir.ValueID]int32
	highWater int32
}

// NewLayout creates an empty layout for the named function.
func NewLayout(function string) *Layout {
	return &Layout{Function: function, offsets: make(map[mir.ValueID]int32)}
}

// MapValue pins v to a specific, pre-chosen offset — used by codegen for
// parameter slots, for freshly reserved destination slots, and to bind a
// call's results onto the slots the callee returned them in. Returns a
// LayoutError if v is
// already bound to a different offset, or if off is out of the 16-bit
// immediate range.
func (l *Layout) MapValue(v mir.ValueID, off int32) error {
	if off > maxImmediate16 || off < minImmediate16 {
		return &LayoutError{Function: l.Function, Reason: fmt.Sprintf("offset %d for %s exceeds 16-bit immediate range", off, v)}
	}
	if existing, ok := l.offsets[v]; ok && existing != off {
		return &LayoutError{Function: l.Function, Reason: fmt.Sprintf("value %s already bound to offset %d, cannot rebind to %d", v, existing, off)}
	}
	l.offsets[v] = off
	if off+1 > l.highWater {
		l.highWater = off + 1
	}
	return nil
}

// ReserveStack advances the layout's high-water mark by n slots and
// returns the offset of the first slot reserved, for allocations without
// a specific SSA value (FrameAlloc locals, codegen temporaries).
func (l *Layout) ReserveStack(n int32) (int32, error) {
	off := l.highWater
	if off+n-1 > maxImmediate16 {
		return 0, &LayoutError{Function: l.Function, Reason: fmt.Sprintf("stack high-water mark %d exceeds 16-bit immediate range after reserving %d slots", off+n-1, n)}
	}
	l.highWater += n
	return off, nil
}

// Offset returns v's bound offset, and whether v has been mapped yet.
func (l *Layout) Offset(v mir.ValueID) (int32, bool) {
	off, ok := l.offsets[v]
	return off, ok
}

// MustOffset returns v's bound offset, panicking if v was never mapped —
// used once codegen has established the invariant that every value used
// past its defining instruction has already been laid out.
func (l *Layout) MustOffset(v mir.ValueID) int32 {
	off, ok := l.offsets[v]
	if !ok {
		panic(fmt.Sprintf("frame: value %s has no layout offset", v))
	}
	return off
}

// HighWater returns the current high-water mark (one past the last
// reserved slot).
func (l *Layout) HighWater() int32 { return l.highWater }
