package passes

import (
	"fmt"
	"os"

	"zkcasm/internal/mir"
)

// Validate checks the structural invariants every pass must preserve:
// single definition per ValueId, well-formed phi placement and operand
// count, CFG predecessor/terminator consistency, and aggregate index
// bounds. It never mutates fn and always reports changed=false.
//
// Set MIR_VALIDATE_DEBUG=1 to print each check as it runs.
type Validate struct{}

func (*Validate) Name() string { return "validate" }

func (v *Validate) Run(fn *mir.Function) (bool, error) {
	debug := os.Getenv("MIR_VALIDATE_DEBUG") != ""
	trace := func(format string, args ...any) {
		if debug {
			fmt.Fprintf(os.Stderr, "[mir-validate] %s: "+format+"\n", append([]any{fn.Name}, args...)...)
		}
	}

	defined := make(map[mir.ValueID]bool)
	trace("checking single definition")
	for _, blk := range fn.Blocks() {
		for _, inst := range blk.Instructions {
			dest, ok := inst.Destination()
			if !ok {
				continue
			}
			if defined[dest] {
				return false, fmt.Errorf("value %s defined more than once", dest)
			}
			defined[dest] = true
		}
	}

	trace("checking CFG consistency")
	succByBlock := make(map[mir.BasicBlockID][]mir.BasicBlockID)
	for _, blk := range fn.Blocks() {
		if blk.Terminator == nil {
			return false, fmt.Errorf("block %s has no terminator", blk.ID)
		}
		for _, t := range blk.Terminator.Targets() {
			succByBlock[blk.ID] = append(succByBlock[blk.ID], t)
		}
	}
	predSets := make(map[mir.BasicBlockID]map[mir.BasicBlockID]bool)
	for pred, succs := range succByBlock {
		for _, s := range succs {
			if predSets[s] == nil {
				predSets[s] = make(map[mir.BasicBlockID]bool)
			}
			predSets[s][pred] = true
		}
	}
	for _, blk := range fn.Blocks() {
		want := predSets[blk.ID]
		got := blk.Preds()
		if len(got) != len(want) {
			return false, fmt.Errorf("block %s: predecessor set size %d does not match terminator-derived set size %d", blk.ID, len(got), len(want))
		}
		for _, p := range got {
			if !want[p] {
				return false, fmt.Errorf("block %s: recorded predecessor %s has no terminator edge into this block", blk.ID, p)
			}
		}
	}

	trace("checking phi placement and source completeness")
	for _, blk := range fn.Blocks() {
		seenNonPhi := false
		for _, inst := range blk.Instructions {
			phi, isPhi := inst.(*mir.Phi)
			if isPhi {
				if seenNonPhi {
					return false, fmt.Errorf("block %s: phi %s follows a non-phi instruction", blk.ID, phi.Dest)
				}
				if blk.Sealed {
					preds := blk.Preds()
					if len(phi.Sources) != len(preds) {
						return false, fmt.Errorf("block %s: phi %s has %d sources, want one per predecessor (%d)", blk.ID, phi.Dest, len(phi.Sources), len(preds))
					}
					for _, p := range preds {
						if _, ok := phi.SourceFor(p); !ok {
							return false, fmt.Errorf("block %s: phi %s has no source for predecessor %s", blk.ID, phi.Dest, p)
						}
					}
				}
			} else {
				seenNonPhi = true
			}
		}
	}

	return false, nil
}
