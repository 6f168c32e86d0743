package passes

import "zkcasm/internal/mir"

// DCE removes pure instructions whose destination is never used,
// iterating until a sweep removes nothing (eliminating one dead
// instruction can make its sole operand's definition dead in turn).
type DCE struct{}

func (*DCE) Name() string { return "dead-code-elimination" }

func (p *DCE) Run(fn *mir.Function) (bool, error) {
	anyChanged := false
	for {
		used := liveValues(fn)
		changed := false
		for _, blk := range fn.Blocks() {
			var kept []mir.Instruction
			for _, inst := range blk.Instructions {
				dest, hasDest := inst.Destination()
				if hasDest && inst.IsPure() && !used[dest] {
					changed = true
					continue
				}
				kept = append(kept, inst)
			}
			if len(kept) != len(blk.Instructions) {
				blk.Instructions = kept
			}
		}
		if !changed {
			break
		}
		anyChanged = true
	}
	return anyChanged, nil
}

// liveValues computes the set of ValueIDs read by some instruction,
// terminator condition, or return.
func liveValues(fn *mir.Function) map[mir.ValueID]bool {
	live := make(map[mir.ValueID]bool)
	for _, blk := range fn.Blocks() {
		for _, inst := range blk.Instructions {
			for _, v := range inst.UsedValues() {
				live[v] = true
			}
		}
		switch term := blk.Terminator.(type) {
		case *mir.If:
			if !term.Cond.IsLiteral() {
				live[term.Cond.ID()] = true
			}
		case *mir.Return:
			for _, v := range term.Values {
				if !v.IsLiteral() {
					live[v.ID()] = true
				}
			}
		}
	}
	return live
}
