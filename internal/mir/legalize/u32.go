// Package legalize rewrites MIR instructions the CASM backend cannot
// emit directly into an equivalent sequence the backend does support.
// Currently this is limited to u32 comparisons: the backend only emits
// U32Eq and U32Less natively.
package legalize

import (
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// U32Comparisons rewrites Greater/GreaterEqual/LessEqual/Neq on U32
// operands into the legal {U32Eq, U32Less} subset plus an explicit
// boolean Not, per:
//
//	a >  b  ⇒  b < a
//	a >= b  ⇒  ¬(a < b)
//	a <= b  ⇒  ¬(b < a)
//	a != b  ⇒  ¬(a == b)
//
// Runs after the main optimization pipeline and before phi elimination.
type U32Comparisons struct{}

func (*U32Comparisons) Name() string { return "legalize-u32-comparisons" }

func (p *U32Comparisons) Run(fn *mir.Function) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks() {
		var out []mir.Instruction
		for _, inst := range blk.Instructions {
			bin, ok := inst.(*mir.BinaryOp)
			if !ok {
				out = append(out, inst)
				continue
			}
			switch bin.Op {
			case mir.U32Greater:
				// a > b  ⇒  b < a
				out = append(out, &mir.BinaryOp{Op: mir.U32Less, Dest: bin.Dest, Left: bin.Right, Right: bin.Left})
				changed = true
			case mir.U32GreaterEqual:
				// a >= b  ⇒  ¬(a < b)
				out = append(out, negatedComparison(fn, bin, mir.U32Less, bin.Left, bin.Right)...)
				changed = true
			case mir.U32LessEqual:
				// a <= b  ⇒  ¬(b < a)
				out = append(out, negatedComparison(fn, bin, mir.U32Less, bin.Right, bin.Left)...)
				changed = true
			case mir.U32Neq:
				// a != b  ⇒  ¬(a == b)
				out = append(out, negatedComparison(fn, bin, mir.U32Eq, bin.Left, bin.Right)...)
				changed = true
			default:
				out = append(out, inst)
			}
		}
		blk.Instructions = out
	}
	return changed, nil
}

// negatedComparison emits `tmp = op(left, right)` followed by
// `dest = not tmp`, preserving bin's original destination and comment.
func negatedComparison(fn *mir.Function, bin *mir.BinaryOp, op mir.BinOp, left, right mir.Value) []mir.Instruction {
	tmp := fn.NewValue(mirtypes.NewBool())
	cmp := &mir.BinaryOp{Op: op, Dest: tmp, Left: left, Right: right}
	not := &mir.UnaryOp{Op: mir.Not, Dest: bin.Dest, Source: mir.Operand(tmp)}
	not.SetComment(bin.Comment())
	return []mir.Instruction{cmp, not}
}
