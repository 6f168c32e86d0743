package phielim

import "zkcasm/internal/mir"

// sequentialize orders a set of parallel copies (all destinations
// distinct) into a valid sequential instruction order. A copy is safe to
// emit once its source is no longer itself a pending destination — i.e.
// nothing will clobber it before it's read. Remaining cycles (every copy
// in the cycle depends on another copy in the same cycle) are broken with
// a fresh temporary per spec: save the first source, shift the cycle,
// close with the temporary.
func sequentialize(fn *mir.Function, copies []copyOp) ([]mir.Instruction, int) {
	pending := make(map[mir.ValueID]copyOp, len(copies))
	order := make([]mir.ValueID, 0, len(copies))
	for _, c := range copies {
		if c.src.IsLiteral() || c.src.ID() != c.dest {
			pending[c.dest] = c
			order = append(order, c.dest)
		}
		// A copy whose source equals its own destination is already a
		// no-op (the phi's value didn't change on this edge) and is
		// dropped rather than scheduled.
	}

	isPendingDest := func(v mir.Value) (mir.ValueID, bool) {
		if v.IsLiteral() {
			return 0, false
		}
		_, ok := pending[v.ID()]
		return v.ID(), ok
	}

	var result []mir.Instruction
	cyclesBroken := 0

	for len(pending) > 0 {
		progressed := false
		for _, d := range order {
			c, ok := pending[d]
			if !ok {
				continue
			}
			if _, blocked := isPendingDest(c.src); !blocked {
				result = append(result, &mir.Assign{Dest: c.dest, Source: c.src, Type: c.ty})
				delete(pending, d)
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// Every remaining copy's source is itself a pending destination:
		// at least one cycle. Pick an arbitrary remaining destination and
		// trace the cycle it belongs to.
		var start mir.ValueID
		for _, d := range order {
			if _, ok := pending[d]; ok {
				start = d
				break
			}
		}
		cycle := []copyOp{pending[start]}
		cur := pending[start].src.ID()
		for cur != start {
			next := pending[cur]
			cycle = append(cycle, next)
			cur = next.src.ID()
		}

		first := cycle[0]
		tmp := fn.NewValue(first.ty)
		result = append(result, &mir.Assign{Dest: tmp, Source: first.src, Type: first.ty})
		for i := 1; i < len(cycle); i++ {
			result = append(result, &mir.Assign{Dest: cycle[i].dest, Source: cycle[i].src, Type: cycle[i].ty})
		}
		result = append(result, &mir.Assign{Dest: first.dest, Source: mir.Operand(tmp), Type: first.ty})

		for _, c := range cycle {
			delete(pending, c.dest)
		}
		cyclesBroken++
	}

	return result, cyclesBroken
}

func insertBeforeTerminator(blk *mir.BasicBlock, insts []mir.Instruction) {
	for _, inst := range insts {
		blk.Append(inst)
	}
}

func removePhi(blk *mir.BasicBlock, phi *mir.Phi) {
	for i, inst := range blk.Instructions {
		if p, ok := inst.(*mir.Phi); ok && p == phi {
			blk.RemoveInstructionAt(i)
			return
		}
	}
}
