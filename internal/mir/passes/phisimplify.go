package passes

import "zkcasm/internal/mir"

// PhiSimplify removes trivial phis across the whole function: a phi
// whose non-self sources all agree on a single value is replaced
// everywhere by that value. Iterated to a fixed point because removing
// one trivial phi can make another, downstream phi trivial too.
type PhiSimplify struct{}

func (*PhiSimplify) Name() string { return "phi-simplify" }

func (p *PhiSimplify) Run(fn *mir.Function) (bool, error) {
	anyChanged := false
	for {
		changed := false
		for _, blk := range fn.Blocks() {
			converted := false
			for _, phi := range blk.Phis() {
				if same, ok := trivialValue(phi); ok {
					replaceInPlaceWithAssign(blk, phi, same)
					converted = true
				}
			}
			if converted {
				resettlePhiPrefix(blk)
				changed = true
			}
		}
		if !changed {
			break
		}
		anyChanged = true
	}
	return anyChanged, nil
}

// replaceInPlaceWithAssign turns a trivial phi into an Assign of the same
// destination, which tolerates both operand and literal sources uniformly
// and needs no function-wide rewrite: every other instruction still
// refers to phi.Dest, and Dest now carries the agreed-upon value.
func replaceInPlaceWithAssign(blk *mir.BasicBlock, phi *mir.Phi, value mir.Value) {
	for i, inst := range blk.Instructions {
		if inst == mir.Instruction(phi) {
			blk.Instructions[i] = &mir.Assign{Dest: phi.Dest, Source: value, Type: phi.Type}
			return
		}
	}
}

// resettlePhiPrefix restores the invariant that all Phi instructions
// precede all non-Phi instructions, after one or more phis in the prefix
// were converted to Assign in place.
func resettlePhiPrefix(blk *mir.BasicBlock) {
	phis := make([]mir.Instruction, 0, len(blk.Instructions))
	rest := make([]mir.Instruction, 0, len(blk.Instructions))
	for _, inst := range blk.Instructions {
		if _, ok := inst.(*mir.Phi); ok {
			phis = append(phis, inst)
		} else {
			rest = append(rest, inst)
		}
	}
	blk.Instructions = append(phis, rest...)
}

// trivialValue reports the single non-self value a phi's sources agree
// on, if any.
func trivialValue(phi *mir.Phi) (mir.Value, bool) {
	var same mir.Value
	haveSame := false
	for _, src := range phi.Sources {
		if !src.Value.IsLiteral() && src.Value.ID() == phi.Dest {
			continue // self-reference through a back edge
		}
		if haveSame && !valuesEqual(same, src.Value) {
			return mir.Value{}, false
		}
		same = src.Value
		haveSame = true
	}
	if !haveSame {
		return mir.Value{}, false
	}
	return same, true
}

func valuesEqual(a, b mir.Value) bool {
	if a.IsLiteral() != b.IsLiteral() {
		return false
	}
	if a.IsLiteral() {
		la, lb := a.Literal(), b.Literal()
		return la.Kind == lb.Kind && la.Int == lb.Int && la.Bool == lb.Bool
	}
	return a.ID() == b.ID()
}

