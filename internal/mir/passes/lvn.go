package passes

import (
	"fmt"

	"zkcasm/internal/mir"
)

// LVN is local value numbering: block-local common-subexpression
// elimination. Within each block it walks instructions, maps every pure
// instruction to a structural key, and rewrites later duplicates to the
// first definition found. It never crosses block boundaries.
type LVN struct{}

func (*LVN) Name() string { return "local-value-numbering" }

func (p *LVN) Run(fn *mir.Function) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks() {
		seen := make(map[string]mir.ValueID)
		rewrites := make(map[mir.ValueID]mir.ValueID)
		for _, inst := range blk.Instructions {
			rewriteOperands(inst, rewrites)

			if !inst.IsPure() {
				continue
			}
			dest, ok := inst.Destination()
			if !ok {
				continue
			}
			key, keyable := structuralKey(inst)
			if !keyable {
				continue
			}
			if prior, ok := seen[key]; ok {
				rewrites[dest] = prior
				changed = true
			} else {
				seen[key] = dest
			}
		}

		if len(rewrites) == 0 {
			continue
		}
		var kept []mir.Instruction
		for _, inst := range blk.Instructions {
			if dest, ok := inst.Destination(); ok {
				if _, dropped := rewrites[dest]; dropped {
					continue
				}
			}
			kept = append(kept, inst)
		}
		blk.Instructions = kept
	}
	return changed, nil
}

func rewriteOperands(inst mir.Instruction, rewrites map[mir.ValueID]mir.ValueID) {
	if len(rewrites) == 0 {
		return
	}
	for old, new := range rewrites {
		inst.ReplaceUses(old, new)
	}
}

// structuralKey builds a string uniquely identifying a pure instruction's
// operator, operands, and result type, so two occurrences with identical
// keys are provably redundant within the same block. Literal operands are
// excluded from keying per spec: mixed literal/operand expressions are
// left to constant folding instead.
func structuralKey(inst mir.Instruction) (string, bool) {
	switch in := inst.(type) {
	case *mir.BinaryOp:
		if in.Left.IsLiteral() || in.Right.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("bin:%s:%s:%s", in.Op, in.Left, in.Right), true
	case *mir.UnaryOp:
		if in.Source.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("un:%s:%s", in.Op, in.Source), true
	case *mir.GetElementPtr:
		if in.Base.IsLiteral() || in.Index.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("gep:%s:%s", in.Base, in.Index), true
	case *mir.ExtractTupleElement:
		if in.Tuple.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("extup:%s:%d", in.Tuple, in.Index), true
	case *mir.ExtractStructField:
		if in.Base.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("exfield:%s:%s", in.Base, in.FieldName), true
	case *mir.ArrayIndex:
		if in.Array.IsLiteral() || in.Index.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("aidx:%s:%s", in.Array, in.Index), true
	case *mir.Cast:
		if in.Source.IsLiteral() {
			return "", false
		}
		return fmt.Sprintf("cast:%s:%s:%s", in.Source, in.SourceTyp, in.TargetTyp), true
	default:
		return "", false
	}
}
