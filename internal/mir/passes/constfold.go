package passes

import (
	"fmt"

	"zkcasm/internal/m31"
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// ConstFold folds BinaryOp/UnaryOp instructions whose operands are all
// literals. Felt arithmetic uses M31 semantics; u32 arithmetic wraps with
// two's-complement semantics. Division by zero fails the pass with an
// error tied to the offending instruction, rather than silently skipping
// it, so callers see a precise diagnostic.
type ConstFold struct{}

func (*ConstFold) Name() string { return "const-fold" }

func (p *ConstFold) Run(fn *mir.Function) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks() {
		for i, inst := range blk.Instructions {
			folded, err := foldInstruction(fn, inst)
			if err != nil {
				return changed, err
			}
			if folded != nil {
				blk.Instructions[i] = folded
				changed = true
			}
		}
	}
	return changed, nil
}

func foldInstruction(fn *mir.Function, inst mir.Instruction) (mir.Instruction, error) {
	switch in := inst.(type) {
	case *mir.BinaryOp:
		if in.Left.IsLiteral() && in.Right.IsLiteral() {
			return foldBinary(fn, in)
		}
	case *mir.UnaryOp:
		if in.Source.IsLiteral() {
			return foldUnary(in)
		}
	}
	return nil, nil
}

func foldBinary(fn *mir.Function, in *mir.BinaryOp) (mir.Instruction, error) {
	ty, _ := fn.TypeOf(in.Dest)
	if ll, rl := in.Left.Literal(), in.Right.Literal(); ll.Kind == mir.LiteralBool || rl.Kind == mir.LiteralBool {
		a, b := ll.AsBool(), rl.AsBool()
		results := map[mir.BinOp]bool{mir.And: a && b, mir.Or: a || b, mir.Eq: a == b, mir.Neq: a != b}
		v, ok := results[in.Op]
		if !ok {
			return nil, fmt.Errorf("folding %s: operator %s is not defined on bool literals", in, in.Op)
		}
		return assignFold(in.Dest, ty, b2i(v), true), nil
	}
	if in.Op.IsU32() {
		l := uint32(in.Left.Literal().AsInt())
		r := uint32(in.Right.Literal().AsInt())
		v, isBool, err := foldU32(in.Op, l, r)
		if err != nil {
			return nil, fmt.Errorf("folding %s: %w", in, err)
		}
		return assignFold(in.Dest, ty, v, isBool), nil
	}
	l := m31.FromInt64(in.Left.Literal().AsInt())
	r := m31.FromInt64(in.Right.Literal().AsInt())
	v, isBool, err := foldFelt(in.Op, l, r)
	if err != nil {
		return nil, fmt.Errorf("folding %s: %w", in, err)
	}
	return assignFold(in.Dest, ty, v, isBool), nil
}

func assignFold(dest mir.ValueID, ty mirtypes.Type, intVal int64, isBool bool) mir.Instruction {
	var lit mir.Literal
	if isBool {
		lit = mir.BoolLiteral(intVal != 0)
	} else {
		lit = mir.IntLiteral(intVal)
	}
	return &mir.Assign{Dest: dest, Source: mir.Lit(lit), Type: ty}
}

func foldFelt(op mir.BinOp, l, r m31.Elem) (result int64, isBool bool, err error) {
	switch op {
	case mir.Add:
		return int64(m31.Add(l, r)), false, nil
	case mir.Sub:
		return int64(m31.Sub(l, r)), false, nil
	case mir.Mul:
		return int64(m31.Mul(l, r)), false, nil
	case mir.Div:
		if m31.IsZero(r) {
			return 0, false, fmt.Errorf("division by zero")
		}
		return int64(m31.Div(l, r)), false, nil
	case mir.Eq:
		return b2i(l == r), true, nil
	case mir.Neq:
		return b2i(l != r), true, nil
	default:
		return 0, false, fmt.Errorf("felt operator %s has no total order for constant folding", op)
	}
}

func foldU32(op mir.BinOp, l, r uint32) (result int64, isBool bool, err error) {
	switch op {
	case mir.U32Add:
		return int64(l + r), false, nil
	case mir.U32Sub:
		return int64(l - r), false, nil
	case mir.U32Mul:
		return int64(l * r), false, nil
	case mir.U32Div:
		if r == 0 {
			return 0, false, fmt.Errorf("division by zero")
		}
		return int64(l / r), false, nil
	case mir.U32Rem:
		if r == 0 {
			return 0, false, fmt.Errorf("division by zero")
		}
		return int64(l % r), false, nil
	case mir.U32BitwiseAnd:
		return int64(l & r), false, nil
	case mir.U32BitwiseOr:
		return int64(l | r), false, nil
	case mir.U32BitwiseXor:
		return int64(l ^ r), false, nil
	case mir.U32Eq:
		return b2i(l == r), true, nil
	case mir.U32Neq:
		return b2i(l != r), true, nil
	case mir.U32Less:
		return b2i(l < r), true, nil
	case mir.U32Greater:
		return b2i(l > r), true, nil
	case mir.U32LessEqual:
		return b2i(l <= r), true, nil
	case mir.U32GreaterEqual:
		return b2i(l >= r), true, nil
	default:
		return 0, false, fmt.Errorf("u32 operator %s unsupported for constant folding", op)
	}
}

func foldUnary(in *mir.UnaryOp) (mir.Instruction, error) {
	lit := in.Source.Literal()
	switch in.Op {
	case mir.Neg:
		if lit.Kind == mir.LiteralBool {
			return nil, fmt.Errorf("neg applied to a bool literal")
		}
		v := m31.Neg(m31.FromInt64(lit.AsInt()))
		return &mir.Assign{Dest: in.Dest, Source: mir.Lit(mir.IntLiteral(int64(v)))}, nil
	case mir.Not:
		return &mir.Assign{Dest: in.Dest, Source: mir.Lit(mir.BoolLiteral(!lit.AsBool()))}, nil
	}
	return nil, fmt.Errorf("unknown unary operator %s", in.Op)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
