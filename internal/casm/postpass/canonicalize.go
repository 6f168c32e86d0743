package postpass

import (
	"zkcasm/internal/casm"
	"zkcasm/internal/casm/frame"
)

// Canonicalize collapses multiply-by-identity and multiply-by-zero
// immediate forms: `mul x, 1` becomes `add x, 0` and `mul x, 0` becomes
// a zeroing form, for both felt and u32 opcodes.
// Rewrites mutate the instruction node in place, so any label already
// pointing at it keeps pointing at the (now-canonicalized) instruction —
// no list splice needed.
type Canonicalize struct {
	Rewritten int
}

func (c *Canonicalize) Name() string { return "canonicalize" }

func (c *Canonicalize) Run(instrs *casm.List, labels map[casm.Label]*casm.Instr, layout *frame.Layout) (bool, error) {
	changed := false
	for cur := instrs.Front(); cur != nil; cur = cur.Next() {
		if c.rewriteOne(cur) {
			changed = true
			c.Rewritten++
		}
	}
	return changed, nil
}

func (c *Canonicalize) rewriteOne(in *casm.Instr) bool {
	if in.Src1.Kind != casm.OperandImm {
		return false
	}
	switch in.Op {
	case casm.StoreMulFpImm:
		switch in.Src1.Imm {
		case 1:
			in.Op, in.Src1 = casm.StoreAddFpImm, casm.ImmOperand(0)
			return true
		case 0:
			in.Op, in.Src0, in.Src1 = casm.StoreImm, casm.ImmOperand(0), casm.Operand{}
			return true
		}
	case casm.U32StoreMulFpImm:
		switch in.Src1.Imm {
		case 1:
			in.Op, in.Src1 = casm.U32StoreAddFpImm, casm.ImmOperand(0)
			return true
		case 0:
			// No native u32 store-immediate opcode exists; self-xor is the
			// standard zeroing idiom. It reads the same slots twice, so
			// Dedup (run after this pass) stages the second operand.
			in.Op, in.Src1 = casm.U32StoreXorFpFp, in.Src0
			return true
		}
	}
	return false
}
