package postpass

import (
	"zkcasm/internal/casm"
	"zkcasm/internal/casm/frame"
)

// Dedup enforces the prover's read-clock discipline: no instruction may
// read the same fp-relative cell through two different operands. When an
// instruction's two source ranges overlap, the second operand is staged
// through a fresh temporary first.
type Dedup struct {
	Rewritten int
}

func (d *Dedup) Name() string { return "dedup" }

func (d *Dedup) Run(instrs *casm.List, labels map[casm.Label]*casm.Instr, layout *frame.Layout) (bool, error) {
	changed := false
	for cur := instrs.Front(); cur != nil; cur = cur.Next() {
		reads := cur.ReadSlots()
		if len(reads) != 2 || !reads[0].Overlaps(reads[1]) {
			continue
		}
		width := reads[1].Len
		tmp, err := layout.ReserveStack(width)
		if err != nil {
			return changed, err
		}
		replacement := make([]*casm.Instr, 0, width+1)
		for i := int32(0); i < width; i++ {
			replacement = append(replacement, casm.NewInstr(
				casm.StoreDerefFp, casm.FpOperand(tmp+i), casm.FpOperand(reads[1].Start+i), casm.Operand{}))
		}
		rewritten := casm.NewInstr(cur.Op, cur.Dst, cur.Src0, casm.FpOperand(tmp))
		rewritten.Comment = cur.Comment
		replacement = append(replacement, rewritten)

		instrs.Replace(cur, replacement)
		retarget(labels, cur, replacement[0])
		changed = true
		d.Rewritten++
		cur = replacement[len(replacement)-1]
	}
	return changed, nil
}
