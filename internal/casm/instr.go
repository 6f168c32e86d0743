package casm

import "fmt"

// SlotRange is a contiguous range of fp-relative stack slots, [Start,
// Start+Len).
type SlotRange struct {
	Start int32
	Len   int32
}

// Overlaps reports whether r and o share any slot.
func (r SlotRange) Overlaps(o SlotRange) bool {
	return r.Start < o.Start+o.Len && o.Start < r.Start+r.Len
}

// Instr is one CASM instruction: an opcode, up to three operands (two
// sources and a destination), and an optional human-readable comment. It
// is a doubly-linked-list node so post-codegen passes can splice in
// replacement instructions (e.g. operand-deduplication's temp copies)
// without reindexing a whole function's instruction stream.
type Instr struct {
	Op      Opcode
	Dst     Operand
	Src0    Operand
	Src1    Operand
	Comment string

	prev, next *Instr
}

// NewInstr constructs a detached instruction node.
func NewInstr(op Opcode, dst, src0, src1 Operand) *Instr {
	return &Instr{Op: op, Dst: dst, Src0: src0, Src1: src1}
}

func (i *Instr) Next() *Instr { return i.next }
func (i *Instr) Prev() *Instr { return i.prev }

func (i *Instr) String() string {
	s := fmt.Sprintf("%s %s, %s, %s", i.Op, i.Dst, i.Src0, i.Src1)
	if i.Comment != "" {
		s += " ; " + i.Comment
	}
	return s
}

// slotLen returns how many consecutive slots a single fp operand of this
// instruction's opcode occupies: 2 for u32 two-limb opcodes, 1 otherwise.
func (i *Instr) slotLen() int32 {
	if i.Op.IsU32() {
		return 2
	}
	return 1
}

// ReadSlots returns the fp-relative slot ranges this instruction reads,
// in source order (Src0 then Src1). Immediate and label operands
// contribute nothing: the prover's read-clock only tracks memory cells.
func (i *Instr) ReadSlots() []SlotRange {
	var out []SlotRange
	for _, op := range [...]Operand{i.Src0, i.Src1} {
		if op.Kind == OperandFp {
			out = append(out, SlotRange{Start: op.Offset, Len: i.slotLen()})
		}
	}
	// StoreDoubleDerefFp/StoreToDoubleDerefFpImm additionally read the
	// pointer operand itself via Src0 above (the dynamically-addressed
	// cell it dereferences is not a static fp slot and so is outside the
	// dedup pass's scope, matching §4.8's "same cell in a single
	// instruction" rule applying to the instruction's fixed operands).
	return out
}

// WriteSlots returns the fp-relative slot range this instruction writes,
// if any.
func (i *Instr) WriteSlots() []SlotRange {
	if i.Dst.Kind == OperandFp {
		return []SlotRange{{Start: i.Dst.Offset, Len: i.slotLen()}}
	}
	return nil
}

// List is a doubly-linked list of Instr, the unit codegen builds one per
// function and the post-passes and assembler consume.
type List struct {
	head, tail *Instr
	len        int
}

// Append adds inst to the end of the list.
func (l *List) Append(inst *Instr) {
	if l.tail == nil {
		l.head, l.tail = inst, inst
	} else {
		l.tail.next = inst
		inst.prev = l.tail
		l.tail = inst
	}
	l.len++
}

// InsertBefore splices newInst immediately before at.
func (l *List) InsertBefore(at, newInst *Instr) {
	newInst.prev = at.prev
	newInst.next = at
	if at.prev != nil {
		at.prev.next = newInst
	} else {
		l.head = newInst
	}
	at.prev = newInst
	l.len++
}

// Replace swaps old for the instructions in replacement, preserving list
// order; replacement may be empty (pure removal) or contain several
// instructions (expansion).
func (l *List) Replace(old *Instr, replacement []*Instr) {
	for _, r := range replacement {
		l.InsertBefore(old, r)
	}
	l.remove(old)
}

func (l *List) remove(inst *Instr) {
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		l.head = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		l.tail = inst.prev
	}
	l.len--
}

// Front returns the first instruction, or nil if the list is empty.
func (l *List) Front() *Instr { return l.head }

// Len returns the number of instructions in the list.
func (l *List) Len() int { return l.len }

// Slice materializes the list into a plain slice, in order. Used by the
// assembler, which needs random access for address computation.
func (l *List) Slice() []*Instr {
	out := make([]*Instr, 0, l.len)
	for i := l.head; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// FromSlice builds a List from an ordered slice of freshly constructed,
// detached instructions.
func FromSlice(insts []*Instr) *List {
	l := &List{}
	for _, i := range insts {
		i.prev, i.next = nil, nil
		l.Append(i)
	}
	return l
}
