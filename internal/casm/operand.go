package casm

import "fmt"

// OperandKind discriminates an instruction operand's addressing mode.
type OperandKind int

const (
	// OperandNone marks an unused operand slot.
	OperandNone OperandKind = iota
	// OperandFp is an fp-relative slot: [fp+Offset].
	OperandFp
	// OperandImm is a compile-time immediate value.
	OperandImm
	// OperandLabel is a symbolic branch/call target, resolved by the
	// assembler to a pc-relative displacement (target pc minus own pc).
	OperandLabel
)

// Operand is a single instruction operand: an fp-relative slot, an
// immediate, or (for branches/calls) a symbolic label.
type Operand struct {
	Kind   OperandKind
	Offset int32 // valid when Kind == OperandFp; signed, 16-bit range enforced by frame.Layout
	Imm    int64 // valid when Kind == OperandImm
	Label  Label // valid when Kind == OperandLabel
}

// FpOperand returns an fp-relative operand at the given signed offset.
func FpOperand(offset int32) Operand { return Operand{Kind: OperandFp, Offset: offset} }

// ImmOperand returns an immediate operand.
func ImmOperand(v int64) Operand { return Operand{Kind: OperandImm, Imm: v} }

// LabelOperand returns a symbolic label operand.
func LabelOperand(l Label) Operand { return Operand{Kind: OperandLabel, Label: l} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandFp:
		if o.Offset >= 0 {
			return fmt.Sprintf("[fp+%d]", o.Offset)
		}
		return fmt.Sprintf("[fp%d]", o.Offset)
	case OperandImm:
		return fmt.Sprintf("%d", o.Imm)
	case OperandLabel:
		return string(o.Label)
	default:
		return "<none>"
	}
}

// Label names a not-yet-resolved branch or call target within a function
// (or, for calls, another function's entry point).
type Label string
