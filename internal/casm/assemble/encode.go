package assemble

import (
	"encoding/binary"

	"zkcasm/internal/casm"
	"zkcasm/internal/cerrors"
)

// operandTag discriminates an encoded operand's shape. Labels never
// reach encoding: Link resolves every one to an immediate displacement
// first.
type operandTag byte

const (
	tagNone operandTag = iota
	tagFp
	tagImm
)

// Encode serializes a linked Program into the VM's binary format: a
// 4-byte little-endian instruction count, followed by each instruction
// as a 4-byte opcode tag and three fixed-shape operand encodings
// (1-byte kind tag, then 4 bytes for an fp offset or 8 bytes for an
// immediate), then a 4-byte symbol count followed by a symbol table of
// (name length, name bytes, entry pc, param slots, ret slots) records.
func Encode(p *Program) ([]byte, error) {
	var buf []byte
	buf = appendUint32(buf, uint32(len(p.Instructions)))
	for _, in := range p.Instructions {
		enc, err := encodeInstr(in)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	buf = appendUint32(buf, uint32(len(p.Symbols)))
	for _, s := range p.Symbols {
		buf = appendUint32(buf, uint32(len(s.Name)))
		buf = append(buf, s.Name...)
		buf = appendUint32(buf, uint32(s.EntryPC))
		buf = appendUint32(buf, uint32(s.ParamSlots))
		buf = appendUint32(buf, uint32(s.RetSlots))
	}
	return buf, nil
}

func encodeInstr(in *casm.Instr) ([]byte, error) {
	var out []byte
	out = appendUint32(out, uint32(in.Op))
	for _, op := range [...]casm.Operand{in.Dst, in.Src0, in.Src1} {
		enc, err := encodeOperand(op)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeOperand(op casm.Operand) ([]byte, error) {
	switch op.Kind {
	case casm.OperandNone:
		return []byte{byte(tagNone)}, nil
	case casm.OperandFp:
		out := []byte{byte(tagFp)}
		out = appendUint32(out, uint32(op.Offset))
		return out, nil
	case casm.OperandImm:
		out := []byte{byte(tagImm)}
		out = appendUint64(out, uint64(op.Imm))
		return out, nil
	default:
		return nil, &cerrors.LinkError{Symbol: string(op.Label), Reason: "label operand reached binary encoding unresolved"}
	}
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
