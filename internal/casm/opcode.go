// Package casm defines the CASM instruction set: the fixed opcode
// enumeration, each opcode's operand layout and wire width, and the
// read/write-set accessors the post-codegen passes use to enforce the
// prover's per-cell read-clock discipline.
package casm

// Opcode enumerates every CASM instruction form. Wire encoding for each
// opcode is a pure function of the opcode (no reflection), matching the
// VM's and prover's bit-exact expectations.
type Opcode int

const (
	// Felt arithmetic, fp-relative operands.
	StoreAddFpFp Opcode = iota
	StoreAddFpImm
	StoreSubFpFp
	StoreSubFpImm
	StoreMulFpFp
	StoreMulFpImm
	StoreDivFpFp
	StoreDivFpImm

	// Felt store-immediate, slot copy, double-dereference, compare.
	StoreImm
	StoreDerefFp
	StoreDoubleDerefFp
	StoreToDoubleDerefFpImm
	StoreLeFpImm

	// U32 two-limb arithmetic, fp-relative operands.
	U32StoreAddFpFp
	U32StoreAddFpImm
	U32StoreSubFpFp
	U32StoreSubFpImm
	U32StoreMulFpFp
	U32StoreMulFpImm
	U32StoreDivFpFp
	U32StoreDivFpImm
	U32StoreAndFpFp
	U32StoreAndFpImm
	U32StoreOrFpFp
	U32StoreOrFpImm
	U32StoreXorFpFp
	U32StoreXorFpImm

	// U32 compares.
	U32StoreEqFpFp
	U32StoreEqFpImm
	U32StoreLtFpFp
	U32StoreLtFpImm

	// Control flow.
	JumpAbsImm
	JumpRelImm
	JumpAbsFp
	JnzFpImm
	JnzFpFp
	CallAbsImm
	CallRelImm
	CallAbsFp
	Ret
)

var names = map[Opcode]string{
	StoreAddFpFp: "store_add_fp_fp", StoreAddFpImm: "store_add_fp_imm",
	StoreSubFpFp: "store_sub_fp_fp", StoreSubFpImm: "store_sub_fp_imm",
	StoreMulFpFp: "store_mul_fp_fp", StoreMulFpImm: "store_mul_fp_imm",
	StoreDivFpFp: "store_div_fp_fp", StoreDivFpImm: "store_div_fp_imm",
	StoreImm: "store_imm", StoreDerefFp: "store_deref_fp",
	StoreDoubleDerefFp:      "store_double_deref_fp",
	StoreToDoubleDerefFpImm: "store_to_double_deref_fp_imm",
	StoreLeFpImm:            "store_le_fp_imm",
	U32StoreAddFpFp:         "u32_store_add_fp_fp", U32StoreAddFpImm: "u32_store_add_fp_imm",
	U32StoreSubFpFp: "u32_store_sub_fp_fp", U32StoreSubFpImm: "u32_store_sub_fp_imm",
	U32StoreMulFpFp: "u32_store_mul_fp_fp", U32StoreMulFpImm: "u32_store_mul_fp_imm",
	U32StoreDivFpFp: "u32_store_div_fp_fp", U32StoreDivFpImm: "u32_store_div_fp_imm",
	U32StoreAndFpFp: "u32_store_and_fp_fp", U32StoreAndFpImm: "u32_store_and_fp_imm",
	U32StoreOrFpFp: "u32_store_or_fp_fp", U32StoreOrFpImm: "u32_store_or_fp_imm",
	U32StoreXorFpFp: "u32_store_xor_fp_fp", U32StoreXorFpImm: "u32_store_xor_fp_imm",
	U32StoreEqFpFp: "u32_store_eq_fp_fp", U32StoreEqFpImm: "u32_store_eq_fp_imm",
	U32StoreLtFpFp: "u32_store_lt_fp_fp", U32StoreLtFpImm: "u32_store_lt_fp_imm",
	JumpAbsImm: "jmp_abs_imm", JumpRelImm: "jmp_rel_imm", JumpAbsFp: "jmp_abs_fp",
	JnzFpImm: "jnz_fp_imm", JnzFpFp: "jnz_fp_fp",
	CallAbsImm: "call_abs_imm", CallRelImm: "call_rel_imm", CallAbsFp: "call_abs_fp",
	Ret: "ret",
}

func (op Opcode) String() string { return names[op] }

// Width reports how many base-field elements this opcode's encoding
// occupies; the PC advances by this amount.
func (op Opcode) Width() int {
	switch op {
	case U32StoreAndFpImm, U32StoreOrFpImm, U32StoreXorFpImm,
		U32StoreAddFpImm, U32StoreSubFpImm, U32StoreMulFpImm, U32StoreDivFpImm,
		U32StoreEqFpImm, U32StoreLtFpImm:
		return 2 // two 16-bit immediates (hi, lo) pack into a second limb
	default:
		return 1
	}
}

// IsU32 reports whether op operates on two-slot u32 operands.
func (op Opcode) IsU32() bool {
	return op >= U32StoreAddFpFp && op <= U32StoreLtFpImm
}
