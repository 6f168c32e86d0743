// Package mirtypes defines the MIR type universe and the DataLayout
// function mapping a MIR type to its slot count on the CASM stack frame.
package mirtypes

import (
	"fmt"
	"strings"
)

// Kind discriminates the members of the MIR type sum.
type Kind int

const (
	Unknown Kind = iota
	Error
	Felt
	Bool
	U32
	Pointer
	FixedArray
	Tuple
	Struct
	Function
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Error:
		return "error"
	case Felt:
		return "felt"
	case Bool:
		return "bool"
	case U32:
		return "u32"
	case Pointer:
		return "pointer"
	case FixedArray:
		return "array"
	case Tuple:
		return "tuple"
	case Struct:
		return "struct"
	case Function:
		return "function"
	default:
		return "invalid"
	}
}

// StructField is a single named field of a Struct type.
type StructField struct {
	Name string
	Type Type
}

// Signature describes a function's parameter and return types, used by
// Call instructions and by Function-kind values.
type Signature struct {
	Params  []Type
	Returns []Type
}

// Type is a MIR type. The zero Type is Unknown.
type Type struct {
	kind Kind

	// Pointee is set when kind == Pointer.
	pointee *Type

	// Elem and Len are set when kind == FixedArray.
	elem *Type
	len  int

	// Elements is set when kind == Tuple.
	elements []Type

	// Name and Fields are set when kind == Struct.
	name   string
	fields []StructField

	// Sig is set when kind == Function.
	sig *Signature
}

func (t Type) Kind() Kind { return t.kind }

// NewFelt returns the Felt type.
func NewFelt() Type { return Type{kind: Felt} }

// NewBool returns the Bool type.
func NewBool() Type { return Type{kind: Bool} }

// NewU32 returns the U32 type.
func NewU32() Type { return Type{kind: U32} }

// NewUnknown returns the placeholder Unknown type used before type
// inference has run on a value.
func NewUnknown() Type { return Type{kind: Unknown} }

// NewError returns the sentinel Error type used to mark ill-typed
// expressions recovered from by the external semantic layer.
func NewError() Type { return Type{kind: Error} }

// NewPointer returns a pointer type to the given pointee. Pointer size is
// always 1 slot regardless of the pointee's size; dereferencing is always
// explicit via Load/Store/GetElementPtr.
func NewPointer(pointee Type) Type {
	p := pointee
	return Type{kind: Pointer, pointee: &p}
}

// Pointee returns the pointee type of a Pointer type. Panics if t is not
// a Pointer.
func (t Type) Pointee() Type {
	if t.kind != Pointer {
		panic("mirtypes: Pointee called on non-pointer type " + t.String())
	}
	return *t.pointee
}

// NewFixedArray returns a FixedArray type of n elements of type elem.
func NewFixedArray(elem Type, n int) Type {
	e := elem
	return Type{kind: FixedArray, elem: &e, len: n}
}

// Elem returns the element type of a FixedArray. Panics if t is not a
// FixedArray.
func (t Type) Elem() Type {
	if t.kind != FixedArray {
		panic("mirtypes: Elem called on non-array type " + t.String())
	}
	return *t.elem
}

// Len returns the element count of a FixedArray. Panics if t is not a
// FixedArray.
func (t Type) Len() int {
	if t.kind != FixedArray {
		panic("mirtypes: Len called on non-array type " + t.String())
	}
	return t.len
}

// NewTuple returns a Tuple type over the given element types.
func NewTuple(elements ...Type) Type {
	return Type{kind: Tuple, elements: append([]Type(nil), elements...)}
}

// Elements returns the element types of a Tuple. Panics if t is not a
// Tuple.
func (t Type) Elements() []Type {
	if t.kind != Tuple {
		panic("mirtypes: Elements called on non-tuple type " + t.String())
	}
	return t.elements
}

// NewStruct returns a Struct type with the given name and ordered fields.
func NewStruct(name string, fields ...StructField) Type {
	return Type{kind: Struct, name: name, fields: append([]StructField(nil), fields...)}
}

// Name returns the struct's declared name. Panics if t is not a Struct.
func (t Type) Name() string {
	if t.kind != Struct {
		panic("mirtypes: Name called on non-struct type " + t.String())
	}
	return t.name
}

// Fields returns the struct's fields in declaration order. Panics if t is
// not a Struct.
func (t Type) Fields() []StructField {
	if t.kind != Struct {
		panic("mirtypes: Fields called on non-struct type " + t.String())
	}
	return t.fields
}

// FieldType returns the type of the named field, and whether it exists.
func (t Type) FieldType(name string) (Type, bool) {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

// FieldOffset returns the slot offset of the named field within the
// struct (the sum of SizeOf of all preceding fields), and whether the
// field exists.
func (t Type) FieldOffset(name string) (int, bool) {
	off := 0
	for _, f := range t.Fields() {
		if f.Name == name {
			return off, true
		}
		off += SizeOf(f.Type)
	}
	return 0, false
}

// NewFunction returns a Function type wrapping the given signature.
func NewFunction(sig Signature) Type {
	s := sig
	return Type{kind: Function, sig: &s}
}

// Signature returns the signature of a Function type. Panics if t is not
// a Function.
func (t Type) Signature() Signature {
	if t.kind != Function {
		panic("mirtypes: Signature called on non-function type " + t.String())
	}
	return *t.sig
}

// SizeOf returns the number of fp-relative stack slots a value of type t
// occupies: Felt/Bool/Pointer are 1 slot, U32 is 2 (two-limb emulation),
// and aggregates are the sum of their members' sizes.
func SizeOf(t Type) int {
	switch t.kind {
	case Felt, Bool, Pointer, Function:
		return 1
	case U32:
		return 2
	case FixedArray:
		return SizeOf(*t.elem) * t.len
	case Tuple:
		n := 0
		for _, e := range t.elements {
			n += SizeOf(e)
		}
		return n
	case Struct:
		n := 0
		for _, f := range t.fields {
			n += SizeOf(f.Type)
		}
		return n
	default:
		panic(fmt.Sprintf("mirtypes: SizeOf undefined for %s", t.kind))
	}
}

// Equal reports whether two types are structurally identical.
func Equal(a, b Type) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Pointer:
		return Equal(*a.pointee, *b.pointee)
	case FixedArray:
		return a.len == b.len && Equal(*a.elem, *b.elem)
	case Tuple:
		if len(a.elements) != len(b.elements) {
			return false
		}
		for i := range a.elements {
			if !Equal(a.elements[i], b.elements[i]) {
				return false
			}
		}
		return true
	case Struct:
		if a.name != b.name || len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Name != b.fields[i].Name || !Equal(a.fields[i].Type, b.fields[i].Type) {
				return false
			}
		}
		return true
	case Function:
		if len(a.sig.Params) != len(b.sig.Params) || len(a.sig.Returns) != len(b.sig.Returns) {
			return false
		}
		for i := range a.sig.Params {
			if !Equal(a.sig.Params[i], b.sig.Params[i]) {
				return false
			}
		}
		for i := range a.sig.Returns {
			if !Equal(a.sig.Returns[i], b.sig.Returns[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsNumeric reports whether t is Felt or U32 (the arithmetic-capable
// scalar types).
func (t Type) IsNumeric() bool {
	return t.kind == Felt || t.kind == U32
}

// String renders t for diagnostics and CASM listing comments.
func (t Type) String() string {
	switch t.kind {
	case Pointer:
		return "*" + t.pointee.String()
	case FixedArray:
		return fmt.Sprintf("[%s; %d]", t.elem.String(), t.len)
	case Tuple:
		parts := make([]string, len(t.elements))
		for i, e := range t.elements {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Struct:
		return t.name
	case Function:
		params := make([]string, len(t.sig.Params))
		for i, p := range t.sig.Params {
			params[i] = p.String()
		}
		rets := make([]string, len(t.sig.Returns))
		for i, r := range t.sig.Returns {
			rets[i] = r.String()
		}
		return fmt.Sprintf("fn(%s) -> (%s)", strings.Join(params, ", "), strings.Join(rets, ", "))
	default:
		return t.kind.String()
	}
}
