// Package m31 implements arithmetic over the Mersenne-31 field used natively
// by the CASM instruction set: the prime field of order P = 2^31 - 1.
package m31

// P is the order of the field: the 31st Mersenne prime.
const P uint64 = (1 << 31) - 1

// Elem is an element of the M31 field, always held in the canonical range
// [0, P).
type Elem uint32

// FromInt64 reduces a signed host integer into the canonical M31 range,
// matching the reference compiler's `M31::from` semantics for negative
// inputs (wrap modulo P rather than two's-complement truncation).
func FromInt64(v int64) Elem {
	r := v % int64(P)
	if r < 0 {
		r += int64(P)
	}
	return Elem(r)
}

// FromUint64 reduces an unsigned host integer into the canonical range.
func FromUint64(v uint64) Elem {
	return Elem(v % P)
}

// Add returns a + b mod P.
func Add(a, b Elem) Elem {
	s := uint64(a) + uint64(b)
	if s >= P {
		s -= P
	}
	return Elem(s)
}

// Sub returns a - b mod P.
func Sub(a, b Elem) Elem {
	if a >= b {
		return a - b
	}
	return Elem(uint64(a) + P - uint64(b))
}

// Neg returns -a mod P.
func Neg(a Elem) Elem {
	if a == 0 {
		return 0
	}
	return Elem(P) - a
}

// Mul returns a * b mod P using a 64-bit intermediate with a single
// Mersenne reduction (P = 2^31 - 1, so x mod P == (x & P) + (x >> 31),
// folded until it fits).
func Mul(a, b Elem) Elem {
	prod := uint64(a) * uint64(b)
	return reduce(prod)
}

func reduce(x uint64) Elem {
	for x > P {
		x = (x & P) + (x >> 31)
	}
	if x == P {
		x = 0
	}
	return Elem(x)
}

// IsZero reports whether a is congruent to zero mod P.
func IsZero(a Elem) bool {
	return a == 0
}

// Inverse returns the multiplicative inverse of a via Fermat's little
// theorem (a^(P-2) mod P). Panics if a is zero; callers must check
// IsZero first since field division by zero is a compile-time error,
// not a runtime panic in this codebase.
func Inverse(a Elem) Elem {
	if a == 0 {
		panic("m31: inverse of zero")
	}
	return Pow(a, P-2)
}

// Pow computes a^e mod P by repeated squaring.
func Pow(a Elem, e uint64) Elem {
	result := Elem(1)
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = Mul(result, base)
		}
		base = Mul(base, base)
		e >>= 1
	}
	return result
}

// Div returns a / b mod P. Callers must ensure b is non-zero; this
// mirrors the reference compiler which treats field division by a
// literal congruent to zero as a compile error raised by the caller,
// not by this helper.
func Div(a, b Elem) Elem {
	return Mul(a, Inverse(b))
}
