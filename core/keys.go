// SPDX-License-Identifier: MIT
//
// File: keys.go
// Role: Variable identifiers (Key, Sym packing), discrete key descriptors and
//       key-list helpers. Pure value types; no algorithms, no hidden state.
// Determinism: all list helpers preserve first-appearance order; nothing here
//       sorts or hashes beyond Go map iteration, which callers never observe.

package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one random variable (continuous or discrete).
//
// A Key is either a plain integer or a packed symbol: one printable letter in
// the top byte and a 56-bit index below it, so that related variables read as
// x0, x1, x2... in printed output. The packing is a convention, not a type:
// every API in this module accepts any Key value.
type Key uint64

const (
	// symIndexBits is the number of low bits reserved for the symbol index.
	symIndexBits = 56
	// symIndexMask masks the index portion of a packed symbol.
	symIndexMask = (uint64(1) << symIndexBits) - 1
)

// Sym packs a one-letter tag and an index into a Key: Sym('x', 1) → "x1".
// The tag must be an ASCII letter and the index must fit in 56 bits;
// violations panic, since they are programming errors, not runtime inputs.
func Sym(c byte, j uint64) Key {
	if !isSymbolChr(c) {
		panic("core: Sym tag must be an ASCII letter")
	}
	if j > symIndexMask {
		panic("core: Sym index exceeds 56 bits")
	}

	return Key(uint64(c)<<symIndexBits | j)
}

// Chr returns the tag byte of a packed symbol (zero for plain keys).
func (k Key) Chr() byte { return byte(uint64(k) >> symIndexBits) }

// Idx returns the index portion of a packed symbol.
func (k Key) Idx() uint64 { return uint64(k) & symIndexMask }

// IsSymbol reports whether k carries a printable symbol tag.
func (k Key) IsSymbol() bool { return isSymbolChr(k.Chr()) }

// isSymbolChr reports whether c is a letter usable as a symbol tag.
func isSymbolChr(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// KeyFormatter renders a Key for printed output. Every printing routine in
// this module threads a KeyFormatter through, so callers may substitute their
// own naming scheme.
type KeyFormatter func(Key) string

// DefaultKeyFormatter prints packed symbols as "<tag><index>" and any other
// key as its decimal value.
func DefaultKeyFormatter(k Key) string {
	if k.IsSymbol() {
		return fmt.Sprintf("%c%d", k.Chr(), k.Idx())
	}

	return strconv.FormatUint(uint64(k), 10)
}

// FormatKeys renders keys space-separated through f (DefaultKeyFormatter when
// f is nil).
func FormatKeys(keys []Key, f KeyFormatter) string {
	if f == nil {
		f = DefaultKeyFormatter
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = f(k)
	}

	return strings.Join(parts, " ")
}

// DiscreteKey describes one categorical variable: its Key and the number of
// values it can take. Cardinality must be >= 1 wherever a DiscreteKey is
// consumed; constructors that branch on it validate and report errors.
type DiscreteKey struct {
	Key         Key // variable identifier
	Cardinality int // number of admissible values: 0, 1, ..., Cardinality-1
}

// DiscreteKeys is an ordered list of discrete variable descriptors.
// Order is meaningful: decision trees branch in list order.
type DiscreteKeys []DiscreteKey

// Keys returns just the Key column, in order.
func (ks DiscreteKeys) Keys() []Key {
	out := make([]Key, len(ks))
	for i, dk := range ks {
		out[i] = dk.Key
	}

	return out
}

// IndexOf returns the position of k in ks, or -1 when absent.
func (ks DiscreteKeys) IndexOf(k Key) int {
	for i, dk := range ks {
		if dk.Key == k {
			return i
		}
	}

	return -1
}

// Contains reports whether k appears in ks.
func (ks DiscreteKeys) Contains(k Key) bool { return ks.IndexOf(k) >= 0 }

// Union appends the descriptors of other that are not already present,
// preserving first-appearance order of both operands.
func (ks DiscreteKeys) Union(other DiscreteKeys) DiscreteKeys {
	out := make(DiscreteKeys, len(ks), len(ks)+len(other))
	copy(out, ks)
	for _, dk := range other {
		if !out.Contains(dk.Key) {
			out = append(out, dk)
		}
	}

	return out
}

// NumAssignments returns the product of all cardinalities, the number of
// full assignments over ks. An empty list has exactly one (empty) assignment.
func (ks DiscreteKeys) NumAssignments() int {
	n := 1
	for _, dk := range ks {
		n *= dk.Cardinality
	}

	return n
}

// Equal reports whether both lists hold the same descriptors in the same
// order.
func (ks DiscreteKeys) Equal(other DiscreteKeys) bool {
	if len(ks) != len(other) {
		return false
	}
	for i := range ks {
		if ks[i] != other[i] {
			return false
		}
	}

	return true
}
