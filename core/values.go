package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrMissingKey indicates that a value lookup needed a key the supplied
// assignment does not contain. Every package in this module wraps it with the
// missing key's rendering, so errors.Is(err, core.ErrMissingKey) holds across
// layers.
var ErrMissingKey = errors.New("core: assignment is missing a required key")

// DiscreteValues assigns one selected value in [0, cardinality) to each
// discrete variable in scope.
type DiscreteValues map[Key]int

// At returns the assigned value for k, or a wrapped ErrMissingKey.
func (v DiscreteValues) At(k Key) (int, error) {
	a, ok := v[k]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, DefaultKeyFormatter(k))
	}

	return a, nil
}

// ContainsAll reports whether every key in keys has an entry.
func (v DiscreteValues) ContainsAll(keys []Key) bool {
	for _, k := range keys {
		if _, ok := v[k]; !ok {
			return false
		}
	}

	return true
}

// Clone returns an independent copy.
func (v DiscreteValues) Clone() DiscreteValues {
	out := make(DiscreteValues, len(v))
	for k, a := range v {
		out[k] = a
	}

	return out
}

// String renders entries sorted by key, e.g. "(m0: 1, m1: 0)".
func (v DiscreteValues) String() string {
	keys := make([]Key, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", DefaultKeyFormatter(k), v[k])
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// VectorValues assigns a real vector to each continuous variable in scope.
// The stored slices are owned by the map; callers must not mutate a slice
// obtained from At.
type VectorValues map[Key][]float64

// At returns the vector assigned to k, or a wrapped ErrMissingKey.
func (v VectorValues) At(k Key) ([]float64, error) {
	x, ok := v[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, DefaultKeyFormatter(k))
	}

	return x, nil
}

// ContainsAll reports whether every key in keys has an entry.
func (v VectorValues) ContainsAll(keys []Key) bool {
	for _, k := range keys {
		if _, ok := v[k]; !ok {
			return false
		}
	}

	return true
}

// Clone returns a deep copy (entry slices included).
func (v VectorValues) Clone() VectorValues {
	out := make(VectorValues, len(v))
	for k, x := range v {
		cp := make([]float64, len(x))
		copy(cp, x)
		out[k] = cp
	}

	return out
}

// Dim returns the total number of scalar entries across all vectors.
func (v VectorValues) Dim() int {
	n := 0
	for _, x := range v {
		n += len(x)
	}

	return n
}

// Equal reports whether both containers assign the same keys vectors equal
// within tol (element-wise absolute tolerance).
func (v VectorValues) Equal(other VectorValues, tol float64) bool {
	if len(v) != len(other) {
		return false
	}
	for k, x := range v {
		y, ok := other[k]
		if !ok || len(x) != len(y) {
			return false
		}
		if len(x) > 0 && !floats.EqualApprox(x, y, tol) {
			return false
		}
	}

	return true
}

// HybridValues carries a continuous and a discrete assignment side by side.
// It is the argument type of every mixed-variable evaluation in this module.
type HybridValues struct {
	Continuous VectorValues
	Discrete   DiscreteValues
}

// NewHybridValues pairs the two assignment maps (either may be nil for "no
// entries of that kind").
func NewHybridValues(cv VectorValues, dv DiscreteValues) HybridValues {
	if cv == nil {
		cv = VectorValues{}
	}
	if dv == nil {
		dv = DiscreteValues{}
	}

	return HybridValues{Continuous: cv, Discrete: dv}
}

// Clone returns a deep copy of both sides.
func (h HybridValues) Clone() HybridValues {
	return HybridValues{Continuous: h.Continuous.Clone(), Discrete: h.Discrete.Clone()}
}
