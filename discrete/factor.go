// SPDX-License-Identifier: MIT
//
// File: factor.go
// Role: Non-negative potential tables over discrete keys, with the pointwise
// product, marginalization, pruning and argmax used by elimination.

package discrete

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/dtree"
)

// Factor assigns a non-negative potential to every assignment of its keys.
// Factors are immutable; all operations return new values.
type Factor struct {
	keys core.DiscreteKeys
	tree *dtree.Tree[float64]
}

// NewFactor builds a dense factor over keys. The table is consumed in
// canonical order (last key varying fastest) and must hold only finite
// non-negative entries.
func NewFactor(keys core.DiscreteKeys, table []float64) (*Factor, error) {
	for i, v := range table {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: table[%d] = %v", ErrBadProbability, i, v)
		}
	}
	tree, err := dtree.New(keys, table)
	if err != nil {
		return nil, err
	}

	return &Factor{keys: tree.Keys(), tree: tree}, nil
}

// FromTree wraps an existing value tree as a factor, validating entries.
func FromTree(tree *dtree.Tree[float64]) (*Factor, error) {
	if tree == nil {
		return nil, dtree.ErrNilOperand
	}
	err := tree.Visit(func(values core.DiscreteValues, v float64) error {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %v at %s", ErrBadProbability, v, values)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Factor{keys: tree.Keys(), tree: tree}, nil
}

// Keys returns the factor's discrete keys in branch order.
func (f *Factor) Keys() core.DiscreteKeys { return append(core.DiscreteKeys(nil), f.keys...) }

// Tree returns the underlying value tree. Trees are persistent, so sharing
// the pointer is safe.
func (f *Factor) Tree() *dtree.Tree[float64] { return f.tree }

// Value returns the potential at the given assignment.
func (f *Factor) Value(values core.DiscreteValues) (float64, error) {
	return f.tree.At(values)
}

// Error returns −log of the potential, +Inf where the potential is zero.
func (f *Factor) Error(values core.DiscreteValues) (float64, error) {
	v, err := f.tree.At(values)
	if err != nil {
		return 0, err
	}

	return -math.Log(v), nil
}

// Mul returns the pointwise product over the union of both key sets.
func (f *Factor) Mul(other *Factor) (*Factor, error) {
	if other == nil {
		return nil, dtree.ErrNilOperand
	}
	tree, err := dtree.Combine(f.tree, other.tree, func(a, b float64) float64 { return a * b })
	if err != nil {
		return nil, err
	}

	return &Factor{keys: tree.Keys(), tree: tree}, nil
}

// Sum returns the total mass over all assignments.
func (f *Factor) Sum() float64 {
	total := 0.0
	// Visit cannot fail on a factor's own total tree.
	_ = f.tree.Visit(func(_ core.DiscreteValues, v float64) error {
		total += v

		return nil
	})

	return total
}

// Normalize scales the table to unit total mass. Fails with ErrZeroMass on
// an all-zero factor.
func (f *Factor) Normalize() (*Factor, error) {
	total := f.Sum()
	if total <= 0 {
		return nil, fmt.Errorf("%w: cannot normalize", ErrZeroMass)
	}

	return &Factor{keys: f.Keys(), tree: dtree.Convert(f.tree, func(v float64) float64 { return v / total })}, nil
}

// SumOut marginalizes the given keys away, keeping the remaining keys in
// their original order. Summing out every key leaves a keyless single-cell
// factor holding the total mass.
func (f *Factor) SumOut(keys ...core.Key) (*Factor, error) {
	drop := make(map[core.Key]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	var rem core.DiscreteKeys
	for _, dk := range f.keys {
		if _, ok := drop[dk.Key]; !ok {
			rem = append(rem, dk)
		}
	}

	table := make([]float64, rem.NumAssignments())
	err := f.tree.Visit(func(values core.DiscreteValues, v float64) error {
		idx := 0
		for _, dk := range rem {
			a, err := values.At(dk.Key)
			if err != nil {
				return err
			}
			idx = idx*dk.Cardinality + a
		}
		table[idx] += v

		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewFactor(rem, table)
}

// MaxAssignment returns the assignment with the largest potential and its
// value. Ties resolve to the earliest assignment in canonical order.
func (f *Factor) MaxAssignment() (core.DiscreteValues, float64) {
	best := math.Inf(-1)
	var bestValues core.DiscreteValues
	_ = f.tree.Visit(func(values core.DiscreteValues, v float64) error {
		if v > best {
			best = v
			bestValues = values
		}

		return nil
	})

	return bestValues, best
}

// Prune keeps the maxLeaves largest entries and zeroes the rest. Ties are
// broken toward the earlier canonical assignment. A factor with at most
// maxLeaves assignments is returned unchanged.
func (f *Factor) Prune(maxLeaves int) (*Factor, error) {
	if maxLeaves < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadPrune, maxLeaves)
	}
	n := f.tree.NumAssignments()
	if maxLeaves >= n {
		return f, nil
	}

	type cell struct {
		idx int
		v   float64
	}
	cells := make([]cell, 0, n)
	_ = f.tree.Visit(func(_ core.DiscreteValues, v float64) error {
		cells = append(cells, cell{idx: len(cells), v: v})

		return nil
	})
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].v != cells[j].v {
			return cells[i].v > cells[j].v
		}

		return cells[i].idx < cells[j].idx
	})

	table := make([]float64, n)
	for _, c := range cells[:maxLeaves] {
		table[c.idx] = c.v
	}

	return NewFactor(f.keys, table)
}

// Equal reports whether both factors share the key list and agree on every
// assignment within tol.
func (f *Factor) Equal(other *Factor, tol float64) bool {
	if other == nil {
		return false
	}

	return f.tree.Equal(other.tree, func(a, b float64) bool { return math.Abs(a-b) <= tol })
}

// String renders one line per assignment using kf for key names.
func (f *Factor) String(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("Factor on ")
	sb.WriteString(core.FormatKeys(f.keys.Keys(), kf))
	sb.WriteByte('\n')
	_ = f.tree.Visit(func(values core.DiscreteValues, v float64) error {
		parts := make([]string, len(f.keys))
		for i, dk := range f.keys {
			a, err := values.At(dk.Key)
			if err != nil {
				return err
			}
			parts[i] = fmt.Sprintf("%s: %d", kf(dk.Key), a)
		}
		fmt.Fprintf(&sb, "  (%s): %g\n", strings.Join(parts, ", "), v)

		return nil
	})

	return sb.String()
}
