// SPDX-License-Identifier: MIT
//
// File: tree.go
// Role: Arena representation of the decision tree and its point operations
//       (construction, lookup, enumeration, equality).
// Invariant: every Tree is a total function over its key list; each full
//       assignment reaches exactly one leaf slot.

package dtree

import (
	"fmt"

	"github.com/DanMcGann/gtsam/core"
)

// ref addresses either a branch node (ref >= 0, index into the node arena) or
// a leaf slot (ref < 0, leaf index = ^ref).
type ref int32

// leafRef encodes leaf slot i as a negative ref.
func leafRef(i int) ref { return ^ref(i) }

// isLeaf reports whether r addresses a leaf slot.
func (r ref) isLeaf() bool { return r < 0 }

// leafIndex decodes the leaf slot of a leaf ref.
func (r ref) leafIndex() int { return int(^r) }

// branch is one internal node: it selects a child per value of its key.
type branch struct {
	key      core.Key
	children []ref
}

// Tree is a persistent decision tree over discrete keys with leaves of type
// V. The zero value is not usable; build trees with New, Leaf or Combine.
type Tree[V any] struct {
	keys   core.DiscreteKeys
	nodes  []branch
	leaves []V
	root   ref
}

// Leaf returns the single-leaf tree holding v: it branches on no keys and
// yields v for the empty assignment.
func Leaf[V any](v V) *Tree[V] {
	return &Tree[V]{leaves: []V{v}, root: leafRef(0)}
}

// New builds the dense tree over keys with the given leaf values. Leaves are
// consumed row-major with the LAST key varying fastest: for keys (a, b) with
// cardinalities (2, 3), leaves[i] corresponds to assignment
// (a = i/3, b = i%3).
//
// Fails with ErrBadCardinality, ErrDuplicateKey or ErrLeafCount on malformed
// input. The leaf slice is copied; the caller keeps ownership of its own.
func New[V any](keys core.DiscreteKeys, leaves []V) (*Tree[V], error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	want := keys.NumAssignments()
	if len(leaves) != want {
		return nil, fmt.Errorf("%w: got %d leaves, want %d", ErrLeafCount, len(leaves), want)
	}

	t := &Tree[V]{
		keys:   append(core.DiscreteKeys(nil), keys...),
		leaves: append([]V(nil), leaves...),
	}

	// Strides for the canonical layout: stride[i] = product of cardinalities
	// of all keys after i.
	strides := make([]int, len(keys))
	s := 1
	for i := len(keys) - 1; i >= 0; i-- {
		strides[i] = s
		s *= keys[i].Cardinality
	}

	t.root = t.buildDense(keys, strides, 0, 0)

	return t, nil
}

// buildDense grows the full trie for levels [level, len(keys)) rooted at the
// canonical leaf offset.
func (t *Tree[V]) buildDense(keys core.DiscreteKeys, strides []int, level, offset int) ref {
	if level == len(keys) {
		return leafRef(offset)
	}
	children := make([]ref, keys[level].Cardinality)
	for v := range children {
		children[v] = t.buildDense(keys, strides, level+1, offset+v*strides[level])
	}

	return t.pushNode(branch{key: keys[level].Key, children: children})
}

// pushNode appends a branch node to the arena and returns its ref.
func (t *Tree[V]) pushNode(b branch) ref {
	t.nodes = append(t.nodes, b)

	return ref(len(t.nodes) - 1)
}

// validateKeys rejects non-positive cardinalities and duplicate keys.
func validateKeys(keys core.DiscreteKeys) error {
	seen := make(map[core.Key]struct{}, len(keys))
	for _, dk := range keys {
		if dk.Cardinality < 1 {
			return fmt.Errorf("%w: key %s has cardinality %d",
				ErrBadCardinality, core.DefaultKeyFormatter(dk.Key), dk.Cardinality)
		}
		if _, dup := seen[dk.Key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, core.DefaultKeyFormatter(dk.Key))
		}
		seen[dk.Key] = struct{}{}
	}

	return nil
}

// Keys returns a copy of the branching key list, in branch order.
func (t *Tree[V]) Keys() core.DiscreteKeys {
	return append(core.DiscreteKeys(nil), t.keys...)
}

// NumAssignments returns the number of full assignments over the tree's keys
// (1 for a single-leaf tree).
func (t *Tree[V]) NumAssignments() int { return t.keys.NumAssignments() }

// NumLeaves returns the number of stored leaf slots. Shared subtrees make
// this smaller than NumAssignments.
func (t *Tree[V]) NumLeaves() int { return len(t.leaves) }

// At returns the leaf value reached by the assignment. Every key the tree
// branches on must be present (core.ErrMissingKey otherwise) and within its
// cardinality (ErrBadAssignment otherwise); extra keys in the assignment are
// ignored.
func (t *Tree[V]) At(values core.DiscreteValues) (V, error) {
	var zero V
	r := t.root
	for !r.isLeaf() {
		b := t.nodes[r]
		a, err := values.At(b.key)
		if err != nil {
			return zero, err
		}
		if a < 0 || a >= len(b.children) {
			return zero, fmt.Errorf("%w: key %s value %d, cardinality %d",
				ErrBadAssignment, core.DefaultKeyFormatter(b.key), a, len(b.children))
		}
		r = b.children[a]
	}

	return t.leaves[r.leafIndex()], nil
}

// Visit calls fn for every full assignment over the tree's keys, in canonical
// order (row-major, last key fastest), with a freshly allocated assignment
// map each call. Enumeration stops at the first error, which is returned.
func (t *Tree[V]) Visit(fn func(values core.DiscreteValues, v V) error) error {
	total := t.NumAssignments()
	for idx := 0; idx < total; idx++ {
		values := t.assignmentAt(idx)
		v, err := t.At(values)
		if err != nil {
			return err
		}
		if err := fn(values, v); err != nil {
			return err
		}
	}

	return nil
}

// assignmentAt decodes canonical index idx into a full assignment.
func (t *Tree[V]) assignmentAt(idx int) core.DiscreteValues {
	values := make(core.DiscreteValues, len(t.keys))
	for i := len(t.keys) - 1; i >= 0; i-- {
		card := t.keys[i].Cardinality
		values[t.keys[i].Key] = idx % card
		idx /= card
	}

	return values
}

// Equal reports whether both trees branch on the identical key list and eq
// holds for the leaves of every assignment.
func (t *Tree[V]) Equal(other *Tree[V], eq func(a, b V) bool) bool {
	if other == nil || !t.keys.Equal(other.keys) {
		return false
	}
	total := t.NumAssignments()
	for idx := 0; idx < total; idx++ {
		values := t.assignmentAt(idx)
		av, errA := t.At(values)
		bv, errB := other.At(values)
		if errA != nil || errB != nil || !eq(av, bv) {
			return false
		}
	}

	return true
}
