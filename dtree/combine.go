// SPDX-License-Identifier: MIT
//
// File: combine.go
// Role: Algebra over trees: pointwise combination across possibly different
//       key sets, shape-preserving leaf conversion, and key reordering.

package dtree

import (
	"fmt"
	"math"

	"github.com/DanMcGann/gtsam/core"
)

// Combine produces the tree over the union of both operands' key lists (left
// operand's keys first, then the right operand's unseen keys) whose leaf at
// every full assignment is op(leafA, leafB), where each operand leaf is
// looked up with the portion of the assignment that operand branches on.
//
// Subtrees are shared through a (leftRef, rightRef) memo: where one operand
// does not branch on a key, its subtree is built once and referenced by
// index, so combining a large tree with a single-leaf tree costs the size of
// the large tree, not the product.
//
// Fails with ErrNilOperand on nil inputs and ErrBadCardinality when both
// operands declare the same key with different cardinalities.
//
// Complexity: O(reachable ref pairs) time and space.
func Combine[A, B, C any](a *Tree[A], b *Tree[B], op func(A, B) C) (*Tree[C], error) {
	if a == nil || b == nil || op == nil {
		return nil, ErrNilOperand
	}

	// 1) Union key list, checking cardinality agreement on shared keys.
	union := append(core.DiscreteKeys(nil), a.keys...)
	for _, dk := range b.keys {
		if i := union.IndexOf(dk.Key); i >= 0 {
			if union[i].Cardinality != dk.Cardinality {
				return nil, fmt.Errorf("%w: key %s declared with cardinality %d and %d",
					ErrBadCardinality, core.DefaultKeyFormatter(dk.Key),
					union[i].Cardinality, dk.Cardinality)
			}
			continue
		}
		union = append(union, dk)
	}

	// 2) The right operand must branch consistently with the union order;
	//    rebuild it in the projected order when it does not.
	required := project(union, b.keys)
	bb := b
	if !required.Equal(b.keys) {
		bb = reorder(b, required)
	}

	// 3) Walk both arenas simultaneously, branching on whichever key comes
	//    first in the union order, memoizing result refs per (left, right)
	//    pair.
	pos := make(map[core.Key]int, len(union))
	for i, dk := range union {
		pos[dk.Key] = i
	}
	card := make(map[core.Key]int, len(union))
	for _, dk := range union {
		card[dk.Key] = dk.Cardinality
	}

	out := &Tree[C]{keys: union}
	type pair struct{ left, right ref }
	memo := make(map[pair]ref)

	var apply func(ar, br ref) ref
	apply = func(ar, br ref) ref {
		p := pair{ar, br}
		if r, ok := memo[p]; ok {
			return r
		}

		var r ref
		if ar.isLeaf() && br.isLeaf() {
			out.leaves = append(out.leaves, op(a.leaves[ar.leafIndex()], bb.leaves[br.leafIndex()]))
			r = leafRef(len(out.leaves) - 1)
		} else {
			// Earliest pending key among the two operand nodes.
			posA, posB := math.MaxInt, math.MaxInt
			if !ar.isLeaf() {
				posA = pos[a.nodes[ar].key]
			}
			if !br.isLeaf() {
				posB = pos[bb.nodes[br].key]
			}
			k := union[min(posA, posB)].Key

			children := make([]ref, card[k])
			for v := range children {
				ar2 := ar
				if !ar.isLeaf() && a.nodes[ar].key == k {
					ar2 = a.nodes[ar].children[v]
				}
				br2 := br
				if !br.isLeaf() && bb.nodes[br].key == k {
					br2 = bb.nodes[br].children[v]
				}
				children[v] = apply(ar2, br2)
			}
			r = out.pushNode(branch{key: k, children: children})
		}

		memo[p] = r

		return r
	}

	out.root = apply(a.root, bb.root)

	return out, nil
}

// project filters order down to the keys present in subset, preserving
// order's sequence.
func project(order, subset core.DiscreteKeys) core.DiscreteKeys {
	out := make(core.DiscreteKeys, 0, len(subset))
	for _, dk := range order {
		if subset.Contains(dk.Key) {
			out = append(out, dk)
		}
	}

	return out
}

// reorder rebuilds t so it branches in newKeys order. newKeys must hold
// exactly t's keys; total trees make the dense rebuild safe.
func reorder[V any](t *Tree[V], newKeys core.DiscreteKeys) *Tree[V] {
	total := newKeys.NumAssignments()
	leaves := make([]V, total)
	for idx := 0; idx < total; idx++ {
		v, err := t.At(assignmentFor(newKeys, idx))
		if err != nil {
			// Unreachable on a total tree over the same key set.
			panic(fmt.Sprintf("dtree: reorder lookup failed: %v", err))
		}
		leaves[idx] = v
	}

	return newDense(newKeys, leaves)
}

// newDense builds the full trie without re-validating (callers already did).
func newDense[V any](keys core.DiscreteKeys, leaves []V) *Tree[V] {
	t := &Tree[V]{
		keys:   append(core.DiscreteKeys(nil), keys...),
		leaves: leaves,
	}
	strides := make([]int, len(keys))
	s := 1
	for i := len(keys) - 1; i >= 0; i-- {
		strides[i] = s
		s *= keys[i].Cardinality
	}
	t.root = t.buildDense(keys, strides, 0, 0)

	return t
}

// assignmentFor decodes canonical index idx over keys (last key fastest).
func assignmentFor(keys core.DiscreteKeys, idx int) core.DiscreteValues {
	values := make(core.DiscreteValues, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		values[keys[i].Key] = idx % keys[i].Cardinality
		idx /= keys[i].Cardinality
	}

	return values
}

// Convert maps every leaf through f, preserving the arena shape exactly, so
// shared subtrees stay shared in the result.
func Convert[V, W any](t *Tree[V], f func(V) W) *Tree[W] {
	out := &Tree[W]{
		keys:   append(core.DiscreteKeys(nil), t.keys...),
		nodes:  make([]branch, len(t.nodes)),
		leaves: make([]W, len(t.leaves)),
		root:   t.root,
	}
	for i, b := range t.nodes {
		out.nodes[i] = branch{key: b.key, children: append([]ref(nil), b.children...)}
	}
	for i, v := range t.leaves {
		out.leaves[i] = f(v)
	}

	return out
}

// ConvertE is Convert with a fallible mapper: the first error aborts and is
// returned unchanged.
func ConvertE[V, W any](t *Tree[V], f func(V) (W, error)) (*Tree[W], error) {
	out := &Tree[W]{
		keys:   append(core.DiscreteKeys(nil), t.keys...),
		nodes:  make([]branch, len(t.nodes)),
		leaves: make([]W, len(t.leaves)),
		root:   t.root,
	}
	for i, b := range t.nodes {
		out.nodes[i] = branch{key: b.key, children: append([]ref(nil), b.children...)}
	}
	for i, v := range t.leaves {
		w, err := f(v)
		if err != nil {
			return nil, err
		}
		out.leaves[i] = w
	}

	return out, nil
}

// ConvertWith maps every leaf through f together with its full assignment.
// The result is rebuilt densely (assignment-dependent values cannot share
// subtrees), so it costs O(NumAssignments).
func ConvertWith[V, W any](t *Tree[V], f func(values core.DiscreteValues, v V) W) *Tree[W] {
	total := t.NumAssignments()
	leaves := make([]W, total)
	for idx := 0; idx < total; idx++ {
		values := t.assignmentAt(idx)
		v, err := t.At(values)
		if err != nil {
			// Unreachable on a total tree.
			panic(fmt.Sprintf("dtree: ConvertWith lookup failed: %v", err))
		}
		leaves[idx] = f(values, v)
	}

	return newDense(t.keys, leaves)
}
