// Package dtree implements the persistent decision tree that indexes every
// per-discrete-assignment quantity in this module: scalar error tables,
// probability tables, and the Gaussian payloads of hybrid mixtures.
//
// A Tree[V] branches on an ordered list of discrete keys and holds one leaf
// value of type V for every full assignment over those keys: a total
// function from the cartesian product of the key cardinalities to V. Trees
// are immutable once built: Combine, Convert and friends return new trees and
// never touch their operands.
//
// Representation. The tree is an arena of branch nodes plus a separate flat
// leaf table; children are addressed by signed index (negative values encode
// leaf slots). Combining two trees walks both arenas with a pair memo, so a
// subtree that one operand does not branch on is built once and shared by
// index instead of being expanded per assignment.
//
// Branch order is the order of first appearance: a tree built over keys
// (a, b) branches on a at the root. Combine produces the union of both
// operands' key lists, left operand first. The dense constructor New lays
// leaves out row-major with the LAST key varying fastest, and Visit
// enumerates assignments in that same canonical order.
//
// Lookups require a value for every key the tree branches on and report
// core.ErrMissingKey otherwise; a tree never invents defaults and never
// collapses branches whose children happen to be equal, so the set of keys a
// lookup needs is always exactly Keys().
//
// Complexity:
//
//   - At:      O(number of keys)
//   - New:     O(number of assignments)
//   - Combine: O(reachable (leftRef, rightRef) pairs) ≤ O(product of both
//     assignment counts), typically far less through the pair memo
//   - Visit:   O(number of assignments × number of keys)
package dtree
