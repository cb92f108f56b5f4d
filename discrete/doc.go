// Package discrete implements probability tables over discrete variables:
// factors, conditionals and sum-product elimination, all backed by
// dtree.Tree[float64].
//
// A Factor assigns a non-negative potential to every assignment of its keys.
// A Conditional is a Factor normalized per parent assignment, constructed
// either from a GTSAM-style spec string ("4/1 1/4") or by normalizing an
// existing factor. EliminateSum turns a factor product into
// p(key | rest)·p(rest).
//
// Tables are immutable: every operation returns a new value and never
// mutates its receiver or arguments.
//
// Complexity: operations enumerate assignments, so they cost
// O(Π cardinalities) of the keys involved.
package discrete
