// Package core defines the variable-key and value-container primitives shared
// by every inference package in this module: dtree, linear, discrete, hybrid.
//
// A variable is identified by a Key, a compact 64-bit integer that may carry
// a human-readable symbol (a one-letter tag plus an index, so Sym('x', 1)
// prints as "x1"). Discrete variables pair a Key with a finite cardinality
// (DiscreteKey). Assignments of concrete values to variables travel as plain
// maps: DiscreteValues for categorical selections, VectorValues for real
// vectors, and HybridValues for both at once.
//
// Rendering of keys is always routed through a KeyFormatter so callers can
// substitute their own naming scheme; DefaultKeyFormatter understands the
// Sym packing and falls back to the raw integer for unpacked keys.
//
// core carries no algorithms and no locks: the containers are ordinary maps,
// owned by whoever builds them, and every lookup that can fail reports
// ErrMissingKey rather than inventing a default.
package core
