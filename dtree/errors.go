// SPDX-License-Identifier: MIT
//
// File: errors.go
// Role: Sentinel errors for decision-tree construction and lookup.
// All errors are returned wrapped with the offending key or count, so callers
// can match with errors.Is and still read the context from Error().

package dtree

import "errors"

var (
	// ErrBadCardinality indicates a discrete key with cardinality < 1, or two
	// operands declaring different cardinalities for the same key.
	ErrBadCardinality = errors.New("dtree: discrete key cardinality must be positive and consistent")

	// ErrDuplicateKey indicates the same key appearing twice in one branching
	// list.
	ErrDuplicateKey = errors.New("dtree: duplicate discrete key in branching list")

	// ErrLeafCount indicates a dense leaf slice whose length differs from the
	// product of the key cardinalities.
	ErrLeafCount = errors.New("dtree: leaf count must equal the product of cardinalities")

	// ErrBadAssignment indicates an assignment value outside [0, cardinality)
	// for the key being branched on.
	ErrBadAssignment = errors.New("dtree: assignment value outside key cardinality")

	// ErrNilOperand indicates a nil tree or nil operator passed to Combine.
	ErrNilOperand = errors.New("dtree: nil tree or nil combine operator")
)
