// SPDX-License-Identifier: MIT
//
// File: errors.go
// Role: Sentinel errors for hybrid nodes, mixtures and networks.

package hybrid

import "errors"

var (
	// ErrPrunedBranch indicates navigation reached a leaf removed by pruning.
	ErrPrunedBranch = errors.New("hybrid: branch was pruned")

	// ErrWrongVariant indicates a downcast on a node holding a different
	// variant.
	ErrWrongVariant = errors.New("hybrid: node holds a different variant")

	// ErrMissingMeasurement indicates a conditional whose frontal variables
	// are only partially covered by the supplied measurements.
	ErrMissingMeasurement = errors.New("hybrid: frontal variables partially covered by measurements")

	// ErrIllFormedNode indicates construction of a node with no keys of
	// either kind.
	ErrIllFormedNode = errors.New("hybrid: node must declare at least one key")

	// ErrBadMixture indicates mixture leaves that do not share the declared
	// frontal and parent structure, or a mixture with no live leaf.
	ErrBadMixture = errors.New("hybrid: mixture leaves must share the declared structure")

	// ErrUnresolvedParent indicates a conditional pushed before the
	// conditional owning one of its parents.
	ErrUnresolvedParent = errors.New("hybrid: parent is not a frontal of an earlier conditional")

	// ErrDuplicateFrontal indicates a frontal key already owned by an earlier
	// conditional of the net.
	ErrDuplicateFrontal = errors.New("hybrid: frontal already declared by an earlier conditional")

	// ErrIncompleteOrdering indicates an elimination ordering that left some
	// graph keys uneliminated.
	ErrIncompleteOrdering = errors.New("hybrid: ordering does not cover all keys")
)
