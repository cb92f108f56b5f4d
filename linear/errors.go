// SPDX-License-Identifier: MIT
//
// File: errors.go
// Role: Sentinel errors for the linear-Gaussian layer. Use sites wrap these
//       with the offending key or dimensions via %w.

package linear

import "errors"

var (
	// ErrBadSigma indicates a noise model built with a non-positive standard
	// deviation.
	ErrBadSigma = errors.New("linear: noise sigmas must be positive")

	// ErrDimension indicates mismatched matrix/vector dimensions at
	// construction or evaluation.
	ErrDimension = errors.New("linear: dimension mismatch")

	// ErrDuplicateKey indicates the same variable appearing twice among a
	// factor's or conditional's terms.
	ErrDuplicateKey = errors.New("linear: duplicate variable in term list")

	// ErrNilConditional indicates a nil conditional pushed onto a Bayes net.
	ErrNilConditional = errors.New("linear: conditional is nil")

	// ErrUnresolvedParent indicates a conditional appended before the
	// conditional that declares its parent; the net must stay in ancestral
	// order.
	ErrUnresolvedParent = errors.New("linear: parent key is not a frontal of any earlier conditional")

	// ErrDuplicateFrontal indicates two conditionals declaring the same
	// frontal variable in one net.
	ErrDuplicateFrontal = errors.New("linear: frontal key already declared in this net")

	// ErrSingular indicates elimination or solving hit a numerically singular
	// frontal block.
	ErrSingular = errors.New("linear: singular system")

	// ErrIncompleteOrdering indicates EliminateSequential finished its
	// ordering while factors over un-eliminated variables remain.
	ErrIncompleteOrdering = errors.New("linear: elimination ordering does not cover all variables")
)
