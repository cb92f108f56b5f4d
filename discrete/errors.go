// SPDX-License-Identifier: MIT
//
// File: errors.go
// Role: Sentinel errors for discrete factors and conditionals.

package discrete

import "errors"

var (
	// ErrSpecFormat indicates a conditional spec string whose row or entry
	// count does not match the declared keys, or a token that does not parse.
	ErrSpecFormat = errors.New("discrete: malformed conditional spec string")

	// ErrBadProbability indicates a negative, NaN or infinite table entry.
	ErrBadProbability = errors.New("discrete: probabilities must be non-negative and finite")

	// ErrZeroMass indicates an operation that needs positive total mass
	// (normalizing, sampling) applied to an all-zero table.
	ErrZeroMass = errors.New("discrete: zero total probability mass")

	// ErrBadPrune indicates a prune size below one.
	ErrBadPrune = errors.New("discrete: prune size must be positive")

	// ErrBadFrontals indicates frontal keys that are not part of the factor
	// being normalized into a conditional.
	ErrBadFrontals = errors.New("discrete: frontal keys must appear in the factor keys")
)
