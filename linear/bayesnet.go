// SPDX-License-Identifier: MIT
//
// File: bayesnet.go
// Role: Gaussian Bayes net held in ancestral order (every parent is a frontal
// of an earlier conditional), with forward solving and ancestral sampling.

package linear

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/DanMcGann/gtsam/core"
)

// BayesNet is an ordered product of Gaussian conditionals,
//
//	p(x) = Π_i p(F_i | P_i),
//
// stored parents-first: Push rejects a conditional whose parents are not all
// frontals of earlier conditionals. Optimize and Sample therefore run a
// single front-to-back pass.
type BayesNet struct {
	conds    []*Conditional
	frontals map[core.Key]struct{}
}

// NewBayesNet returns an empty net.
func NewBayesNet() *BayesNet {
	return &BayesNet{frontals: make(map[core.Key]struct{})}
}

// Push appends a conditional. It fails with ErrDuplicateFrontal when one of
// its frontals is already a frontal of the net, and with ErrUnresolvedParent
// when one of its parents is not.
func (bn *BayesNet) Push(c *Conditional) error {
	if c == nil {
		return ErrNilConditional
	}
	for _, k := range c.frontals {
		if _, ok := bn.frontals[k]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFrontal, core.DefaultKeyFormatter(k))
		}
	}
	for _, p := range c.parents {
		if _, ok := bn.frontals[p.Key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnresolvedParent, core.DefaultKeyFormatter(p.Key))
		}
	}
	for _, k := range c.frontals {
		bn.frontals[k] = struct{}{}
	}
	bn.conds = append(bn.conds, c)

	return nil
}

// Len returns the number of conditionals.
func (bn *BayesNet) Len() int { return len(bn.conds) }

// At returns the i-th conditional in ancestral order.
func (bn *BayesNet) At(i int) *Conditional { return bn.conds[i] }

// Conditionals returns the conditionals in ancestral order.
func (bn *BayesNet) Conditionals() []*Conditional {
	return append([]*Conditional(nil), bn.conds...)
}

// Keys returns every frontal key, in net order.
func (bn *BayesNet) Keys() []core.Key {
	keys := make([]core.Key, 0, len(bn.frontals))
	for _, c := range bn.conds {
		keys = append(keys, c.frontals...)
	}

	return keys
}

// Optimize computes the joint mean by one forward pass: each conditional is
// solved with the already-assigned parents. Entries of given are kept as-is;
// a conditional whose frontals are all given is skipped.
func (bn *BayesNet) Optimize(given core.VectorValues) (core.VectorValues, error) {
	out := core.VectorValues{}
	if given != nil {
		out = given.Clone()
	}
	for _, c := range bn.conds {
		if out.ContainsAll(c.frontals) {
			continue
		}
		sol, err := c.Solve(out)
		if err != nil {
			return nil, err
		}
		for k, x := range sol {
			if _, ok := out[k]; !ok {
				out[k] = x
			}
		}
	}

	return out, nil
}

// Sample draws one joint sample by ancestral sampling, front to back.
// Entries of given are kept as-is; src selects the random stream (nil uses
// the global source).
func (bn *BayesNet) Sample(given core.VectorValues, src rand.Source) (core.VectorValues, error) {
	out := core.VectorValues{}
	if given != nil {
		out = given.Clone()
	}
	for _, c := range bn.conds {
		if out.ContainsAll(c.frontals) {
			continue
		}
		sol, err := c.Sample(out, src)
		if err != nil {
			return nil, err
		}
		for k, x := range sol {
			if _, ok := out[k]; !ok {
				out[k] = x
			}
		}
	}

	return out, nil
}

// Error returns the summed conditional errors at v.
func (bn *BayesNet) Error(v core.VectorValues) (float64, error) {
	sum := 0.0
	for _, c := range bn.conds {
		e, err := c.Error(v)
		if err != nil {
			return 0, err
		}
		sum += e
	}

	return sum, nil
}

// LogDensity returns log p(v) = Σ_i log p_i(F_i | P_i).
func (bn *BayesNet) LogDensity(v core.VectorValues) (float64, error) {
	sum := 0.0
	for _, c := range bn.conds {
		lp, err := c.LogProbability(v)
		if err != nil {
			return 0, err
		}
		sum += lp
	}

	return sum, nil
}

// Evaluate returns the joint density p(v).
func (bn *BayesNet) Evaluate(v core.VectorValues) (float64, error) {
	ld, err := bn.LogDensity(v)
	if err != nil {
		return 0, err
	}

	return math.Exp(ld), nil
}

// Equal reports whether both nets hold pairwise-equal conditionals in the
// same order.
func (bn *BayesNet) Equal(other *BayesNet, tol float64) bool {
	if other == nil || len(bn.conds) != len(other.conds) {
		return false
	}
	for i, c := range bn.conds {
		if !c.Equal(other.conds[i], tol) {
			return false
		}
	}

	return true
}

// String renders every conditional with its position in the net.
func (bn *BayesNet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BayesNet of %d conditionals\n", len(bn.conds))
	for i, c := range bn.conds {
		fmt.Fprintf(&sb, "[%d] %s", i, c)
	}

	return sb.String()
}
