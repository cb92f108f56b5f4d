// SPDX-License-Identifier: MIT
//
// File: mixture.go
// Role: Conditional mixture: one Gaussian conditional per discrete mode
// assignment, sharing frontal and parent structure across all leaves.

package hybrid

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/linear"
)

// Mixture is the hybrid conditional p(frontals | parents, modes): a decision
// tree over the discrete mode keys whose leaves are Gaussian conditionals
// over one shared continuous structure. Leaves differ only in their numeric
// parameters; a nil leaf marks a branch removed by pruning.
//
// Leaves may carry different noise scales, so errors are offset per leaf by
// the difference between the mixture's largest leaf normalization constant
// and the leaf's own. That puts all modes on one log-probability scale.
type Mixture struct {
	frontals []core.Key
	parents  []core.Key
	modes    core.DiscreteKeys
	tree     *dtree.Tree[*linear.Conditional]
	logConst float64
}

// NewMixture builds a mixture from a dense leaf list in canonical mode order
// (last mode key varying fastest).
func NewMixture(frontals, parents []core.Key, modes core.DiscreteKeys, conditionals []*linear.Conditional) (*Mixture, error) {
	tree, err := dtree.New(modes, conditionals)
	if err != nil {
		return nil, err
	}

	return newMixture(frontals, parents, tree)
}

// NewMixtureFromTree builds a mixture from an existing conditional tree; the
// mode keys are the tree's branching keys.
func NewMixtureFromTree(frontals, parents []core.Key, tree *dtree.Tree[*linear.Conditional]) (*Mixture, error) {
	if tree == nil {
		return nil, dtree.ErrNilOperand
	}

	return newMixture(frontals, parents, tree)
}

// newMixture validates leaf structure and computes the shared normalization
// offset.
func newMixture(frontals, parents []core.Key, tree *dtree.Tree[*linear.Conditional]) (*Mixture, error) {
	modes := tree.Keys()
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w: no mode keys", ErrBadMixture)
	}
	if len(frontals) == 0 {
		return nil, fmt.Errorf("%w: no frontal keys", ErrBadMixture)
	}

	live := 0
	logConst := math.Inf(-1)
	var dims []int
	err := tree.Visit(func(values core.DiscreteValues, c *linear.Conditional) error {
		if c == nil {
			return nil
		}
		if !slices.Equal(c.Frontals(), frontals) || !slices.Equal(c.Parents(), parents) {
			return fmt.Errorf("%w: leaf at %s differs in keys", ErrBadMixture, values)
		}
		if dims == nil {
			dims = c.FrontalDims()
		} else if !slices.Equal(dims, c.FrontalDims()) {
			return fmt.Errorf("%w: leaf at %s differs in dimensions", ErrBadMixture, values)
		}
		live++
		if lc := c.LogNormalizationConstant(); lc > logConst {
			logConst = lc
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if live == 0 {
		return nil, fmt.Errorf("%w: no live leaf", ErrBadMixture)
	}

	return &Mixture{
		frontals: append([]core.Key(nil), frontals...),
		parents:  append([]core.Key(nil), parents...),
		modes:    modes,
		tree:     tree,
		logConst: logConst,
	}, nil
}

// Frontals returns the continuous frontal keys.
func (m *Mixture) Frontals() []core.Key { return append([]core.Key(nil), m.frontals...) }

// Parents returns the continuous parent keys.
func (m *Mixture) Parents() []core.Key { return append([]core.Key(nil), m.parents...) }

// Modes returns the discrete mode keys the mixture branches on.
func (m *Mixture) Modes() core.DiscreteKeys { return append(core.DiscreteKeys(nil), m.modes...) }

// Tree returns the underlying conditional tree.
func (m *Mixture) Tree() *dtree.Tree[*linear.Conditional] { return m.tree }

// Choose selects the Gaussian conditional for one mode assignment. Fails
// with ErrPrunedBranch on a nil leaf and core.ErrMissingKey when the
// assignment misses a mode key.
func (m *Mixture) Choose(modes core.DiscreteValues) (*linear.Conditional, error) {
	c, err := m.tree.At(modes)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: mode %s", ErrPrunedBranch, modes)
	}

	return c, nil
}

// Error returns the leaf error plus the leaf's normalization offset,
// comparable across modes. Fails with ErrPrunedBranch on a pruned leaf.
func (m *Mixture) Error(v core.HybridValues) (float64, error) {
	c, err := m.Choose(v.Discrete)
	if err != nil {
		return 0, err
	}
	e, err := c.Error(v.Continuous)
	if err != nil {
		return 0, err
	}

	return e + m.logConst - c.LogNormalizationConstant(), nil
}

// ErrorTree sweeps Error over every mode assignment at fixed continuous
// values. Pruned leaves map to +Inf.
func (m *Mixture) ErrorTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	return dtree.ConvertE(m.tree, func(c *linear.Conditional) (float64, error) {
		if c == nil {
			return math.Inf(1), nil
		}
		e, err := c.Error(cv)
		if err != nil {
			return 0, err
		}

		return e + m.logConst - c.LogNormalizationConstant(), nil
	})
}

// LogProbability returns log p(frontals | parents, modes) at a full
// assignment, the chosen leaf's own log density.
func (m *Mixture) LogProbability(v core.HybridValues) (float64, error) {
	c, err := m.Choose(v.Discrete)
	if err != nil {
		return 0, err
	}

	return c.LogProbability(v.Continuous)
}

// LogProbabilityTree sweeps LogProbability over every mode assignment at
// fixed continuous values. Pruned leaves map to −Inf.
func (m *Mixture) LogProbabilityTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	errs, err := m.ErrorTree(cv)
	if err != nil {
		return nil, err
	}

	return dtree.Convert(errs, func(e float64) float64 { return m.logConst - e }), nil
}

// Evaluate returns the conditional density at a full assignment.
func (m *Mixture) Evaluate(v core.HybridValues) (float64, error) {
	lp, err := m.LogProbability(v)
	if err != nil {
		return 0, err
	}

	return math.Exp(lp), nil
}

// Likelihood fixes the frontals to measured values and returns the mixture
// factor over the continuous parents and modes. Each leaf keeps its
// normalization offset, so posterior mode comparison stays calibrated.
func (m *Mixture) Likelihood(measured core.VectorValues) (*MixtureFactor, error) {
	tree, err := dtree.ConvertE(m.tree, func(c *linear.Conditional) (*FactorLeaf, error) {
		if c == nil {
			return nil, nil
		}
		f, err := c.Likelihood(measured)
		if err != nil {
			return nil, err
		}

		return &FactorLeaf{Factor: f, LogNormalizer: m.logConst - c.LogNormalizationConstant()}, nil
	})
	if err != nil {
		return nil, err
	}

	return NewMixtureFactorFromTree(m.Parents(), tree)
}

// AsFactor rewrites the mixture as a factor over frontals, parents and
// modes, preserving the per-leaf normalization offsets.
func (m *Mixture) AsFactor() (*MixtureFactor, error) {
	tree, err := dtree.ConvertE(m.tree, func(c *linear.Conditional) (*FactorLeaf, error) {
		if c == nil {
			return nil, nil
		}
		f, err := c.AsJacobian()
		if err != nil {
			return nil, err
		}

		return &FactorLeaf{Factor: f, LogNormalizer: m.logConst - c.LogNormalizationConstant()}, nil
	})
	if err != nil {
		return nil, err
	}

	return NewMixtureFactorFromTree(append(m.Frontals(), m.parents...), tree)
}

// Prune nulls out every leaf whose mode assignment has no extension with
// positive mass in pruned, then recomputes the normalization offset over the
// survivors. The pruned factor may branch on a superset of the mixture's
// modes.
func (m *Mixture) Prune(pruned *discrete.Factor) (*Mixture, error) {
	var ext core.DiscreteKeys
	for _, dk := range pruned.Keys() {
		if i := m.modes.IndexOf(dk.Key); i >= 0 {
			if m.modes[i].Cardinality != dk.Cardinality {
				return nil, fmt.Errorf("%w: mode %s cardinality mismatch",
					dtree.ErrBadCardinality, core.DefaultKeyFormatter(dk.Key))
			}
			continue
		}
		ext = append(ext, dk)
	}

	total := ext.NumAssignments()
	tree := dtree.ConvertWith(m.tree, func(values core.DiscreteValues, c *linear.Conditional) *linear.Conditional {
		if c == nil {
			return nil
		}
		for i := 0; i < total; i++ {
			full := values.Clone()
			idx := i
			for j := len(ext) - 1; j >= 0; j-- {
				full[ext[j].Key] = idx % ext[j].Cardinality
				idx /= ext[j].Cardinality
			}
			v, err := pruned.Value(full)
			if err != nil {
				// Unreachable: full covers every pruned key.
				panic(fmt.Sprintf("hybrid: prune lookup failed: %v", err))
			}
			if v > 0 {
				return c
			}
		}

		return nil
	})

	return newMixture(m.frontals, m.parents, tree)
}

// Equal reports whether both mixtures share structure and pairwise-equal
// leaves within tol. Pruned leaves must match positionally.
func (m *Mixture) Equal(other *Mixture, tol float64) bool {
	if other == nil || !slices.Equal(m.frontals, other.frontals) ||
		!slices.Equal(m.parents, other.parents) || !m.modes.Equal(other.modes) {
		return false
	}

	return m.tree.Equal(other.tree, func(a, b *linear.Conditional) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}

		return a.Equal(b, tol)
	})
}

// String renders the mixture header and one leaf per mode assignment,
// "pruned" where a leaf was removed.
func (m *Mixture) String(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("Mixture p(")
	sb.WriteString(core.FormatKeys(m.frontals, kf))
	if len(m.parents) > 0 {
		sb.WriteString(" | ")
		sb.WriteString(core.FormatKeys(m.parents, kf))
	}
	sb.WriteString("; ")
	sb.WriteString(core.FormatKeys(m.modes.Keys(), kf))
	sb.WriteString(")\n")
	sb.WriteString(m.tree.String(kf, func(c *linear.Conditional) string {
		if c == nil {
			return "pruned"
		}

		return strings.TrimSuffix(c.StringWith(kf), "\n")
	}))

	return sb.String()
}
