// SPDX-License-Identifier: MIT
//
// File: mixture_factor.go
// Role: Mode-indexed Gaussian factor: one Jacobian factor plus a scalar
// energy offset per discrete mode assignment.

package hybrid

import (
	"fmt"
	"math"
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/linear"
)

// FactorLeaf is one mode's contribution inside a MixtureFactor. A nil
// *FactorLeaf marks a pruned branch. A live leaf with a nil Factor carries
// only its scalar offset.
type FactorLeaf struct {
	Factor        *linear.JacobianFactor
	LogNormalizer float64
}

// MixtureFactor is a factor over continuous keys whose numeric content
// switches with a discrete mode assignment. The per-leaf LogNormalizer adds
// to the leaf factor's error so that modes with different noise scales
// compete on one log-probability scale.
type MixtureFactor struct {
	continuous []core.Key
	modes      core.DiscreteKeys
	tree       *dtree.Tree[*FactorLeaf]
}

// NewMixtureFactor builds a mixture factor from a dense factor list in
// canonical mode order, all scalar offsets zero. A nil factor entry marks a
// pruned branch.
func NewMixtureFactor(continuous []core.Key, modes core.DiscreteKeys, factors []*linear.JacobianFactor) (*MixtureFactor, error) {
	leaves := make([]*FactorLeaf, len(factors))
	for i, f := range factors {
		if f == nil {
			continue
		}
		leaves[i] = &FactorLeaf{Factor: f}
	}
	tree, err := dtree.New(modes, leaves)
	if err != nil {
		return nil, err
	}

	return newMixtureFactor(continuous, tree)
}

// NewMixtureFactorFromTree builds a mixture factor from an existing leaf
// tree; the mode keys are the tree's branching keys.
func NewMixtureFactorFromTree(continuous []core.Key, tree *dtree.Tree[*FactorLeaf]) (*MixtureFactor, error) {
	if tree == nil {
		return nil, dtree.ErrNilOperand
	}

	return newMixtureFactor(continuous, tree)
}

func newMixtureFactor(continuous []core.Key, tree *dtree.Tree[*FactorLeaf]) (*MixtureFactor, error) {
	modes := tree.Keys()
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w: no mode keys", ErrBadMixture)
	}

	allowed := make(map[core.Key]struct{}, len(continuous))
	for _, k := range continuous {
		allowed[k] = struct{}{}
	}
	live := 0
	err := tree.Visit(func(values core.DiscreteValues, l *FactorLeaf) error {
		if l == nil {
			return nil
		}
		live++
		if l.Factor == nil {
			return nil
		}
		for _, k := range l.Factor.Keys() {
			if _, ok := allowed[k]; !ok {
				return fmt.Errorf("%w: leaf at %s uses key %s outside the factor scope",
					ErrBadMixture, values, core.DefaultKeyFormatter(k))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if live == 0 {
		return nil, fmt.Errorf("%w: no live leaf", ErrBadMixture)
	}

	return &MixtureFactor{
		continuous: append([]core.Key(nil), continuous...),
		modes:      modes,
		tree:       tree,
	}, nil
}

// ContinuousKeys returns the continuous keys the factor may touch.
func (m *MixtureFactor) ContinuousKeys() []core.Key {
	return append([]core.Key(nil), m.continuous...)
}

// Modes returns the discrete mode keys.
func (m *MixtureFactor) Modes() core.DiscreteKeys {
	return append(core.DiscreteKeys(nil), m.modes...)
}

// Tree returns the underlying leaf tree.
func (m *MixtureFactor) Tree() *dtree.Tree[*FactorLeaf] { return m.tree }

// Choose selects one mode's leaf. Fails with ErrPrunedBranch on a nil leaf.
func (m *MixtureFactor) Choose(modes core.DiscreteValues) (*FactorLeaf, error) {
	l, err := m.tree.At(modes)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: mode %s", ErrPrunedBranch, modes)
	}

	return l, nil
}

// Error returns the selected leaf's factor error plus its scalar offset.
// Fails with ErrPrunedBranch on a pruned leaf.
func (m *MixtureFactor) Error(v core.HybridValues) (float64, error) {
	l, err := m.Choose(v.Discrete)
	if err != nil {
		return 0, err
	}
	e := l.LogNormalizer
	if l.Factor != nil {
		fe, err := l.Factor.Error(v.Continuous)
		if err != nil {
			return 0, err
		}
		e += fe
	}

	return e, nil
}

// ErrorTree sweeps Error over every mode assignment at fixed continuous
// values. Pruned leaves map to +Inf.
func (m *MixtureFactor) ErrorTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	return dtree.ConvertE(m.tree, func(l *FactorLeaf) (float64, error) {
		if l == nil {
			return math.Inf(1), nil
		}
		e := l.LogNormalizer
		if l.Factor != nil {
			fe, err := l.Factor.Error(cv)
			if err != nil {
				return 0, err
			}
			e += fe
		}

		return e, nil
	})
}

// FactorSet is a sum of Gaussian factors plus a scalar energy offset,
// the leaf payload while mixture factors are being combined. A nil
// *FactorSet marks a pruned branch.
type FactorSet struct {
	Factors []*linear.JacobianFactor
	Scalar  float64
}

// SetTree lifts the factor into factor-set form, one singleton set per live
// leaf.
func (m *MixtureFactor) SetTree() *dtree.Tree[*FactorSet] {
	return dtree.Convert(m.tree, func(l *FactorLeaf) *FactorSet {
		if l == nil {
			return nil
		}
		s := &FactorSet{Scalar: l.LogNormalizer}
		if l.Factor != nil {
			s.Factors = []*linear.JacobianFactor{l.Factor}
		}

		return s
	})
}

// AddSetTrees combines two factor-set trees leafwise: factor lists
// concatenate, scalars add, and a pruned branch on either side prunes the
// result.
func AddSetTrees(a, b *dtree.Tree[*FactorSet]) (*dtree.Tree[*FactorSet], error) {
	return dtree.Combine(a, b, func(x, y *FactorSet) *FactorSet {
		if x == nil || y == nil {
			return nil
		}
		fs := make([]*linear.JacobianFactor, 0, len(x.Factors)+len(y.Factors))
		fs = append(fs, x.Factors...)
		fs = append(fs, y.Factors...)

		return &FactorSet{Factors: fs, Scalar: x.Scalar + y.Scalar}
	})
}

// Plus sums this factor with another leafwise, branching on the union of
// their modes.
func (m *MixtureFactor) Plus(other *MixtureFactor) (*dtree.Tree[*FactorSet], error) {
	if other == nil {
		return nil, dtree.ErrNilOperand
	}

	return AddSetTrees(m.SetTree(), other.SetTree())
}

// Equal reports whether both factors share scope and pairwise-equal leaves
// within tol.
func (m *MixtureFactor) Equal(other *MixtureFactor, tol float64) bool {
	if other == nil || len(m.continuous) != len(other.continuous) || !m.modes.Equal(other.modes) {
		return false
	}
	for i, k := range m.continuous {
		if other.continuous[i] != k {
			return false
		}
	}

	return m.tree.Equal(other.tree, func(a, b *FactorLeaf) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		if math.Abs(a.LogNormalizer-b.LogNormalizer) > tol {
			return false
		}
		if a.Factor == nil || b.Factor == nil {
			return a.Factor == nil && b.Factor == nil
		}

		return a.Factor.Equal(b.Factor, tol)
	})
}

// String renders the factor scope and one leaf per mode assignment.
func (m *MixtureFactor) String(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("MixtureFactor ")
	sb.WriteString(formatHybridKeys(m.continuous, m.modes, kf))
	sb.WriteString("\n")
	sb.WriteString(m.tree.String(kf, func(l *FactorLeaf) string {
		if l == nil {
			return "pruned"
		}
		var ls strings.Builder
		if l.Factor != nil {
			ls.WriteString(strings.TrimSuffix(l.Factor.StringWith(kf), "\n"))
		} else {
			ls.WriteString("no factor")
		}
		if l.LogNormalizer != 0 {
			fmt.Fprintf(&ls, "\nscalar: %g", l.LogNormalizer)
		}

		return ls.String()
	}))

	return sb.String()
}
