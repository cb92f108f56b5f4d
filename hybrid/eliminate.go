// SPDX-License-Identifier: MIT
//
// File: eliminate.go
// Role: Sequential hybrid elimination. Continuous keys are eliminated
// first, branch by branch across the mode tree, then discrete keys by
// sum-product over the leftover mode weights, yielding an ancestral hybrid
// Bayes net.

package hybrid

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/linear"
)

// Options configures sequential hybrid elimination.
type Options struct {
	// ContinuousOrdering lists the continuous keys to eliminate, in order.
	// Empty means all continuous graph keys in first-appearance order.
	ContinuousOrdering []core.Key
	// DiscreteOrdering lists the discrete keys to eliminate, in order. Empty
	// means all discrete keys in first-appearance order.
	DiscreteOrdering []core.Key
}

// DefaultOptions returns the zero configuration: both phases run over their
// keys in first-appearance order.
func DefaultOptions() Options { return Options{} }

// Option mutates Options.
type Option func(*Options)

// WithContinuousOrdering fixes the continuous elimination order. Panics
// when called with no keys; pass no Option at all for the default order.
func WithContinuousOrdering(keys ...core.Key) Option {
	if len(keys) == 0 {
		panic("hybrid: WithContinuousOrdering requires at least one key")
	}

	return func(o *Options) { o.ContinuousOrdering = append([]core.Key(nil), keys...) }
}

// WithDiscreteOrdering fixes the discrete elimination order. Panics when
// called with no keys; pass no Option at all for the default order.
func WithDiscreteOrdering(keys ...core.Key) Option {
	if len(keys) == 0 {
		panic("hybrid: WithDiscreteOrdering requires at least one key")
	}

	return func(o *Options) { o.DiscreteOrdering = append([]core.Key(nil), keys...) }
}

// leafElim carries one mode branch's elimination output while the union
// separator is assembled.
type leafElim struct {
	cond   *linear.Conditional
	rem    *linear.JacobianFactor
	scalar float64
}

// EliminateSequential eliminates every variable of the graph and returns
// the hybrid Bayes net, stored parents-first. Continuous keys go first so
// that each mode branch reduces to a Gaussian subproblem; the branch
// residuals and normalization constants then weigh the discrete phase.
func (fg *FactorGraph) EliminateSequential(opts ...Option) (*BayesNet, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// 1) Working sets. Discrete factors rest until the continuous phase is
	// done.
	plain := fg.GaussianFactors()
	mixes := fg.MixtureFactors()
	disc := fg.DiscreteFactors()

	contOrder := o.ContinuousOrdering
	if len(contOrder) == 0 {
		contOrder = fg.ContinuousKeys()
	}

	var emitted []*Node

	// 2) Continuous phase: eliminate each key across all mode branches at
	// once. Keyed remainders rejoin the pool; keyless Gaussian remainders
	// are mode-independent constants and drop.
	for _, key := range contOrder {
		var invPlain, restPlain []*linear.JacobianFactor
		for _, f := range plain {
			if slices.Contains(f.Keys(), key) {
				invPlain = append(invPlain, f)
			} else {
				restPlain = append(restPlain, f)
			}
		}
		var invMix, restMix []*MixtureFactor
		for _, m := range mixes {
			if slices.Contains(m.ContinuousKeys(), key) {
				invMix = append(invMix, m)
			} else {
				restMix = append(restMix, m)
			}
		}

		if len(invMix) == 0 {
			if len(invPlain) == 0 {
				return nil, fmt.Errorf("%w: %s", core.ErrMissingKey, core.DefaultKeyFormatter(key))
			}
			cond, rem, err := linear.EliminateOne(invPlain, key)
			if err != nil {
				return nil, err
			}
			n, err := NewGaussianNode(cond)
			if err != nil {
				return nil, err
			}
			emitted = append(emitted, n)
			if rem != nil && len(rem.Keys()) > 0 {
				restPlain = append(restPlain, rem)
			}
			plain, mixes = restPlain, restMix
			continue
		}

		node, rem, err := eliminateHybridKey(invPlain, invMix, key)
		if err != nil {
			return nil, err
		}
		emitted = append(emitted, node)
		if rem != nil {
			restMix = append(restMix, rem)
		}
		plain, mixes = restPlain, restMix
	}

	// 3) Leftover continuous material means the ordering fell short.
	// Mixture factors with nothing continuous left turn into mode weights.
	for _, f := range plain {
		if len(f.Keys()) > 0 {
			return nil, fmt.Errorf("%w: continuous %s", ErrIncompleteOrdering,
				core.FormatKeys(f.Keys(), core.DefaultKeyFormatter))
		}
	}
	for _, m := range mixes {
		w, err := weightFactor(m)
		if err != nil {
			return nil, err
		}
		disc = append(disc, w)
	}

	// 4) Discrete phase: sum-product elimination over the original discrete
	// factors plus the mode weights.
	discOrder := o.DiscreteOrdering
	if len(discOrder) == 0 {
		var keys core.DiscreteKeys
		for _, f := range disc {
			keys = keys.Union(f.Keys())
		}
		discOrder = keys.Keys()
	}
	for _, key := range discOrder {
		var inv, rest []*discrete.Factor
		for _, f := range disc {
			if f.Keys().Contains(key) {
				inv = append(inv, f)
			} else {
				rest = append(rest, f)
			}
		}
		cond, marg, err := discrete.EliminateSum(inv, key)
		if err != nil {
			return nil, err
		}
		n, err := NewDiscreteNode(cond)
		if err != nil {
			return nil, err
		}
		emitted = append(emitted, n)
		if marg != nil && len(marg.Keys()) > 0 {
			rest = append(rest, marg)
		}
		disc = rest
	}
	for _, f := range disc {
		if len(f.Keys()) > 0 {
			return nil, fmt.Errorf("%w: discrete %s", ErrIncompleteOrdering,
				core.FormatKeys(f.Keys().Keys(), core.DefaultKeyFormatter))
		}
	}

	// 5) Reverse the elimination order: the last conditional has no parents
	// and must sit first.
	bn := NewBayesNet()
	for i := len(emitted) - 1; i >= 0; i-- {
		if err := bn.Push(emitted[i]); err != nil {
			return nil, err
		}
	}

	return bn, nil
}

// eliminateHybridKey eliminates one continuous key jointly from mixture
// factors and any plain factors on it, branch by branch. It returns the
// mixture conditional p(key | separator, modes) and a remainder mixture
// factor over the separator carrying each branch's accumulated energy
// offset.
func eliminateHybridKey(plain []*linear.JacobianFactor, mixes []*MixtureFactor, key core.Key) (*Node, *MixtureFactor, error) {
	// 1) Join the involved mixtures into one factor-set tree over the union
	// of their modes.
	acc := mixes[0].SetTree()
	var err error
	for _, m := range mixes[1:] {
		acc, err = AddSetTrees(acc, m.SetTree())
		if err != nil {
			return nil, nil, err
		}
	}

	// 2) Plain factors on the key apply in every branch.
	if len(plain) > 0 {
		acc = dtree.Convert(acc, func(s *FactorSet) *FactorSet {
			if s == nil {
				return nil
			}
			fs := make([]*linear.JacobianFactor, 0, len(s.Factors)+len(plain))
			fs = append(fs, s.Factors...)
			fs = append(fs, plain...)

			return &FactorSet{Factors: fs, Scalar: s.Scalar}
		})
	}

	// 3) Eliminate the key in each branch. The emitted conditional's
	// normalization constant joins the branch scalar.
	res, err := dtree.ConvertE(acc, func(s *FactorSet) (*leafElim, error) {
		if s == nil {
			return nil, nil
		}
		cond, rem, err := linear.EliminateOne(s.Factors, key)
		if err != nil {
			return nil, err
		}

		return &leafElim{cond: cond, rem: rem, scalar: s.Scalar + cond.LogNormalizationConstant()}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 4) Union separator in first-appearance order, with block widths.
	var sep []core.Key
	widths := make(map[core.Key]int)
	err = res.Visit(func(_ core.DiscreteValues, l *leafElim) error {
		if l == nil {
			return nil
		}
		for _, t := range l.cond.ParentTerms() {
			if _, ok := widths[t.Key]; ok {
				continue
			}
			_, c := t.A.Dims()
			widths[t.Key] = c
			sep = append(sep, t.Key)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 5) Pad each branch conditional with zero blocks so every leaf shares
	// the union parent list.
	condTree, err := dtree.ConvertE(res, func(l *leafElim) (*linear.Conditional, error) {
		if l == nil {
			return nil, nil
		}
		have := make(map[core.Key]*mat.Dense)
		for _, t := range l.cond.ParentTerms() {
			have[t.Key] = t.A
		}
		rows := l.cond.Dim()
		terms := make([]linear.Term, 0, len(sep))
		for _, k := range sep {
			a, ok := have[k]
			if !ok {
				a = mat.NewDense(rows, widths[k], nil)
			}
			terms = append(terms, linear.Term{Key: k, A: a})
		}

		return linear.NewConditional(key, l.cond.D(), l.cond.R(), l.cond.Model(), terms...)
	})
	if err != nil {
		return nil, nil, err
	}
	mx, err := NewMixtureFromTree([]core.Key{key}, sep, condTree)
	if err != nil {
		return nil, nil, err
	}
	node, err := NewMixtureNode(mx)
	if err != nil {
		return nil, nil, err
	}

	// 6) Remainder leaves. Keyless residual factors fold into the branch
	// scalar; keyed remainders stay as factors over the separator.
	remTree, err := dtree.ConvertE(res, func(l *leafElim) (*FactorLeaf, error) {
		if l == nil {
			return nil, nil
		}
		leaf := &FactorLeaf{LogNormalizer: l.scalar}
		if l.rem == nil {
			return leaf, nil
		}
		if len(l.rem.Keys()) == 0 {
			e, err := l.rem.Error(nil)
			if err != nil {
				return nil, err
			}
			leaf.LogNormalizer += e

			return leaf, nil
		}
		leaf.Factor = l.rem

		return leaf, nil
	})
	if err != nil {
		return nil, nil, err
	}
	rem, err := NewMixtureFactorFromTree(sep, remTree)
	if err != nil {
		return nil, nil, err
	}

	return node, rem, nil
}

// weightFactor converts a mixture factor with no continuous content left
// into a discrete factor of relative mode weights. The smallest branch
// energy is shifted to zero before exponentiation; the shift scales every
// weight equally and cancels under normalization.
func weightFactor(m *MixtureFactor) (*discrete.Factor, error) {
	var energies []float64
	minE := math.Inf(1)
	err := m.tree.Visit(func(_ core.DiscreteValues, l *FactorLeaf) error {
		if l == nil {
			energies = append(energies, math.Inf(1))

			return nil
		}
		e := l.LogNormalizer
		if l.Factor != nil {
			if len(l.Factor.Keys()) > 0 {
				return fmt.Errorf("%w: continuous %s", ErrIncompleteOrdering,
					core.FormatKeys(l.Factor.Keys(), core.DefaultKeyFormatter))
			}
			fe, ferr := l.Factor.Error(nil)
			if ferr != nil {
				return ferr
			}
			e += fe
		}
		energies = append(energies, e)
		if e < minE {
			minE = e
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	weights := make([]float64, len(energies))
	for i, e := range energies {
		weights[i] = math.Exp(minE - e)
	}

	return discrete.NewFactor(m.Modes(), weights)
}
