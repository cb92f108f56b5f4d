// SPDX-License-Identifier: MIT
//
// File: factorgraph.go
// Role: Mixed factor graph over continuous and discrete variables, the
// input to hybrid elimination.

package hybrid

import (
	"fmt"
	"math"
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/linear"
)

// entry holds one factor of any kind; exactly one field is set.
type entry struct {
	gf *linear.JacobianFactor
	df *discrete.Factor
	mf *MixtureFactor
}

// FactorGraph collects Gaussian, discrete and mixture factors in insertion
// order. The represented density is proportional to exp(-Error).
type FactorGraph struct {
	entries []entry
}

// NewFactorGraph returns an empty hybrid factor graph.
func NewFactorGraph() *FactorGraph {
	return &FactorGraph{}
}

// AddGaussian appends a Gaussian factor. Nil factors are ignored.
func (fg *FactorGraph) AddGaussian(f *linear.JacobianFactor) {
	if f == nil {
		return
	}
	fg.entries = append(fg.entries, entry{gf: f})
}

// AddDiscrete appends a discrete factor. Nil factors are ignored.
func (fg *FactorGraph) AddDiscrete(f *discrete.Factor) {
	if f == nil {
		return
	}
	fg.entries = append(fg.entries, entry{df: f})
}

// AddMixture appends a mixture factor. Nil factors are ignored.
func (fg *FactorGraph) AddMixture(f *MixtureFactor) {
	if f == nil {
		return
	}
	fg.entries = append(fg.entries, entry{mf: f})
}

// Len returns the number of factors.
func (fg *FactorGraph) Len() int { return len(fg.entries) }

// GaussianFactors returns the Gaussian factors in insertion order.
func (fg *FactorGraph) GaussianFactors() []*linear.JacobianFactor {
	var out []*linear.JacobianFactor
	for _, e := range fg.entries {
		if e.gf != nil {
			out = append(out, e.gf)
		}
	}

	return out
}

// DiscreteFactors returns the discrete factors in insertion order.
func (fg *FactorGraph) DiscreteFactors() []*discrete.Factor {
	var out []*discrete.Factor
	for _, e := range fg.entries {
		if e.df != nil {
			out = append(out, e.df)
		}
	}

	return out
}

// MixtureFactors returns the mixture factors in insertion order.
func (fg *FactorGraph) MixtureFactors() []*MixtureFactor {
	var out []*MixtureFactor
	for _, e := range fg.entries {
		if e.mf != nil {
			out = append(out, e.mf)
		}
	}

	return out
}

// ContinuousKeys returns every continuous key in first-appearance order.
func (fg *FactorGraph) ContinuousKeys() []core.Key {
	var keys []core.Key
	seen := make(map[core.Key]struct{})
	add := func(ks []core.Key) {
		for _, k := range ks {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, e := range fg.entries {
		switch {
		case e.gf != nil:
			add(e.gf.Keys())
		case e.mf != nil:
			add(e.mf.ContinuousKeys())
		}
	}

	return keys
}

// DiscreteKeys returns every discrete key in first-appearance order.
func (fg *FactorGraph) DiscreteKeys() core.DiscreteKeys {
	var keys core.DiscreteKeys
	for _, e := range fg.entries {
		switch {
		case e.df != nil:
			keys = keys.Union(e.df.Keys())
		case e.mf != nil:
			keys = keys.Union(e.mf.Modes())
		}
	}

	return keys
}

// Error sums every factor's energy at a full assignment. Discrete factors
// contribute their negative log value.
func (fg *FactorGraph) Error(v core.HybridValues) (float64, error) {
	total := 0.0
	for _, e := range fg.entries {
		switch {
		case e.gf != nil:
			fe, err := e.gf.Error(v.Continuous)
			if err != nil {
				return 0, err
			}
			total += fe
		case e.df != nil:
			fe, err := e.df.Error(v.Discrete)
			if err != nil {
				return 0, err
			}
			total += fe
		default:
			fe, err := e.mf.Error(v)
			if err != nil {
				return 0, err
			}
			total += fe
		}
	}

	return total, nil
}

// ErrorTree sweeps the summed factor energies over every discrete
// assignment at fixed continuous values. Pruned branches map to +Inf.
func (fg *FactorGraph) ErrorTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	acc := dtree.Leaf(0.0)
	for _, e := range fg.entries {
		var t *dtree.Tree[float64]
		var err error
		switch {
		case e.gf != nil:
			fe, ferr := e.gf.Error(cv)
			if ferr != nil {
				return nil, ferr
			}
			t = dtree.Leaf(fe)
		case e.df != nil:
			t = dtree.Convert(e.df.Tree(), func(p float64) float64 { return -math.Log(p) })
		default:
			t, err = e.mf.ErrorTree(cv)
			if err != nil {
				return nil, err
			}
		}
		acc, err = dtree.Combine(acc, t, func(a, b float64) float64 { return a + b })
		if err != nil {
			return nil, err
		}
	}

	return acc, nil
}

// String renders the graph with core.DefaultKeyFormatter.
func (fg *FactorGraph) String() string { return fg.StringWith(core.DefaultKeyFormatter) }

// StringWith renders every factor in insertion order using the given
// formatter.
func (fg *FactorGraph) StringWith(kf core.KeyFormatter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HybridFactorGraph size %d\n", len(fg.entries))
	for i, e := range fg.entries {
		switch {
		case e.gf != nil:
			fmt.Fprintf(&sb, "factor %d: Continuous %s\n%s", i,
				formatHybridKeys(e.gf.Keys(), nil, kf), e.gf.StringWith(kf))
		case e.df != nil:
			fmt.Fprintf(&sb, "factor %d: Discrete %s\n%s", i,
				formatHybridKeys(nil, e.df.Keys(), kf), e.df.String(kf))
		default:
			fmt.Fprintf(&sb, "factor %d: Hybrid %s\n%s\n", i,
				formatHybridKeys(e.mf.ContinuousKeys(), e.mf.Modes(), kf), e.mf.String(kf))
		}
	}

	return sb.String()
}
