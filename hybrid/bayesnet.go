// SPDX-License-Identifier: MIT
//
// File: bayesnet.go
// Role: Hybrid Bayes net: an ancestral sequence of discrete, Gaussian and
// mixture conditionals with joint evaluation, MPE, sampling, pruning and
// conversion back to a factor graph.

package hybrid

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/linear"
)

// BayesNet is a directed hybrid model stored parents-first: every node's
// parents are frontal in some earlier node. The joint density is the
// product of the node conditionals.
type BayesNet struct {
	nodes    []*Node
	frontals map[core.Key]struct{}
}

// NewBayesNet returns an empty hybrid Bayes net.
func NewBayesNet() *BayesNet {
	return &BayesNet{frontals: make(map[core.Key]struct{})}
}

// Push appends a node. Its frontal keys must be new and its parent keys,
// discrete modes included, must be frontal in an earlier node.
func (bn *BayesNet) Push(n *Node) error {
	if n == nil {
		return ErrIllFormedNode
	}
	for _, k := range n.FrontalKeys() {
		if _, ok := bn.frontals[k]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFrontal, core.DefaultKeyFormatter(k))
		}
	}
	for _, k := range n.ParentKeys() {
		if _, ok := bn.frontals[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnresolvedParent, core.DefaultKeyFormatter(k))
		}
	}

	bn.nodes = append(bn.nodes, n)
	for _, k := range n.FrontalKeys() {
		bn.frontals[k] = struct{}{}
	}

	return nil
}

// PushDiscrete wraps and appends a discrete conditional.
func (bn *BayesNet) PushDiscrete(c *discrete.Conditional) error {
	n, err := NewDiscreteNode(c)
	if err != nil {
		return err
	}

	return bn.Push(n)
}

// PushGaussian wraps and appends a Gaussian conditional.
func (bn *BayesNet) PushGaussian(c *linear.Conditional) error {
	n, err := NewGaussianNode(c)
	if err != nil {
		return err
	}

	return bn.Push(n)
}

// PushMixture wraps and appends a conditional mixture.
func (bn *BayesNet) PushMixture(m *Mixture) error {
	n, err := NewMixtureNode(m)
	if err != nil {
		return err
	}

	return bn.Push(n)
}

// Len returns the number of nodes.
func (bn *BayesNet) Len() int { return len(bn.nodes) }

// At returns the i-th node in net order.
func (bn *BayesNet) At(i int) *Node { return bn.nodes[i] }

// Nodes returns the nodes in net order. The slice is a copy.
func (bn *BayesNet) Nodes() []*Node { return append([]*Node(nil), bn.nodes...) }

// ContinuousKeys returns every continuous key in first-appearance order.
func (bn *BayesNet) ContinuousKeys() []core.Key {
	var keys []core.Key
	seen := make(map[core.Key]struct{})
	for _, n := range bn.nodes {
		for _, k := range n.ContinuousKeys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	return keys
}

// DiscreteKeys returns every discrete key in first-appearance order.
func (bn *BayesNet) DiscreteKeys() core.DiscreteKeys {
	var keys core.DiscreteKeys
	for _, n := range bn.nodes {
		keys = keys.Union(n.DiscreteKeys())
	}

	return keys
}

// Choose fixes a mode assignment and returns the Gaussian Bayes net of the
// surviving continuous conditionals. Discrete nodes drop out; a pruned
// mixture leaf fails with ErrPrunedBranch.
func (bn *BayesNet) Choose(modes core.DiscreteValues) (*linear.BayesNet, error) {
	gbn := linear.NewBayesNet()
	for _, n := range bn.nodes {
		switch n.category {
		case CategoryDiscrete:
			continue
		case CategoryContinuous:
			if err := gbn.Push(n.gc); err != nil {
				return nil, err
			}
		default:
			c, err := n.mx.Choose(modes)
			if err != nil {
				return nil, err
			}
			if err := gbn.Push(c); err != nil {
				return nil, err
			}
		}
	}

	return gbn, nil
}

// Error sums the node energies at a full assignment.
func (bn *BayesNet) Error(v core.HybridValues) (float64, error) {
	total := 0.0
	for _, n := range bn.nodes {
		e, err := n.Error(v)
		if err != nil {
			return 0, err
		}
		total += e
	}

	return total, nil
}

// LogProbability sums the node log densities at a full assignment.
func (bn *BayesNet) LogProbability(v core.HybridValues) (float64, error) {
	total := 0.0
	for _, n := range bn.nodes {
		lp, err := n.LogProbability(v)
		if err != nil {
			return 0, err
		}
		total += lp
	}

	return total, nil
}

// Evaluate returns the joint density at a full assignment.
func (bn *BayesNet) Evaluate(v core.HybridValues) (float64, error) {
	lp, err := bn.LogProbability(v)
	if err != nil {
		return 0, err
	}

	return math.Exp(lp), nil
}

// LogProbabilityTree sweeps the joint log density over every discrete
// assignment at fixed continuous values. Pruned branches map to −Inf.
func (bn *BayesNet) LogProbabilityTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	acc := dtree.Leaf(0.0)
	for _, n := range bn.nodes {
		var t *dtree.Tree[float64]
		var err error
		switch n.category {
		case CategoryDiscrete:
			t = dtree.Convert(n.dc.AsFactor().Tree(), math.Log)
		case CategoryContinuous:
			lp, lerr := n.gc.LogProbability(cv)
			if lerr != nil {
				return nil, lerr
			}
			t = dtree.Leaf(lp)
		default:
			t, err = n.mx.LogProbabilityTree(cv)
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

// EvaluateTree sweeps the joint density over every discrete assignment at
// fixed continuous values. Pruned branches map to 0.
func (bn *BayesNet) EvaluateTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	lpt, err := bn.LogProbabilityTree(cv)
	if err != nil {
		return nil, err
	}

	return dtree.Convert(lpt, math.Exp), nil
}

// ErrorTree sweeps the summed node energies over every discrete assignment
// at fixed continuous values. Pruned branches map to +Inf.
func (bn *BayesNet) ErrorTree(cv core.VectorValues) (*dtree.Tree[float64], error) {
	acc := dtree.Leaf(0.0)
	for _, n := range bn.nodes {
		var t *dtree.Tree[float64]
		var err error
		switch n.category {
		case CategoryDiscrete:
			t = dtree.Convert(n.dc.AsFactor().Tree(), func(p float64) float64 { return -math.Log(p) })
		case CategoryContinuous:
			e, eerr := n.gc.Error(cv)
			if eerr != nil {
				return nil, eerr
			}
			t = dtree.Leaf(e)
		default:
			t, err = n.mx.ErrorTree(cv)
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

// bestModes maximizes the product of the discrete conditionals in log
// space. Ties keep the earliest canonical assignment. With no discrete
// nodes the assignment is empty.
func (bn *BayesNet) bestModes() (core.DiscreteValues, error) {
	acc := dtree.Leaf(0.0)
	found := false
	for _, n := range bn.nodes {
		if n.category != CategoryDiscrete {
			continue
		}
		found = true
		t := dtree.Convert(n.dc.AsFactor().Tree(), math.Log)
		var err error
		acc, err = dtree.Combine(acc, t, func(a, b float64) float64 { return a + b })
		if err != nil {
			return nil, err
		}
	}
	if !found {
		return core.DiscreteValues{}, nil
	}

	var best core.DiscreteValues
	bestLP := math.Inf(-1)
	err := acc.Visit(func(values core.DiscreteValues, lp float64) error {
		if lp > bestLP {
			bestLP = lp
			best = values
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, fmt.Errorf("hybrid: optimize: %w", discrete.ErrZeroMass)
	}

	return best, nil
}

// Optimize returns the most probable assignment in two phases: the best
// mode assignment from the discrete nodes, then the exact continuous
// maximum conditioned on it.
func (bn *BayesNet) Optimize() (core.HybridValues, error) {
	modes, err := bn.bestModes()
	if err != nil {
		return core.HybridValues{}, err
	}
	cont, err := bn.OptimizeAssignment(modes)
	if err != nil {
		return core.HybridValues{}, err
	}

	return core.HybridValues{Continuous: cont, Discrete: modes}, nil
}

// OptimizeAssignment returns the continuous maximum for one fixed mode
// assignment.
func (bn *BayesNet) OptimizeAssignment(modes core.DiscreteValues) (core.VectorValues, error) {
	gbn, err := bn.Choose(modes)
	if err != nil {
		return nil, err
	}

	return gbn.Optimize(nil)
}

// Sample draws one joint sample ancestrally. A nil src uses the global
// generator.
func (bn *BayesNet) Sample(src rand.Source) (core.HybridValues, error) {
	return bn.SampleGiven(core.HybridValues{}, src)
}

// SampleGiven draws one joint sample ancestrally, keeping the given values
// fixed and sampling only the remaining frontals.
func (bn *BayesNet) SampleGiven(given core.HybridValues, src rand.Source) (core.HybridValues, error) {
	out := core.HybridValues{
		Continuous: given.Continuous.Clone(),
		Discrete:   given.Discrete.Clone(),
	}
	for _, n := range bn.nodes {
		switch n.category {
		case CategoryDiscrete:
			if out.Discrete.ContainsAll(n.dc.Frontals().Keys()) {
				continue
			}
			sampled, err := n.dc.Sample(out.Discrete, src)
			if err != nil {
				return core.HybridValues{}, err
			}
			for k, a := range sampled {
				if _, ok := out.Discrete[k]; !ok {
					out.Discrete[k] = a
				}
			}
		case CategoryContinuous:
			if err := sampleContinuous(n.gc, out.Continuous, src); err != nil {
				return core.HybridValues{}, err
			}
		default:
			c, err := n.mx.Choose(out.Discrete)
			if err != nil {
				return core.HybridValues{}, err
			}
			if err := sampleContinuous(c, out.Continuous, src); err != nil {
				return core.HybridValues{}, err
			}
		}
	}

	return out, nil
}

// sampleContinuous draws the conditional's frontals into vv unless they are
// all already present, never overwriting existing entries.
func sampleContinuous(c *linear.Conditional, vv core.VectorValues, src rand.Source) error {
	if vv.ContainsAll(c.Frontals()) {
		return nil
	}
	sampled, err := c.Sample(vv, src)
	if err != nil {
		return err
	}
	for k, x := range sampled {
		if _, ok := vv[k]; !ok {
			vv[k] = x
		}
	}

	return nil
}

// Prune keeps the maxLeaves most probable discrete assignments. The
// discrete nodes collapse into one normalized joint conditional at the
// front of the returned net, and every mixture leaf whose assignment lost
// all probability mass is nulled out. A net without discrete nodes is
// returned unchanged.
func (bn *BayesNet) Prune(maxLeaves int) (*BayesNet, error) {
	var joint *discrete.Factor
	for _, n := range bn.nodes {
		if n.category != CategoryDiscrete {
			continue
		}
		f := n.dc.AsFactor()
		if joint == nil {
			joint = f
			continue
		}
		var err error
		joint, err = joint.Mul(f)
		if err != nil {
			return nil, err
		}
	}
	if joint == nil {
		return bn, nil
	}

	prunedF, err := joint.Prune(maxLeaves)
	if err != nil {
		return nil, err
	}
	jointCond, err := discrete.NewConditionalFromFactor(prunedF.Keys(), prunedF)
	if err != nil {
		return nil, err
	}

	out := NewBayesNet()
	if err := out.PushDiscrete(jointCond); err != nil {
		return nil, err
	}
	for _, n := range bn.nodes {
		switch n.category {
		case CategoryDiscrete:
			continue
		case CategoryContinuous:
			if err := out.PushGaussian(n.gc); err != nil {
				return nil, err
			}
		default:
			pm, err := n.mx.Prune(prunedF)
			if err != nil {
				return nil, err
			}
			if err := out.PushMixture(pm); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// ToFactorGraph conditions the net on measured frontal values and returns
// the resulting factor graph. Conditionals whose frontals are all measured
// become likelihood factors, conditionals with none measured pass through
// as factors, and partial coverage fails with ErrMissingMeasurement.
func (bn *BayesNet) ToFactorGraph(measurements core.VectorValues) (*FactorGraph, error) {
	fg := NewFactorGraph()
	for _, n := range bn.nodes {
		switch n.category {
		case CategoryDiscrete:
			fg.AddDiscrete(n.dc.AsFactor())
		case CategoryContinuous:
			switch covered(n.gc.Frontals(), measurements) {
			case all:
				lf, err := n.gc.Likelihood(measurements)
				if err != nil {
					return nil, err
				}
				fg.AddGaussian(lf)
			case none:
				jf, err := n.gc.AsJacobian()
				if err != nil {
					return nil, err
				}
				fg.AddGaussian(jf)
			default:
				return nil, fmt.Errorf("%w: conditional on %s", ErrMissingMeasurement,
					core.FormatKeys(n.gc.Frontals(), core.DefaultKeyFormatter))
			}
		default:
			switch covered(n.mx.Frontals(), measurements) {
			case all:
				mf, err := n.mx.Likelihood(measurements)
				if err != nil {
					return nil, err
				}
				fg.AddMixture(mf)
			case none:
				mf, err := n.mx.AsFactor()
				if err != nil {
					return nil, err
				}
				fg.AddMixture(mf)
			default:
				return nil, fmt.Errorf("%w: mixture on %s", ErrMissingMeasurement,
					core.FormatKeys(n.mx.Frontals(), core.DefaultKeyFormatter))
			}
		}
	}

	return fg, nil
}

type coverage int

const (
	none coverage = iota
	partial
	all
)

// covered classifies how many of the keys appear in vv.
func covered(keys []core.Key, vv core.VectorValues) coverage {
	hits := 0
	for _, k := range keys {
		if _, ok := vv[k]; ok {
			hits++
		}
	}
	switch hits {
	case 0:
		return none
	case len(keys):
		return all
	default:
		return partial
	}
}

// Equal reports whether both nets hold pairwise-equal nodes within tol.
func (bn *BayesNet) Equal(other *BayesNet, tol float64) bool {
	if other == nil || len(bn.nodes) != len(other.nodes) {
		return false
	}
	for i, n := range bn.nodes {
		if !n.Equal(other.nodes[i], tol) {
			return false
		}
	}

	return true
}

// String renders the net with core.DefaultKeyFormatter.
func (bn *BayesNet) String() string { return bn.StringWith(core.DefaultKeyFormatter) }

// StringWith renders every node in net order using the given formatter.
func (bn *BayesNet) StringWith(kf core.KeyFormatter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HybridBayesNet size %d\n", len(bn.nodes))
	for i, n := range bn.nodes {
		fmt.Fprintf(&sb, "conditional %d: %s\n", i, n.String(kf))
	}

	return sb.String()
}
