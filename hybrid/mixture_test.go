package hybrid_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/dtree"
	"github.com/DanMcGann/gtsam/hybrid"
	"github.com/DanMcGann/gtsam/linear"
)

var (
	x0 = core.Sym('x', 0)
	x1 = core.Sym('x', 1)
	m0 = core.DiscreteKey{Key: core.Sym('m', 0), Cardinality: 2}
	m1 = core.DiscreteKey{Key: core.Sym('m', 1), Cardinality: 2}
)

// prior returns p(key) = N(mu, sigma²) as a one-dimensional conditional.
func prior(t *testing.T, key core.Key, mu, sigma float64) *linear.Conditional {
	t.Helper()
	model, err := linear.Sigmas([]float64{sigma})
	require.NoError(t, err)
	c, err := linear.NewConditional(key, []float64{mu}, mat.NewDense(1, 1, []float64{1}), model)
	require.NoError(t, err)

	return c
}

// chain returns p(key | parent): key = parent + shift + noise(sigma).
func chain(t *testing.T, key, parent core.Key, shift, sigma float64) *linear.Conditional {
	t.Helper()
	model, err := linear.Sigmas([]float64{sigma})
	require.NoError(t, err)
	c, err := linear.NewConditional(key, []float64{shift},
		mat.NewDense(1, 1, []float64{1}), model,
		linear.Term{Key: parent, A: mat.NewDense(1, 1, []float64{-1})})
	require.NoError(t, err)

	return c
}

// twoPriorMixture returns p(x0; m0) with leaves N(mu0, s0²) and N(mu1, s1²).
func twoPriorMixture(t *testing.T, mu0, s0, mu1, s1 float64) *hybrid.Mixture {
	t.Helper()
	m, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, mu0, s0), prior(t, x0, mu1, s1)})
	require.NoError(t, err)

	return m
}

// TestNewMixtureValidation rejects trees without modes, leaves with
// mismatched structure, and all-pruned leaf sets.
func TestNewMixtureValidation(t *testing.T) {
	c0 := prior(t, x0, 1, 8)

	_, err := hybrid.NewMixtureFromTree([]core.Key{x0}, nil, dtree.Leaf(c0))
	assert.ErrorIs(t, err, hybrid.ErrBadMixture, "a mixture needs at least one mode key")

	_, err = hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{c0, prior(t, x1, 3, 4)})
	assert.ErrorIs(t, err, hybrid.ErrBadMixture, "leaves must share the frontal keys")

	_, err = hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{nil, nil})
	assert.ErrorIs(t, err, hybrid.ErrBadMixture, "at least one leaf must be live")

	_, err = hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{c0})
	assert.ErrorIs(t, err, dtree.ErrLeafCount)

	_, err = hybrid.NewMixtureFromTree([]core.Key{x0}, nil, nil)
	assert.ErrorIs(t, err, dtree.ErrNilOperand)
}

// TestMixtureChoose selects per-mode leaves and reports pruned branches.
func TestMixtureChoose(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)

	c, err := mx.Choose(core.DiscreteValues{m0.Key: 1})
	require.NoError(t, err)
	assert.True(t, c.Equal(prior(t, x0, 3, 4), 1e-12))

	_, err = mx.Choose(core.DiscreteValues{})
	assert.ErrorIs(t, err, core.ErrMissingKey)

	pruned, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, 1, 8), nil})
	require.NoError(t, err)
	_, err = pruned.Choose(core.DiscreteValues{m0.Key: 1})
	assert.ErrorIs(t, err, hybrid.ErrPrunedBranch)
}

// TestMixtureError offsets each leaf's error by its normalization gap: the
// wider mode 0 (sigma 8) carries log 2 against mode 1 (sigma 4).
func TestMixtureError(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)
	cv := core.VectorValues{x0: {2}}

	e0, err := mx.Error(core.HybridValues{Continuous: cv, Discrete: core.DiscreteValues{m0.Key: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/128+math.Log(2), e0, 1e-12)

	e1, err := mx.Error(core.HybridValues{Continuous: cv, Discrete: core.DiscreteValues{m0.Key: 1}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/32, e1, 1e-12)
}

// TestMixtureErrorPruned fails the point query on a pruned branch.
func TestMixtureErrorPruned(t *testing.T) {
	mx, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, 1, 8), nil})
	require.NoError(t, err)

	_, err = mx.Error(core.HybridValues{
		Continuous: core.VectorValues{x0: {2}},
		Discrete:   core.DiscreteValues{m0.Key: 1},
	})
	assert.ErrorIs(t, err, hybrid.ErrPrunedBranch)
}

// TestMixtureErrorTree sweeps the offsets across modes; pruned branches go
// to +Inf.
func TestMixtureErrorTree(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)

	tree, err := mx.ErrorTree(core.VectorValues{x0: {2}})
	require.NoError(t, err)
	e0, err := tree.At(core.DiscreteValues{m0.Key: 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/128+math.Log(2), e0, 1e-12)
	e1, err := tree.At(core.DiscreteValues{m0.Key: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/32, e1, 1e-12)

	pm, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, 1, 8), nil})
	require.NoError(t, err)
	tree, err = pm.ErrorTree(core.VectorValues{x0: {2}})
	require.NoError(t, err)
	e1, err = tree.At(core.DiscreteValues{m0.Key: 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(e1, 1))
}

// TestMixtureDensity matches the chosen leaf's normal density exactly.
func TestMixtureDensity(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)
	v := core.HybridValues{
		Continuous: core.VectorValues{x0: {2}},
		Discrete:   core.DiscreteValues{m0.Key: 1},
	}

	p, err := mx.Evaluate(v)
	require.NoError(t, err)
	want := distuv.Normal{Mu: 3, Sigma: 4}.Prob(2)
	assert.InDelta(t, want, p, 1e-12)

	lp, err := mx.LogProbability(v)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(want), lp, 1e-12)
}

// TestMixtureLogProbabilityTree maps pruned branches to -Inf and live ones
// to the shared constant minus their error.
func TestMixtureLogProbabilityTree(t *testing.T) {
	mx, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, 1, 8), nil})
	require.NoError(t, err)

	tree, err := mx.LogProbabilityTree(core.VectorValues{x0: {1}})
	require.NoError(t, err)
	lp0, err := tree.At(core.DiscreteValues{m0.Key: 0})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(distuv.Normal{Mu: 1, Sigma: 8}.Prob(1)), lp0, 1e-12)
	lp1, err := tree.At(core.DiscreteValues{m0.Key: 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(lp1, -1))
}

// TestMixtureLikelihood fixes the frontal at a measurement; the resulting
// factor reproduces the mixture error surface mode by mode.
func TestMixtureLikelihood(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)
	measured := core.VectorValues{x0: {2}}

	mf, err := mx.Likelihood(measured)
	require.NoError(t, err)
	assert.Empty(t, mf.ContinuousKeys())
	for mode := 0; mode < 2; mode++ {
		v := core.HybridValues{Continuous: measured, Discrete: core.DiscreteValues{m0.Key: mode}}
		want, err := mx.Error(v)
		require.NoError(t, err)
		got, err := mf.Error(core.HybridValues{Discrete: v.Discrete})
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "mode %d", mode)
	}
}

// TestMixtureAsFactor keeps frontals and parents in scope and the error
// surface intact.
func TestMixtureAsFactor(t *testing.T) {
	c0 := chain(t, x0, x1, 1, 2)
	c1 := chain(t, x0, x1, 5, 2)
	mx, err := hybrid.NewMixture([]core.Key{x0}, []core.Key{x1}, core.DiscreteKeys{m0},
		[]*linear.Conditional{c0, c1})
	require.NoError(t, err)

	mf, err := mx.AsFactor()
	require.NoError(t, err)
	assert.Equal(t, []core.Key{x0, x1}, mf.ContinuousKeys())

	cv := core.VectorValues{x0: {3}, x1: {1}}
	for mode := 0; mode < 2; mode++ {
		v := core.HybridValues{Continuous: cv, Discrete: core.DiscreteValues{m0.Key: mode}}
		want, err := mx.Error(v)
		require.NoError(t, err)
		got, err := mf.Error(v)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "mode %d", mode)
	}
}

// TestMixturePrune nulls branches without surviving mass and recomputes the
// normalization offset over the survivors.
func TestMixturePrune(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)

	keep0, err := discrete.NewFactor(core.DiscreteKeys{m0}, []float64{1, 0})
	require.NoError(t, err)
	pm, err := mx.Prune(keep0)
	require.NoError(t, err)

	_, err = pm.Choose(core.DiscreteValues{m0.Key: 1})
	assert.ErrorIs(t, err, hybrid.ErrPrunedBranch)

	// With mode 1 gone the offset resets: mode 0 error at its mean is zero.
	e0, err := pm.Error(core.HybridValues{
		Continuous: core.VectorValues{x0: {1}},
		Discrete:   core.DiscreteValues{m0.Key: 0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, e0, 1e-12)
}

// TestMixturePruneExtension keeps a branch alive when any extension over
// extra pruning keys has mass left.
func TestMixturePruneExtension(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)

	joint, err := discrete.NewFactor(core.DiscreteKeys{m0, m1}, []float64{0, 0, 0.6, 0.4})
	require.NoError(t, err)
	pm, err := mx.Prune(joint)
	require.NoError(t, err)

	_, err = pm.Choose(core.DiscreteValues{m0.Key: 0})
	assert.ErrorIs(t, err, hybrid.ErrPrunedBranch, "both extensions of mode 0 lost their mass")
	_, err = pm.Choose(core.DiscreteValues{m0.Key: 1})
	assert.NoError(t, err)
}

// TestMixturePruneFailure rejects cardinality conflicts and factors that
// remove every branch.
func TestMixturePruneFailure(t *testing.T) {
	mx := twoPriorMixture(t, 1, 8, 3, 4)

	wrong, err := discrete.NewFactor(core.DiscreteKeys{{Key: m0.Key, Cardinality: 3}}, []float64{1, 1, 1})
	require.NoError(t, err)
	_, err = mx.Prune(wrong)
	assert.ErrorIs(t, err, dtree.ErrBadCardinality)

	empty, err := discrete.NewFactor(core.DiscreteKeys{m0}, []float64{0, 0})
	require.NoError(t, err)
	_, err = mx.Prune(empty)
	assert.ErrorIs(t, err, hybrid.ErrBadMixture)
}

// TestMixtureEqual distinguishes leaf parameters and pruning patterns.
func TestMixtureEqual(t *testing.T) {
	a := twoPriorMixture(t, 1, 8, 3, 4)
	b := twoPriorMixture(t, 1, 8, 3, 4)
	assert.True(t, a.Equal(b, 1e-12))

	c := twoPriorMixture(t, 1, 8, 3.5, 4)
	assert.False(t, a.Equal(c, 1e-12))

	p, err := hybrid.NewMixture([]core.Key{x0}, nil, core.DiscreteKeys{m0},
		[]*linear.Conditional{prior(t, x0, 1, 8), nil})
	require.NoError(t, err)
	assert.False(t, a.Equal(p, 1e-12))
	assert.False(t, p.Equal(a, 1e-12))
}

// TestMixtureString renders the conditional header and marks pruned leaves.
func TestMixtureString(t *testing.T) {
	c0 := chain(t, x0, x1, 1, 2)
	mx, err := hybrid.NewMixtureFromTree([]core.Key{x0}, []core.Key{x1},
		mustTree(t, core.DiscreteKeys{m0}, []*linear.Conditional{c0, nil}))
	require.NoError(t, err)

	s := mx.String(core.DefaultKeyFormatter)
	assert.Contains(t, s, "Mixture p(x0 | x1; m0)")
	assert.Contains(t, s, "pruned")
}

// mustTree builds a dense decision tree or fails the test.
func mustTree[V any](t *testing.T, keys core.DiscreteKeys, leaves []V) *dtree.Tree[V] {
	t.Helper()
	tree, err := dtree.New(keys, leaves)
	require.NoError(t, err)

	return tree
}
