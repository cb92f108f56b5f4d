package discrete_test

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
)

// TestNewConditional_Prior parses a parentless spec and normalizes it.
func TestNewConditional_Prior(t *testing.T) {
	m0 := dk('m', 0, 2)
	c, err := discrete.NewConditional(core.DiscreteKeys{m0}, nil, "1/1")
	require.NoError(t, err)

	assert.Empty(t, c.Parents())
	for a := 0; a < 2; a++ {
		p, err := c.Evaluate(core.DiscreteValues{m0.Key: a})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, p, 1e-12, "1/1 normalizes to a uniform prior")
	}
}

// TestNewConditional_WithParent checks per-row normalization of "4/1 1/4".
func TestNewConditional_WithParent(t *testing.T) {
	m0, c0 := dk('m', 0, 2), dk('c', 0, 2)
	c, err := discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "4/1 1/4")
	require.NoError(t, err)

	assert.Equal(t, core.DiscreteKeys{m0}, c.Parents())
	assert.Equal(t, core.DiscreteKeys{c0}, c.Frontals())

	for _, tc := range []struct {
		m, cv int
		want  float64
	}{
		{0, 0, 0.8}, {0, 1, 0.2}, {1, 0, 0.2}, {1, 1, 0.8},
	} {
		p, err := c.Evaluate(core.DiscreteValues{m0.Key: tc.m, c0.Key: tc.cv})
		require.NoError(t, err)
		assert.InDelta(t, tc.want, p, 1e-12, "rows normalize independently")
	}
}

// TestNewConditional_SpecErrors covers malformed spec strings.
func TestNewConditional_SpecErrors(t *testing.T) {
	m0, c0 := dk('m', 0, 2), dk('c', 0, 2)

	_, err := discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "4/1")
	assert.ErrorIs(t, err, discrete.ErrSpecFormat, "row count must match parent assignments")

	_, err = discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "4/1/2 1/4")
	assert.ErrorIs(t, err, discrete.ErrSpecFormat, "entry count must match frontal assignments")

	_, err = discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "4/x 1/4")
	assert.ErrorIs(t, err, discrete.ErrSpecFormat, "entries must parse as floats")

	_, err = discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "0/0 1/4")
	assert.ErrorIs(t, err, discrete.ErrZeroMass, "a row needs positive mass")

	_, err = discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "-1/2 1/4")
	assert.ErrorIs(t, err, discrete.ErrBadProbability, "negative weights are rejected")

	_, err = discrete.NewConditional(nil, core.DiscreteKeys{m0}, "1/1")
	assert.ErrorIs(t, err, discrete.ErrSpecFormat, "at least one frontal required")
}

// TestNewConditionalFromFactor normalizes a joint table per parent row.
func TestNewConditionalFromFactor(t *testing.T) {
	m0, m1 := dk('m', 0, 2), dk('m', 1, 2)
	f, err := discrete.NewFactor(core.DiscreteKeys{m0, m1}, []float64{0.1, 0.3, 0.2, 0.4})
	require.NoError(t, err)

	c, err := discrete.NewConditionalFromFactor(core.DiscreteKeys{m1}, f)
	require.NoError(t, err)
	assert.Equal(t, core.DiscreteKeys{m0}, c.Parents(), "non-frontal keys become parents")

	p, err := c.Evaluate(core.DiscreteValues{m0.Key: 0, m1.Key: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12, "0.3 / (0.1+0.3)")
	p, err = c.Evaluate(core.DiscreteValues{m0.Key: 1, m1.Key: 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, p, 1e-12, "0.2 / (0.2+0.4)")

	_, err = discrete.NewConditionalFromFactor(core.DiscreteKeys{dk('z', 0, 2)}, f)
	assert.ErrorIs(t, err, discrete.ErrBadFrontals, "frontals must appear in the factor")

	_, err = discrete.NewConditionalFromFactor(core.DiscreteKeys{dk('m', 1, 3)}, f)
	assert.ErrorIs(t, err, discrete.ErrBadFrontals, "cardinalities must match the factor")
}

// TestNewConditionalFromFactor_ZeroRow keeps pruned rows at zero instead of
// renormalizing them.
func TestNewConditionalFromFactor_ZeroRow(t *testing.T) {
	m0, m1 := dk('m', 0, 2), dk('m', 1, 2)
	f, err := discrete.NewFactor(core.DiscreteKeys{m0, m1}, []float64{0, 0, 0.2, 0.6})
	require.NoError(t, err)

	c, err := discrete.NewConditionalFromFactor(core.DiscreteKeys{m1}, f)
	require.NoError(t, err)

	p, err := c.Evaluate(core.DiscreteValues{m0.Key: 0, m1.Key: 0})
	require.NoError(t, err)
	assert.Zero(t, p, "zero-mass rows stay zero")
	p, err = c.Evaluate(core.DiscreteValues{m0.Key: 1, m1.Key: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12, "live rows normalize as usual")

	e, err := c.Error(core.DiscreteValues{m0.Key: 0, m1.Key: 0})
	require.NoError(t, err)
	assert.True(t, math.IsInf(e, 1), "zero probability has infinite error")
}

// TestConditional_SampleDeterministic samples from degenerate rows.
func TestConditional_SampleDeterministic(t *testing.T) {
	m0, c0 := dk('m', 0, 2), dk('c', 0, 2)
	c, err := discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "1/0 0/1")
	require.NoError(t, err)

	src := rand.NewPCG(1, 2)
	for i := 0; i < 20; i++ {
		s, err := c.Sample(core.DiscreteValues{m0.Key: 0}, src)
		require.NoError(t, err)
		assert.Equal(t, 0, s[c0.Key], "row m=0 always draws c=0")

		s, err = c.Sample(core.DiscreteValues{m0.Key: 1}, src)
		require.NoError(t, err)
		assert.Equal(t, 1, s[c0.Key], "row m=1 always draws c=1")
	}

	_, err = c.Sample(core.DiscreteValues{}, src)
	assert.ErrorIs(t, err, core.ErrMissingKey, "sampling needs the parent assignment")
}

// TestConditional_SampleFrequency draws from a 3/1 prior and checks the
// observed frequency.
func TestConditional_SampleFrequency(t *testing.T) {
	m0 := dk('m', 0, 2)
	c, err := discrete.NewConditional(core.DiscreteKeys{m0}, nil, "3/1")
	require.NoError(t, err)

	src := rand.NewPCG(5, 17)
	const n = 4000
	zeros := 0
	for i := 0; i < n; i++ {
		s, err := c.Sample(core.DiscreteValues{}, src)
		require.NoError(t, err)
		if s[m0.Key] == 0 {
			zeros++
		}
	}
	assert.InDelta(t, 0.75, float64(zeros)/n, 0.03, "frequency tracks the 3/1 weights")
}

// TestConditional_SampleZeroRow fails on a fully pruned row.
func TestConditional_SampleZeroRow(t *testing.T) {
	m0, m1 := dk('m', 0, 2), dk('m', 1, 2)
	f, err := discrete.NewFactor(core.DiscreteKeys{m0, m1}, []float64{0, 0, 0.2, 0.6})
	require.NoError(t, err)
	c, err := discrete.NewConditionalFromFactor(core.DiscreteKeys{m1}, f)
	require.NoError(t, err)

	_, err = c.Sample(core.DiscreteValues{m0.Key: 0}, nil)
	assert.ErrorIs(t, err, discrete.ErrZeroMass, "cannot draw from a zero row")
}

// TestConditional_String shows frontals before parents.
func TestConditional_String(t *testing.T) {
	m0, c0 := dk('m', 0, 2), dk('c', 0, 2)
	c, err := discrete.NewConditional(core.DiscreteKeys{c0}, core.DiscreteKeys{m0}, "4/1 1/4")
	require.NoError(t, err)

	s := c.String(core.DefaultKeyFormatter)
	assert.True(t, strings.HasPrefix(s, "P(c0 | m0)"), "header names frontals then parents")
	assert.Contains(t, s, "0.8", "rows are normalized in the printout")
}
