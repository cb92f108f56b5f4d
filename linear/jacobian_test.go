package linear_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/linear"
)

var (
	x0 = core.Sym('x', 0)
	x1 = core.Sym('x', 1)
)

// TestNewJacobian_Validation covers row mismatches, duplicate keys and nil
// matrices.
func TestNewJacobian_Validation(t *testing.T) {
	a1 := mat.NewDense(1, 1, []float64{1})
	a2 := mat.NewDense(2, 1, []float64{1, 1})

	_, err := linear.NewJacobian([]float64{0}, nil, linear.Term{Key: x0, A: a2})
	assert.ErrorIs(t, err, linear.ErrDimension, "term rows must match len(b)")

	_, err = linear.NewJacobian([]float64{0}, nil, linear.Term{Key: x0, A: nil})
	assert.ErrorIs(t, err, linear.ErrDimension, "nil matrix must error")

	_, err = linear.NewJacobian([]float64{0}, nil,
		linear.Term{Key: x0, A: a1}, linear.Term{Key: x0, A: a1})
	assert.ErrorIs(t, err, linear.ErrDuplicateKey, "repeated key must error")

	model, err := linear.Sigmas([]float64{1, 1})
	require.NoError(t, err)
	_, err = linear.NewJacobian([]float64{0}, model, linear.Term{Key: x0, A: a1})
	assert.ErrorIs(t, err, linear.ErrDimension, "model dims must match len(b)")
}

// TestJacobianFactor_Error checks the whitened quadratic error on a hand-sized
// single-variable factor: A=[2], b=[4], sigma=2 at x=3 gives ½·((6−4)/2)² = ½.
func TestJacobianFactor_Error(t *testing.T) {
	model, err := linear.Sigmas([]float64{2})
	require.NoError(t, err)
	f, err := linear.NewJacobian([]float64{4}, model,
		linear.Term{Key: x0, A: mat.NewDense(1, 1, []float64{2})})
	require.NoError(t, err)

	v := core.VectorValues{x0: {3}}
	e, err := f.Error(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, e, 1e-12, "whitened error at x=3")

	res, err := f.Residual(v)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2}, res, 1e-12, "residual is A·x − b, unwhitened")
}

// TestJacobianFactor_MissingKey ensures lookups fail with core.ErrMissingKey.
func TestJacobianFactor_MissingKey(t *testing.T) {
	f, err := linear.NewJacobian([]float64{0}, nil,
		linear.Term{Key: x0, A: mat.NewDense(1, 1, []float64{1})})
	require.NoError(t, err)

	_, err = f.Error(core.VectorValues{x1: {1}})
	assert.ErrorIs(t, err, core.ErrMissingKey, "unassigned key must surface ErrMissingKey")
}

// TestJacobianFactor_Constant verifies that a factor with no terms is legal
// and contributes ½‖b‖² regardless of the assignment.
func TestJacobianFactor_Constant(t *testing.T) {
	f, err := linear.NewJacobian([]float64{3, 4}, nil)
	require.NoError(t, err)

	assert.Empty(t, f.Keys(), "constant factor has no keys")
	e, err := f.Error(core.VectorValues{})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, e, 1e-12, "constant error is ½(3²+4²)")
}

// TestJacobianFactor_DimMismatchValue covers an assigned vector of the wrong
// dimension.
func TestJacobianFactor_DimMismatchValue(t *testing.T) {
	f, err := linear.NewJacobian([]float64{0}, nil,
		linear.Term{Key: x0, A: mat.NewDense(1, 2, []float64{1, 1})})
	require.NoError(t, err)

	_, err = f.Error(core.VectorValues{x0: {1}})
	assert.ErrorIs(t, err, linear.ErrDimension, "wrong value dimension must error")
}

// TestJacobianFactor_Equal checks key order sensitivity and tolerance.
func TestJacobianFactor_Equal(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{1})
	f1, err := linear.NewJacobian([]float64{2}, nil,
		linear.Term{Key: x0, A: a}, linear.Term{Key: x1, A: a})
	require.NoError(t, err)
	f2, err := linear.NewJacobian([]float64{2}, nil,
		linear.Term{Key: x1, A: a}, linear.Term{Key: x0, A: a})
	require.NoError(t, err)
	f3, err := linear.NewJacobian([]float64{2}, nil,
		linear.Term{Key: x0, A: a}, linear.Term{Key: x1, A: a})
	require.NoError(t, err)

	assert.True(t, f1.Equal(f3, 1e-9), "identical factors are equal")
	assert.False(t, f1.Equal(f2, 1e-9), "term order matters")
	assert.False(t, f1.Equal(nil, 1e-9), "nil is never equal")
}

// TestJacobianFactor_String ensures the noise-model line distinguishes nil
// from explicit models.
func TestJacobianFactor_String(t *testing.T) {
	f, err := linear.NewJacobian([]float64{0}, nil,
		linear.Term{Key: x0, A: mat.NewDense(1, 1, []float64{1})})
	require.NoError(t, err)
	assert.True(t, strings.Contains(f.String(), "No noise model"), "nil model renders as No noise model")

	model, err := linear.Sigmas([]float64{2})
	require.NoError(t, err)
	g, err := linear.NewJacobian([]float64{0}, model,
		linear.Term{Key: x0, A: mat.NewDense(1, 1, []float64{1})})
	require.NoError(t, err)
	assert.False(t, strings.Contains(g.String(), "No noise model"), "explicit model prints its sigmas")
	assert.True(t, strings.Contains(g.String(), "diagonal sigmas"), "explicit model prints its sigmas")
}
