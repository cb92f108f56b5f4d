// SPDX-License-Identifier: MIT
//
// File: jacobian.go
// Role: Linear Gaussian factor ½‖Σ_j A_j·x_j − b‖² over ordered variable
// blocks, with an optional diagonal noise model applied by whitening.

package linear

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/DanMcGann/gtsam/core"
)

// Term is one variable block of a Jacobian factor: a key and the coefficient
// matrix multiplying that variable's vector.
type Term struct {
	Key core.Key
	A   *mat.Dense
}

// JacobianFactor is the linear Gaussian factor
//
//	E(x) = ½ ‖ Σ_j A_j·x_j − b ‖²   (in whitened coordinates)
//
// over the ordered variable blocks terms. A factor with no terms is legal and
// contributes the constant error ½‖b‖²; elimination emits such factors to
// carry residuals of fully eliminated subproblems.
type JacobianFactor struct {
	terms []Term
	b     []float64
	model *Diagonal
}

// NewJacobian builds a factor from the right-hand side b, an optional noise
// model (nil means unit sigmas) and the ordered variable terms. Every term
// matrix must have len(b) rows; keys must be distinct.
func NewJacobian(b []float64, model *Diagonal, terms ...Term) (*JacobianFactor, error) {
	rows := len(b)
	if model != nil && model.Dim() != rows {
		return nil, fmt.Errorf("%w: noise model has %d dims, b has %d", ErrDimension, model.Dim(), rows)
	}

	seen := make(map[core.Key]struct{}, len(terms))
	cp := make([]Term, len(terms))
	for i, t := range terms {
		if t.A == nil {
			return nil, fmt.Errorf("%w: term %s has a nil matrix", ErrDimension, core.DefaultKeyFormatter(t.Key))
		}
		if r, _ := t.A.Dims(); r != rows {
			return nil, fmt.Errorf("%w: term %s has %d rows, b has %d", ErrDimension, core.DefaultKeyFormatter(t.Key), r, rows)
		}
		if _, dup := seen[t.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, core.DefaultKeyFormatter(t.Key))
		}
		seen[t.Key] = struct{}{}
		cp[i] = Term{Key: t.Key, A: mat.DenseCopyOf(t.A)}
	}

	return &JacobianFactor{terms: cp, b: append([]float64(nil), b...), model: model}, nil
}

// Keys returns the factor's variable keys in term order.
func (j *JacobianFactor) Keys() []core.Key {
	keys := make([]core.Key, len(j.terms))
	for i, t := range j.terms {
		keys[i] = t.Key
	}

	return keys
}

// Rows returns the number of measurement rows.
func (j *JacobianFactor) Rows() int { return len(j.b) }

// Model returns the noise model, nil when the factor is already whitened.
func (j *JacobianFactor) Model() *Diagonal { return j.model }

// Terms returns the variable blocks in order. The matrices are shared with
// the factor; treat them as read-only.
func (j *JacobianFactor) Terms() []Term { return append([]Term(nil), j.terms...) }

// RHS returns a copy of the right-hand side b.
func (j *JacobianFactor) RHS() []float64 { return append([]float64(nil), j.b...) }

// Residual returns Σ_j A_j·x_j − b without whitening. Every term key must be
// assigned in v with the matching dimension.
func (j *JacobianFactor) Residual(v core.VectorValues) ([]float64, error) {
	r := make([]float64, len(j.b))
	for i := range r {
		r[i] = -j.b[i]
	}
	for _, t := range j.terms {
		x, err := v.At(t.Key)
		if err != nil {
			return nil, err
		}
		_, c := t.A.Dims()
		if len(x) != c {
			return nil, fmt.Errorf("%w: value for %s has dim %d, want %d",
				ErrDimension, core.DefaultKeyFormatter(t.Key), len(x), c)
		}
		var ax mat.VecDense
		ax.MulVec(t.A, mat.NewVecDense(c, x))
		for i := range r {
			r[i] += ax.AtVec(i)
		}
	}

	return r, nil
}

// Error returns ½‖residual‖² after whitening by the noise model.
func (j *JacobianFactor) Error(v core.VectorValues) (float64, error) {
	r, err := j.Residual(v)
	if err != nil {
		return 0, err
	}
	if j.model != nil {
		r = j.model.Whiten(r)
	}

	return 0.5 * floats.Dot(r, r), nil
}

// Equal reports whether both factors have the same keys in the same order and
// matrices, right-hand sides and models equal within tol.
func (j *JacobianFactor) Equal(other *JacobianFactor, tol float64) bool {
	if other == nil || len(j.terms) != len(other.terms) || len(j.b) != len(other.b) {
		return false
	}
	for i, t := range j.terms {
		o := other.terms[i]
		if t.Key != o.Key || !mat.EqualApprox(t.A, o.A, tol) {
			return false
		}
	}
	if len(j.b) > 0 && !floats.EqualApprox(j.b, other.b, tol) {
		return false
	}

	return j.model.Equal(other.model, tol)
}

// String renders the factor with DefaultKeyFormatter.
func (j *JacobianFactor) String() string { return j.StringWith(core.DefaultKeyFormatter) }

// StringWith renders the factor using kf for keys: one block per term, the
// right-hand side, and the noise model ("No noise model" when nil).
func (j *JacobianFactor) StringWith(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("JacobianFactor")
	if len(j.terms) == 0 {
		sb.WriteString(" (constant)")
	}
	sb.WriteByte('\n')
	for _, t := range j.terms {
		fmt.Fprintf(&sb, "  A[%s] = %v\n", kf(t.Key), mat.Formatted(t.A, mat.Prefix(strings.Repeat(" ", len("  A[] = ")+len(kf(t.Key))))))
	}
	fmt.Fprintf(&sb, "  b = %v\n", j.b)
	if j.model == nil {
		sb.WriteString("  No noise model\n")
	} else {
		fmt.Fprintf(&sb, "  %s\n", j.model)
	}

	return sb.String()
}
