// SPDX-License-Identifier: MIT
//
// File: conditional.go
// Role: Gaussian conditional density p(frontals | parents) in square-root
// form R·x_F + Σ_j S_j·x_Pj = d + ε, with solving, sampling and conversion
// back to a Jacobian factor.

package linear

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/DanMcGann/gtsam/core"
)

// Conditional is a Gaussian conditional density over one or more frontal
// variables given zero or more parents:
//
//	R·x_F + Σ_j S_j·x_Pj = d + ε,   ε ~ N(0, diag(σ²))
//
// R is square over the stacked frontal vector. A nil noise model means unit
// sigmas, which is what sequential elimination produces.
type Conditional struct {
	frontals []core.Key
	fdims    []int
	r        *mat.Dense
	parents  []Term
	d        []float64
	model    *Diagonal
}

// NewConditional builds a single-frontal conditional. The frontal dimension
// is taken from len(d); r must be square of that size and every parent matrix
// must have len(d) rows.
func NewConditional(frontal core.Key, d []float64, r *mat.Dense, model *Diagonal, parents ...Term) (*Conditional, error) {
	return NewMultiConditional([]core.Key{frontal}, []int{len(d)}, d, r, model, parents...)
}

// NewMultiConditional builds a conditional over several frontal variables
// with the given per-frontal dimensions. The stacked frontal dimension is the
// sum of dims; r must be square of that size.
func NewMultiConditional(frontals []core.Key, dims []int, d []float64, r *mat.Dense, model *Diagonal, parents ...Term) (*Conditional, error) {
	if len(frontals) == 0 {
		return nil, fmt.Errorf("%w: conditional needs at least one frontal", ErrNilConditional)
	}
	if len(frontals) != len(dims) {
		return nil, fmt.Errorf("%w: %d frontals with %d dims", ErrDimension, len(frontals), len(dims))
	}
	n := 0
	for i, dim := range dims {
		if dim < 1 {
			return nil, fmt.Errorf("%w: frontal %s has dim %d", ErrDimension, core.DefaultKeyFormatter(frontals[i]), dim)
		}
		n += dim
	}
	if len(d) != n {
		return nil, fmt.Errorf("%w: d has %d entries, frontal dims sum to %d", ErrDimension, len(d), n)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: nil R matrix", ErrNilConditional)
	}
	if rr, rc := r.Dims(); rr != n || rc != n {
		return nil, fmt.Errorf("%w: R is %dx%d, want %dx%d", ErrDimension, rr, rc, n, n)
	}
	if model != nil && model.Dim() != n {
		return nil, fmt.Errorf("%w: noise model has %d dims, want %d", ErrDimension, model.Dim(), n)
	}

	seen := make(map[core.Key]struct{}, len(frontals)+len(parents))
	for _, k := range frontals {
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: frontal %s", ErrDuplicateFrontal, core.DefaultKeyFormatter(k))
		}
		seen[k] = struct{}{}
	}
	cp := make([]Term, len(parents))
	for i, p := range parents {
		if p.A == nil {
			return nil, fmt.Errorf("%w: parent %s has a nil matrix", ErrDimension, core.DefaultKeyFormatter(p.Key))
		}
		if pr, _ := p.A.Dims(); pr != n {
			return nil, fmt.Errorf("%w: parent %s has %d rows, want %d", ErrDimension, core.DefaultKeyFormatter(p.Key), pr, n)
		}
		if _, dup := seen[p.Key]; dup {
			return nil, fmt.Errorf("%w: parent %s repeats a key", ErrDuplicateKey, core.DefaultKeyFormatter(p.Key))
		}
		seen[p.Key] = struct{}{}
		cp[i] = Term{Key: p.Key, A: mat.DenseCopyOf(p.A)}
	}

	return &Conditional{
		frontals: append([]core.Key(nil), frontals...),
		fdims:    append([]int(nil), dims...),
		r:        mat.DenseCopyOf(r),
		parents:  cp,
		d:        append([]float64(nil), d...),
		model:    model,
	}, nil
}

// Frontals returns the frontal keys in order.
func (c *Conditional) Frontals() []core.Key { return append([]core.Key(nil), c.frontals...) }

// FrontalDims returns the per-frontal vector dimensions.
func (c *Conditional) FrontalDims() []int { return append([]int(nil), c.fdims...) }

// Parents returns the parent keys in term order.
func (c *Conditional) Parents() []core.Key {
	keys := make([]core.Key, len(c.parents))
	for i, p := range c.parents {
		keys[i] = p.Key
	}

	return keys
}

// Dim returns the stacked frontal dimension.
func (c *Conditional) Dim() int { return len(c.d) }

// Model returns the noise model, nil meaning unit sigmas.
func (c *Conditional) Model() *Diagonal { return c.model }

// R returns the square-root information matrix over the frontals. The matrix
// is shared with the conditional; treat it as read-only.
func (c *Conditional) R() *mat.Dense { return c.r }

// D returns a copy of the right-hand side d.
func (c *Conditional) D() []float64 { return append([]float64(nil), c.d...) }

// ParentTerms returns the parent blocks in term order. The matrices are
// shared with the conditional; treat them as read-only.
func (c *Conditional) ParentTerms() []Term { return append([]Term(nil), c.parents...) }

// stackFrontals concatenates the assigned frontal vectors in frontal order.
func (c *Conditional) stackFrontals(v core.VectorValues) ([]float64, error) {
	xf := make([]float64, 0, len(c.d))
	for i, k := range c.frontals {
		x, err := v.At(k)
		if err != nil {
			return nil, err
		}
		if len(x) != c.fdims[i] {
			return nil, fmt.Errorf("%w: value for %s has dim %d, want %d",
				ErrDimension, core.DefaultKeyFormatter(k), len(x), c.fdims[i])
		}
		xf = append(xf, x...)
	}

	return xf, nil
}

// parentRHS returns d − Σ_j S_j·x_Pj, the right-hand side of the frontal
// solve for a given parent assignment.
func (c *Conditional) parentRHS(v core.VectorValues) ([]float64, error) {
	rhs := append([]float64(nil), c.d...)
	for _, p := range c.parents {
		x, err := v.At(p.Key)
		if err != nil {
			return nil, err
		}
		_, pc := p.A.Dims()
		if len(x) != pc {
			return nil, fmt.Errorf("%w: value for %s has dim %d, want %d",
				ErrDimension, core.DefaultKeyFormatter(p.Key), len(x), pc)
		}
		var sx mat.VecDense
		sx.MulVec(p.A, mat.NewVecDense(pc, x))
		for i := range rhs {
			rhs[i] -= sx.AtVec(i)
		}
	}

	return rhs, nil
}

// splitFrontals slices the stacked solution back into per-frontal vectors.
func (c *Conditional) splitFrontals(x []float64) core.VectorValues {
	out := make(core.VectorValues, len(c.frontals))
	off := 0
	for i, k := range c.frontals {
		out[k] = append([]float64(nil), x[off:off+c.fdims[i]]...)
		off += c.fdims[i]
	}

	return out
}

// Solve computes the frontal mean R⁻¹(d − Σ_j S_j·x_Pj) for the given parent
// assignment and returns it keyed per frontal. Fails with ErrSingular when R
// is not invertible.
func (c *Conditional) Solve(parents core.VectorValues) (core.VectorValues, error) {
	rhs, err := c.parentRHS(parents)
	if err != nil {
		return nil, err
	}
	x, err := c.solveRHS(rhs)
	if err != nil {
		return nil, err
	}

	return c.splitFrontals(x), nil
}

// Sample draws the frontals given the parent assignment: x = R⁻¹(d − S·x_P + ε)
// with ε_i = σ_i·N(0, 1). src selects the random stream; nil uses the global
// source.
func (c *Conditional) Sample(parents core.VectorValues, src rand.Source) (core.VectorValues, error) {
	rhs, err := c.parentRHS(parents)
	if err != nil {
		return nil, err
	}
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range rhs {
		sigma := 1.0
		if c.model != nil {
			sigma = c.model.Sigma(i)
		}
		rhs[i] += sigma * std.Rand()
	}
	x, err := c.solveRHS(rhs)
	if err != nil {
		return nil, err
	}

	return c.splitFrontals(x), nil
}

// solveRHS solves R·x = rhs and returns x as a plain slice.
func (c *Conditional) solveRHS(rhs []float64) ([]float64, error) {
	var x mat.VecDense
	if err := x.SolveVec(c.r, mat.NewVecDense(len(rhs), rhs)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}

	return out, nil
}

// Residual returns R·x_F + Σ_j S_j·x_Pj − d without whitening.
func (c *Conditional) Residual(v core.VectorValues) ([]float64, error) {
	xf, err := c.stackFrontals(v)
	if err != nil {
		return nil, err
	}
	var rx mat.VecDense
	rx.MulVec(c.r, mat.NewVecDense(len(xf), xf))

	rhs, err := c.parentRHS(v)
	if err != nil {
		return nil, err
	}
	res := make([]float64, len(c.d))
	for i := range res {
		res[i] = rx.AtVec(i) - rhs[i]
	}

	return res, nil
}

// Error returns ½‖residual‖² after whitening.
func (c *Conditional) Error(v core.VectorValues) (float64, error) {
	res, err := c.Residual(v)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i, r := range res {
		if c.model != nil {
			r /= c.model.Sigma(i)
		}
		sum += r * r
	}

	return 0.5 * sum, nil
}

// LogNormalizationConstant returns log|det R| − (Σ log σ_i + (n/2)·log 2π),
// the additive constant that turns the negative error into a log density.
func (c *Conditional) LogNormalizationConstant() float64 {
	return math.Log(math.Abs(mat.Det(c.r))) - LogNormalizer(c.model, len(c.d))
}

// LogProbability returns log p(x_F | x_P) = LogNormalizationConstant − Error.
func (c *Conditional) LogProbability(v core.VectorValues) (float64, error) {
	e, err := c.Error(v)
	if err != nil {
		return 0, err
	}

	return c.LogNormalizationConstant() - e, nil
}

// Evaluate returns the conditional density p(x_F | x_P).
func (c *Conditional) Evaluate(v core.VectorValues) (float64, error) {
	lp, err := c.LogProbability(v)
	if err != nil {
		return 0, err
	}

	return math.Exp(lp), nil
}

// Likelihood fixes the frontals to measured values and returns the factor on
// the parents this conditional induces: ½‖Σ_j S_j·x_Pj − (d − R·x_F)‖² under
// the same noise model. With no parents the result is a constant factor.
func (c *Conditional) Likelihood(measured core.VectorValues) (*JacobianFactor, error) {
	xf, err := c.stackFrontals(measured)
	if err != nil {
		return nil, err
	}
	var rx mat.VecDense
	rx.MulVec(c.r, mat.NewVecDense(len(xf), xf))

	b := make([]float64, len(c.d))
	for i := range b {
		b[i] = c.d[i] - rx.AtVec(i)
	}

	return NewJacobian(b, c.model, c.parents...)
}

// AsJacobian rewrites the conditional as the equivalent Jacobian factor over
// frontals followed by parents, with b = d.
func (c *Conditional) AsJacobian() (*JacobianFactor, error) {
	n := len(c.d)
	terms := make([]Term, 0, len(c.frontals)+len(c.parents))
	off := 0
	for i, k := range c.frontals {
		terms = append(terms, Term{Key: k, A: mat.DenseCopyOf(c.r.Slice(0, n, off, off+c.fdims[i]))})
		off += c.fdims[i]
	}
	terms = append(terms, c.parents...)

	return NewJacobian(c.d, c.model, terms...)
}

// Equal reports whether both conditionals share frontal and parent structure
// and agree on R, S, d and the model within tol.
func (c *Conditional) Equal(other *Conditional, tol float64) bool {
	if other == nil || len(c.frontals) != len(other.frontals) || len(c.parents) != len(other.parents) {
		return false
	}
	for i, k := range c.frontals {
		if k != other.frontals[i] || c.fdims[i] != other.fdims[i] {
			return false
		}
	}
	if !mat.EqualApprox(c.r, other.r, tol) {
		return false
	}
	for i, p := range c.parents {
		o := other.parents[i]
		if p.Key != o.Key || !mat.EqualApprox(p.A, o.A, tol) {
			return false
		}
	}
	for i := range c.d {
		if math.Abs(c.d[i]-other.d[i]) > tol {
			return false
		}
	}

	return c.model.Equal(other.model, tol)
}

// String renders the conditional with DefaultKeyFormatter.
func (c *Conditional) String() string { return c.StringWith(core.DefaultKeyFormatter) }

// StringWith renders "p(frontals | parents)" followed by R, the parent
// blocks, d and the noise model ("No noise model" when nil).
func (c *Conditional) StringWith(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("p(")
	sb.WriteString(core.FormatKeys(c.frontals, kf))
	if len(c.parents) > 0 {
		sb.WriteString(" | ")
		sb.WriteString(core.FormatKeys(c.Parents(), kf))
	}
	sb.WriteString(")\n")
	fmt.Fprintf(&sb, "  R = %v\n", mat.Formatted(c.r, mat.Prefix("      ")))
	for _, p := range c.parents {
		label := fmt.Sprintf("  S[%s] = ", kf(p.Key))
		fmt.Fprintf(&sb, "%s%v\n", label, mat.Formatted(p.A, mat.Prefix(strings.Repeat(" ", len(label)))))
	}
	fmt.Fprintf(&sb, "  d = %v\n", c.d)
	if c.model == nil {
		sb.WriteString("  No noise model\n")
	} else {
		fmt.Fprintf(&sb, "  %s\n", c.model)
	}

	return sb.String()
}
