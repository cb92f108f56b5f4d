// SPDX-License-Identifier: MIT
//
// File: eliminate.go
// Role: Dense QR elimination of Jacobian factor graphs into Bayes nets, one
// variable at a time. EliminateOne is the single-variable kernel reused by
// the hybrid layer; EliminateSequential drives it over a full ordering.

package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/DanMcGann/gtsam/core"
)

// zeroTol is the magnitude below which a stacked-system entry is treated as
// exactly zero when splitting elimination results.
const zeroTol = 1e-12

// Options configures sequential elimination.
type Options struct {
	// Ordering lists the keys to eliminate, in order. Empty means all graph
	// keys in first-appearance order.
	Ordering []core.Key
}

// DefaultOptions returns the zero configuration: eliminate every key in
// first-appearance order.
func DefaultOptions() Options { return Options{} }

// Option mutates Options.
type Option func(*Options)

// WithOrdering fixes the elimination order. Panics when called with no keys;
// pass no Option at all for the default order.
func WithOrdering(keys ...core.Key) Option {
	if len(keys) == 0 {
		panic("linear: WithOrdering requires at least one key")
	}

	return func(o *Options) { o.Ordering = append([]core.Key(nil), keys...) }
}

// FactorGraph is an ordered collection of Jacobian factors whose errors add.
type FactorGraph struct {
	factors []*JacobianFactor
}

// NewFactorGraph returns an empty graph.
func NewFactorGraph() *FactorGraph { return &FactorGraph{} }

// Add appends a factor. Nil factors are ignored.
func (fg *FactorGraph) Add(f *JacobianFactor) {
	if f != nil {
		fg.factors = append(fg.factors, f)
	}
}

// Len returns the number of factors.
func (fg *FactorGraph) Len() int { return len(fg.factors) }

// At returns the i-th factor.
func (fg *FactorGraph) At(i int) *JacobianFactor { return fg.factors[i] }

// Factors returns the factors in insertion order.
func (fg *FactorGraph) Factors() []*JacobianFactor {
	return append([]*JacobianFactor(nil), fg.factors...)
}

// Keys returns all variable keys in first-appearance order.
func (fg *FactorGraph) Keys() []core.Key {
	var keys []core.Key
	seen := make(map[core.Key]struct{})
	for _, f := range fg.factors {
		for _, t := range f.terms {
			if _, ok := seen[t.Key]; !ok {
				seen[t.Key] = struct{}{}
				keys = append(keys, t.Key)
			}
		}
	}

	return keys
}

// Error returns the summed factor error ½‖A·x − b‖² at v.
func (fg *FactorGraph) Error(v core.VectorValues) (float64, error) {
	sum := 0.0
	for _, f := range fg.factors {
		e, err := f.Error(v)
		if err != nil {
			return 0, err
		}
		sum += e
	}

	return sum, nil
}

// EliminateOne jointly eliminates key from the given factors. It returns the
// conditional p(key | separator) and a remainder factor over the separator,
// nil when elimination consumed the system exactly. The remainder may have no
// terms at all: a constant factor carrying the residual ½‖b‖² of the
// eliminated rows.
//
// Every factor must involve key. Dimensions of shared keys must agree across
// factors. The produced conditional has a nil (unit) noise model because the
// stacked system is whitened before factorization.
func EliminateOne(factors []*JacobianFactor, key core.Key) (*Conditional, *JacobianFactor, error) {
	if len(factors) == 0 {
		return nil, nil, fmt.Errorf("%w: no factors involve %s", core.ErrMissingKey, core.DefaultKeyFormatter(key))
	}

	// 1) Agree on per-key widths and collect the separator in first-appearance
	//    order.
	widths := make(map[core.Key]int)
	var separator []core.Key
	rows := 0
	sawKey := false
	for _, f := range factors {
		if f == nil {
			return nil, nil, fmt.Errorf("%w: nil factor", ErrDimension)
		}
		rows += len(f.b)
		for _, t := range f.terms {
			_, w := t.A.Dims()
			if prev, ok := widths[t.Key]; ok {
				if prev != w {
					return nil, nil, fmt.Errorf("%w: key %s appears with widths %d and %d",
						ErrDimension, core.DefaultKeyFormatter(t.Key), prev, w)
				}
			} else {
				widths[t.Key] = w
				if t.Key != key {
					separator = append(separator, t.Key)
				}
			}
			if t.Key == key {
				sawKey = true
			}
		}
	}
	if !sawKey {
		return nil, nil, fmt.Errorf("%w: no factors involve %s", core.ErrMissingKey, core.DefaultKeyFormatter(key))
	}

	// 2) Column layout: frontal block first, separator blocks after, the
	//    right-hand side as the last column.
	wf := widths[key]
	offsets := map[core.Key]int{key: 0}
	cols := wf
	for _, s := range separator {
		offsets[s] = cols
		cols += widths[s]
	}

	// 3) Stack the whitened rows of every factor into [A | b]. QR requires at
	//    least as many rows as columns, so the matrix is zero-padded.
	stacked := mat.NewDense(max(rows, cols+1), cols+1, nil)
	rowOff := 0
	for _, f := range factors {
		for i := 0; i < len(f.b); i++ {
			w := 1.0
			if f.model != nil {
				w = 1 / f.model.Sigma(i)
			}
			for _, t := range f.terms {
				off := offsets[t.Key]
				_, tc := t.A.Dims()
				for cI := 0; cI < tc; cI++ {
					stacked.Set(rowOff+i, off+cI, w*t.A.At(i, cI))
				}
			}
			stacked.Set(rowOff+i, cols, w*f.b[i])
		}
		rowOff += len(f.b)
	}

	// 4) Factorize. Only R matters; Q is orthogonal and leaves ‖·‖² intact.
	var qr mat.QR
	qr.Factorize(stacked)
	var rFull mat.Dense
	qr.RTo(&rFull)

	// Normalize row signs so diagonals are non-negative. Row sign flips do
	// not change the quadratic form.
	r := mat.DenseCopyOf(rFull.Slice(0, cols+1, 0, cols+1))
	for i := 0; i <= cols; i++ {
		if r.At(i, i) < 0 {
			for c := i; c <= cols; c++ {
				r.Set(i, c, -r.At(i, c))
			}
		}
	}

	// 5) Split: top wf rows form the conditional on key.
	for i := 0; i < wf; i++ {
		if r.At(i, i) < zeroTol {
			return nil, nil, fmt.Errorf("%w: eliminating %s", ErrSingular, core.DefaultKeyFormatter(key))
		}
	}
	rf := mat.DenseCopyOf(r.Slice(0, wf, 0, wf))
	d := make([]float64, wf)
	for i := 0; i < wf; i++ {
		d[i] = r.At(i, cols)
	}
	var parents []Term
	for _, s := range separator {
		off := offsets[s]
		parents = append(parents, Term{Key: s, A: mat.DenseCopyOf(r.Slice(0, wf, off, off+widths[s]))})
	}
	cond, err := NewConditional(key, d, rf, nil, parents...)
	if err != nil {
		return nil, nil, err
	}

	// 6) Rows wf..cols form the remainder over the separator. Rows that are
	//    entirely zero are dropped; separator keys whose blocks vanish in the
	//    kept rows are dropped too, so a residual-only remainder ends up with
	//    no terms.
	var keptRows []int
	for i := wf; i <= cols; i++ {
		nonzero := false
		for c := wf; c <= cols; c++ {
			if abs := r.At(i, c); abs > zeroTol || abs < -zeroTol {
				nonzero = true
				break
			}
		}
		if nonzero {
			keptRows = append(keptRows, i)
		}
	}
	if len(keptRows) == 0 {
		return cond, nil, nil
	}

	b := make([]float64, len(keptRows))
	for i, row := range keptRows {
		b[i] = r.At(row, cols)
	}
	var remTerms []Term
	for _, s := range separator {
		off := offsets[s]
		block := mat.NewDense(len(keptRows), widths[s], nil)
		nonzero := false
		for i, row := range keptRows {
			for c := 0; c < widths[s]; c++ {
				v := r.At(row, off+c)
				block.Set(i, c, v)
				if v > zeroTol || v < -zeroTol {
					nonzero = true
				}
			}
		}
		if nonzero {
			remTerms = append(remTerms, Term{Key: s, A: block})
		}
	}
	rem, err := NewJacobian(b, nil, remTerms...)
	if err != nil {
		return nil, nil, err
	}

	return cond, rem, nil
}

// EliminateSequential eliminates every graph key and returns the equivalent
// Bayes net in ancestral order. With WithOrdering the given order is used:
// it must cover the whole graph, or the call fails with
// ErrIncompleteOrdering.
//
// The remainder left after the last elimination carries only residual
// constants; it is dropped, since a Bayes net is normalized by construction.
func (fg *FactorGraph) EliminateSequential(opts ...Option) (*BayesNet, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	ordering := options.Ordering
	if len(ordering) == 0 {
		ordering = fg.Keys()
	}

	work := append([]*JacobianFactor(nil), fg.factors...)
	emitted := make([]*Conditional, 0, len(ordering))
	for _, key := range ordering {
		var involved, rest []*JacobianFactor
		for _, f := range work {
			hasKey := false
			for _, t := range f.terms {
				if t.Key == key {
					hasKey = true
					break
				}
			}
			if hasKey {
				involved = append(involved, f)
			} else {
				rest = append(rest, f)
			}
		}
		cond, rem, err := EliminateOne(involved, key)
		if err != nil {
			return nil, err
		}
		emitted = append(emitted, cond)
		work = rest
		if rem != nil && len(rem.terms) > 0 {
			work = append(work, rem)
		}
	}
	for _, f := range work {
		if len(f.terms) > 0 {
			return nil, fmt.Errorf("%w: %s not eliminated", ErrIncompleteOrdering,
				core.FormatKeys(f.Keys(), core.DefaultKeyFormatter))
		}
	}

	// Reversing the elimination order puts parents first, which is exactly
	// the ancestral invariant Push checks.
	bn := NewBayesNet()
	for i := len(emitted) - 1; i >= 0; i-- {
		if err := bn.Push(emitted[i]); err != nil {
			return nil, err
		}
	}

	return bn, nil
}
