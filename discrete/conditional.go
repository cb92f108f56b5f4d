// SPDX-License-Identifier: MIT
//
// File: conditional.go
// Role: Discrete conditional p(frontals | parents): a factor whose table is
// normalized per parent assignment, with categorical sampling.

package discrete

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/DanMcGann/gtsam/core"
)

// Conditional is a discrete conditional distribution p(frontals | parents).
// Its table ranges over parents then frontals, so each parent assignment
// selects one normalized row over the frontal assignments. Rows of a pruned
// conditional may be entirely zero.
type Conditional struct {
	frontals core.DiscreteKeys
	parents  core.DiscreteKeys
	factor   *Factor
}

// NewConditional parses a GTSAM-style spec string into a conditional. The
// string holds one row per parent assignment (canonical order, whitespace
// separated); each row lists a relative weight per frontal assignment,
// separated by '/'. Rows are normalized to sum to one, so "4/1 1/4" reads as
// p=0.8/0.2 given parent 0 and p=0.2/0.8 given parent 1.
func NewConditional(frontals, parents core.DiscreteKeys, spec string) (*Conditional, error) {
	if len(frontals) == 0 {
		return nil, fmt.Errorf("%w: no frontal keys", ErrSpecFormat)
	}
	nRows := parents.NumAssignments()
	nCols := frontals.NumAssignments()

	rows := strings.Fields(spec)
	if len(rows) != nRows {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrSpecFormat, len(rows), nRows)
	}

	table := make([]float64, 0, nRows*nCols)
	for r, row := range rows {
		entries := strings.Split(row, "/")
		if len(entries) != nCols {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrSpecFormat, r, len(entries), nCols)
		}
		rowSum := 0.0
		vals := make([]float64, nCols)
		for i, e := range entries {
			v, err := strconv.ParseFloat(e, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d entry %q", ErrSpecFormat, r, e)
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d entry %v", ErrBadProbability, r, v)
			}
			vals[i] = v
			rowSum += v
		}
		if rowSum <= 0 {
			return nil, fmt.Errorf("%w: row %d", ErrZeroMass, r)
		}
		for _, v := range vals {
			table = append(table, v/rowSum)
		}
	}

	keys := append(append(core.DiscreteKeys(nil), parents...), frontals...)
	factor, err := NewFactor(keys, table)
	if err != nil {
		return nil, err
	}

	return &Conditional{
		frontals: append(core.DiscreteKeys(nil), frontals...),
		parents:  append(core.DiscreteKeys(nil), parents...),
		factor:   factor,
	}, nil
}

// NewConditionalFromFactor normalizes a factor into p(frontals | rest). The
// frontal keys must appear in the factor with matching cardinalities; the
// remaining keys become parents. Parent rows with zero mass stay zero, which
// is how pruned branches survive renormalization.
func NewConditionalFromFactor(frontals core.DiscreteKeys, f *Factor) (*Conditional, error) {
	fKeys := f.Keys()
	for _, dk := range frontals {
		i := fKeys.IndexOf(dk.Key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrBadFrontals, core.DefaultKeyFormatter(dk.Key))
		}
		if fKeys[i].Cardinality != dk.Cardinality {
			return nil, fmt.Errorf("%w: %s has cardinality %d, factor says %d",
				ErrBadFrontals, core.DefaultKeyFormatter(dk.Key), dk.Cardinality, fKeys[i].Cardinality)
		}
	}
	var parents core.DiscreteKeys
	for _, dk := range fKeys {
		if !frontals.Contains(dk.Key) {
			parents = append(parents, dk)
		}
	}

	nRows := parents.NumAssignments()
	nCols := frontals.NumAssignments()
	table := make([]float64, nRows*nCols)
	for r := 0; r < nRows; r++ {
		values := assignmentOf(parents, r)
		rowSum := 0.0
		for c := 0; c < nCols; c++ {
			for k, a := range assignmentOf(frontals, c) {
				values[k] = a
			}
			v, err := f.Value(values)
			if err != nil {
				return nil, err
			}
			table[r*nCols+c] = v
			rowSum += v
		}
		if rowSum > 0 {
			for c := 0; c < nCols; c++ {
				table[r*nCols+c] /= rowSum
			}
		}
	}

	keys := append(append(core.DiscreteKeys(nil), parents...), frontals...)
	factor, err := NewFactor(keys, table)
	if err != nil {
		return nil, err
	}

	return &Conditional{
		frontals: append(core.DiscreteKeys(nil), frontals...),
		parents:  parents,
		factor:   factor,
	}, nil
}

// assignmentOf decodes canonical index idx over keys, last key fastest.
func assignmentOf(keys core.DiscreteKeys, idx int) core.DiscreteValues {
	values := make(core.DiscreteValues, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		values[keys[i].Key] = idx % keys[i].Cardinality
		idx /= keys[i].Cardinality
	}

	return values
}

// Frontals returns the frontal keys.
func (c *Conditional) Frontals() core.DiscreteKeys {
	return append(core.DiscreteKeys(nil), c.frontals...)
}

// Parents returns the parent keys.
func (c *Conditional) Parents() core.DiscreteKeys {
	return append(core.DiscreteKeys(nil), c.parents...)
}

// Keys returns parents followed by frontals, matching the table layout.
func (c *Conditional) Keys() core.DiscreteKeys { return c.factor.Keys() }

// AsFactor exposes the normalized table as a plain factor.
func (c *Conditional) AsFactor() *Factor { return c.factor }

// Evaluate returns p(frontals | parents) at the given full assignment.
func (c *Conditional) Evaluate(values core.DiscreteValues) (float64, error) {
	return c.factor.Value(values)
}

// LogProbability returns log p, −Inf where the probability is zero.
func (c *Conditional) LogProbability(values core.DiscreteValues) (float64, error) {
	p, err := c.factor.Value(values)
	if err != nil {
		return 0, err
	}

	return math.Log(p), nil
}

// Error returns −log p, +Inf where the probability is zero.
func (c *Conditional) Error(values core.DiscreteValues) (float64, error) {
	lp, err := c.LogProbability(values)
	if err != nil {
		return 0, err
	}

	return -lp, nil
}

// Sample draws one frontal assignment given the parents. Fails with
// ErrZeroMass when the selected row has no mass (a fully pruned row). src
// selects the random stream; nil uses the global source.
func (c *Conditional) Sample(parents core.DiscreteValues, src rand.Source) (core.DiscreteValues, error) {
	nCols := c.frontals.NumAssignments()
	weights := make([]float64, nCols)
	sum := 0.0
	values := parents.Clone()
	for i := 0; i < nCols; i++ {
		for k, a := range assignmentOf(c.frontals, i) {
			values[k] = a
		}
		w, err := c.factor.Value(values)
		if err != nil {
			return nil, err
		}
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: sampling %s", ErrZeroMass, core.FormatKeys(c.frontals.Keys(), core.DefaultKeyFormatter))
	}

	cat := distuv.NewCategorical(weights, src)

	return assignmentOf(c.frontals, int(cat.Rand())), nil
}

// Equal reports whether both conditionals agree on structure and tables
// within tol.
func (c *Conditional) Equal(other *Conditional, tol float64) bool {
	if other == nil || !c.frontals.Equal(other.frontals) || !c.parents.Equal(other.parents) {
		return false
	}

	return c.factor.Equal(other.factor, tol)
}

// String renders "P(frontals | parents)" and the normalized table rows.
func (c *Conditional) String(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("P(")
	sb.WriteString(core.FormatKeys(c.frontals.Keys(), kf))
	if len(c.parents) > 0 {
		sb.WriteString(" | ")
		sb.WriteString(core.FormatKeys(c.parents.Keys(), kf))
	}
	sb.WriteString(")\n")
	body := c.factor.String(kf)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		sb.WriteString(body[i+1:])
	}

	return sb.String()
}
