// SPDX-License-Identifier: MIT
//
// File: eliminate.go
// Role: Sum-product elimination of a single discrete variable from a factor
// product.

package discrete

import (
	"fmt"

	"github.com/DanMcGann/gtsam/core"
)

// EliminateSum multiplies the given factors and splits the product into
// p(key | rest) and the marginal over rest:
//
//	Π_i f_i(key, rest) = p(key | rest) · m(rest)
//
// At least one factor must involve key. Rows with zero mass yield a zero
// conditional row and a zero marginal entry, which keeps pruned tables
// consistent through elimination.
func EliminateSum(factors []*Factor, key core.Key) (*Conditional, *Factor, error) {
	if len(factors) == 0 {
		return nil, nil, fmt.Errorf("%w: no factors involve %s", core.ErrMissingKey, core.DefaultKeyFormatter(key))
	}
	product := factors[0]
	var err error
	for _, f := range factors[1:] {
		if product, err = product.Mul(f); err != nil {
			return nil, nil, err
		}
	}

	keys := product.Keys()
	i := keys.IndexOf(key)
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: no factors involve %s", core.ErrMissingKey, core.DefaultKeyFormatter(key))
	}

	cond, err := NewConditionalFromFactor(core.DiscreteKeys{keys[i]}, product)
	if err != nil {
		return nil, nil, err
	}
	marginal, err := product.SumOut(key)
	if err != nil {
		return nil, nil, err
	}

	return cond, marginal, nil
}
