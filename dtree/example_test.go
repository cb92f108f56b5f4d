package dtree_test

import (
	"fmt"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/dtree"
)

// ExampleTree_String renders a two-leaf error table.
func ExampleTree_String() {
	m1 := core.DiscreteKey{Key: core.Sym('m', 1), Cardinality: 2}
	errs, _ := dtree.New(core.DiscreteKeys{m1}, []int{1, 4})

	fmt.Println(errs.String(nil, nil))
	// Output:
	// Choice(m1)
	//   0: Leaf 1
	//   1: Leaf 4
}

// ExampleCombine sums two per-mode tables defined over different keys.
func ExampleCombine() {
	m1 := core.DiscreteKey{Key: core.Sym('m', 1), Cardinality: 2}
	m2 := core.DiscreteKey{Key: core.Sym('m', 2), Cardinality: 2}

	left, _ := dtree.New(core.DiscreteKeys{m1}, []int{1, 2})
	right, _ := dtree.New(core.DiscreteKeys{m2}, []int{10, 20})

	sum, _ := dtree.Combine(left, right, func(a, b int) int { return a + b })
	v, _ := sum.At(core.DiscreteValues{m1.Key: 1, m2.Key: 0})

	fmt.Println(v)
	// Output:
	// 12
}
