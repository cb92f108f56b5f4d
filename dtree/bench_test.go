package dtree_test

import (
	"testing"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/dtree"
)

// benchTree builds a dense float64 tree over n binary keys.
func benchTree(b *testing.B, tag byte, n int) *dtree.Tree[float64] {
	b.Helper()
	keys := make(core.DiscreteKeys, n)
	for i := range keys {
		keys[i] = core.DiscreteKey{Key: core.Sym(tag, uint64(i)), Cardinality: 2}
	}
	leaves := make([]float64, 1<<n)
	for i := range leaves {
		leaves[i] = float64(i)
	}
	tr, err := dtree.New(keys, leaves)
	if err != nil {
		b.Fatal(err)
	}

	return tr
}

// BenchmarkCombine_DisjointKeys measures the union-combine of two trees over
// disjoint key sets (the worst case: every leaf pair is reachable).
func BenchmarkCombine_DisjointKeys(b *testing.B) {
	left := benchTree(b, 'a', 6)
	right := benchTree(b, 'b', 6)
	op := func(x, y float64) float64 { return x + y }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dtree.Combine(left, right, op); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCombine_ConstantOperand measures the memoized path where the right
// operand never branches.
func BenchmarkCombine_ConstantOperand(b *testing.B) {
	left := benchTree(b, 'a', 10)
	right := dtree.Leaf(1.0)
	op := func(x, y float64) float64 { return x + y }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dtree.Combine(left, right, op); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAt measures a point lookup on a 10-key tree.
func BenchmarkAt(b *testing.B) {
	tr := benchTree(b, 'a', 10)
	values := core.DiscreteValues{}
	for i := 0; i < 10; i++ {
		values[core.Sym('a', uint64(i))] = i % 2
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tr.At(values); err != nil {
			b.Fatal(err)
		}
	}
}
