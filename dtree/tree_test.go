package dtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/dtree"
)

// dk builds a DiscreteKey descriptor for tests.
func dk(c byte, j uint64, card int) core.DiscreteKey {
	return core.DiscreteKey{Key: core.Sym(c, j), Cardinality: card}
}

// TestLeaf_SingleValue verifies the trivial tree: no keys, one assignment.
func TestLeaf_SingleValue(t *testing.T) {
	tr := dtree.Leaf(3.5)

	assert.Empty(t, tr.Keys())
	assert.Equal(t, 1, tr.NumAssignments())
	assert.Equal(t, 1, tr.NumLeaves())

	v, err := tr.At(core.DiscreteValues{})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

// TestNew_CanonicalLayout checks the row-major, last-key-fastest leaf order.
func TestNew_CanonicalLayout(t *testing.T) {
	a, b := dk('a', 0, 2), dk('b', 0, 3)
	tr, err := dtree.New(core.DiscreteKeys{a, b}, []int{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, 6, tr.NumAssignments())
	for av := 0; av < 2; av++ {
		for bv := 0; bv < 3; bv++ {
			got, err := tr.At(core.DiscreteValues{a.Key: av, b.Key: bv})
			require.NoError(t, err)
			assert.Equal(t, av*3+bv, got, "assignment (a=%d, b=%d)", av, bv)
		}
	}
}

// TestNew_Validation covers the three construction sentinels.
func TestNew_Validation(t *testing.T) {
	good := dk('a', 0, 2)

	_, err := dtree.New(core.DiscreteKeys{dk('a', 0, 0)}, []int{})
	assert.ErrorIs(t, err, dtree.ErrBadCardinality, "zero cardinality must be rejected")

	_, err = dtree.New(core.DiscreteKeys{good, good}, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, dtree.ErrDuplicateKey, "duplicate branching key must be rejected")

	_, err = dtree.New(core.DiscreteKeys{good}, []int{1, 2, 3})
	assert.ErrorIs(t, err, dtree.ErrLeafCount, "leaf slice length must match the product")
}

// TestAt_MissingAndOutOfRange checks lookup failure modes.
func TestAt_MissingAndOutOfRange(t *testing.T) {
	a := dk('a', 0, 2)
	tr, err := dtree.New(core.DiscreteKeys{a}, []int{7, 8})
	require.NoError(t, err)

	_, err = tr.At(core.DiscreteValues{})
	assert.ErrorIs(t, err, core.ErrMissingKey, "tree key absent from assignment")

	_, err = tr.At(core.DiscreteValues{a.Key: 2})
	assert.ErrorIs(t, err, dtree.ErrBadAssignment, "value beyond cardinality")

	// Extra keys in the assignment are ignored.
	v, err := tr.At(core.DiscreteValues{a.Key: 1, core.Sym('z', 0): 5})
	require.NoError(t, err)
	assert.Equal(t, 8, v)
}

// TestVisit_CanonicalOrder verifies enumeration order and fresh assignment
// maps.
func TestVisit_CanonicalOrder(t *testing.T) {
	a, b := dk('a', 0, 2), dk('b', 0, 2)
	tr, err := dtree.New(core.DiscreteKeys{a, b}, []int{0, 1, 2, 3})
	require.NoError(t, err)

	var order []int
	var maps []core.DiscreteValues
	require.NoError(t, tr.Visit(func(values core.DiscreteValues, v int) error {
		order = append(order, v)
		maps = append(maps, values)
		return nil
	}))

	assert.Equal(t, []int{0, 1, 2, 3}, order, "canonical order is last key fastest")
	require.Len(t, maps, 4)
	assert.NotSame(t, &maps[0], &maps[1], "each visit gets its own assignment map")
	assert.Equal(t, core.DiscreteValues{a.Key: 1, b.Key: 0}, maps[2])
}

// TestEqual_KeyOrderAndLeaves checks semantic equality rules.
func TestEqual_KeyOrderAndLeaves(t *testing.T) {
	a, b := dk('a', 0, 2), dk('b', 0, 2)
	eq := func(x, y int) bool { return x == y }

	t1, err := dtree.New(core.DiscreteKeys{a, b}, []int{0, 1, 2, 3})
	require.NoError(t, err)
	t2, err := dtree.New(core.DiscreteKeys{a, b}, []int{0, 1, 2, 3})
	require.NoError(t, err)
	t3, err := dtree.New(core.DiscreteKeys{b, a}, []int{0, 1, 2, 3})
	require.NoError(t, err)
	t4, err := dtree.New(core.DiscreteKeys{a, b}, []int{0, 1, 2, 9})
	require.NoError(t, err)

	assert.True(t, t1.Equal(t2, eq))
	assert.False(t, t1.Equal(t3, eq), "branch order is part of identity")
	assert.False(t, t1.Equal(t4, eq), "leaf mismatch")
	assert.False(t, t1.Equal(nil, eq))
}

// TestString_Golden pins the rendering format.
func TestString_Golden(t *testing.T) {
	m1 := dk('m', 1, 2)
	tr, err := dtree.New(core.DiscreteKeys{m1}, []int{1, 4})
	require.NoError(t, err)

	want := "Choice(m1)\n  0: Leaf 1\n  1: Leaf 4"
	assert.Equal(t, want, tr.String(nil, nil))
}
