package selection_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memris/selection"
)

func TestUnionCommutativeAndAssociative(t *testing.T) {
	a := selection.FromRefs([]uint64{1, 3, 5})
	b := selection.FromRefs([]uint64{2, 3, 6})
	c := selection.FromRefs([]uint64{7})

	ab := selection.Union(a, b)
	ba := selection.Union(b, a)
	require.Equal(t, ab.Refs(), ba.Refs())

	left := selection.Union(selection.Union(a, b), c)
	right := selection.Union(a, selection.Union(b, c))
	require.Equal(t, left.Refs(), right.Refs())
	require.Equal(t, []uint64{1, 2, 3, 5, 6, 7}, left.Refs())
}

func TestIntersectCommutative(t *testing.T) {
	a := selection.FromRefs([]uint64{1, 2, 3, 4})
	b := selection.FromRefs([]uint64{2, 4, 6})
	require.Equal(t, selection.Intersect(a, b).Refs(), selection.Intersect(b, a).Refs())
	require.Equal(t, []uint64{2, 4}, selection.Intersect(a, b).Refs())
}

func TestSubtractSelfIsEmpty(t *testing.T) {
	a := selection.FromRefs([]uint64{1, 2, 3})
	require.Equal(t, 0, selection.Subtract(a, a).Len())
}

func TestUnionWithEmptyIsIdentity(t *testing.T) {
	a := selection.FromRefs([]uint64{1, 2, 3})
	require.Equal(t, a.Refs(), selection.Union(a, selection.Empty).Refs())
}

func TestContains(t *testing.T) {
	a := selection.FromRefs([]uint64{10, 20, 30})
	require.True(t, a.Contains(20))
	require.False(t, a.Contains(25))
}

func TestFilterLive(t *testing.T) {
	a := selection.FromRefs([]uint64{selection.Pack(0, 1), selection.Pack(1, 1), selection.Pack(2, 1)})
	live := func(p uint64) bool { return selection.Row(p) != 1 }
	filtered := selection.FilterLive(a, live)
	require.Equal(t, []uint64{selection.Pack(0, 1), selection.Pack(2, 1)}, filtered.Refs())
}

func TestFromScanIndicesSkipsTombstoned(t *testing.T) {
	gens := map[uint32]uint32{0: 1, 1: 3, 2: 2}
	tombstoned := map[uint32]bool{1: true}
	sel := selection.FromScanIndices([]uint32{0, 1, 2}, func(row uint32) (uint32, bool) {
		if tombstoned[row] {
			return 0, false
		}
		return gens[row], true
	})
	require.Equal(t, []uint64{selection.Pack(0, 1), selection.Pack(2, 2)}, sel.Refs())
}

func TestIteratorIsLazyAndNonRestartable(t *testing.T) {
	a := selection.FromRefs([]uint64{1, 2, 3})
	it := a.Iterator()
	require.True(t, it.Next())
	require.Equal(t, uint64(1), it.Pref())
	rest := it.ToSlice()
	require.Equal(t, []uint64{2, 3}, rest)
	require.False(t, it.Next())
}
