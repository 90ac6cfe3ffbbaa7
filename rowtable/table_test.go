package rowtable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"memris/column"
	"memris/rowtable"
	"memris/selection"
	"memris/typecode"
)

func newDemoTable() (*rowtable.Table, *column.Column) {
	age := column.New(typecode.Int32, false)
	tbl := rowtable.New([]*column.Column{age})
	return tbl, age
}

func TestInsertThenIsLive(t *testing.T) {
	tbl, age := newDemoTable()
	pref, err := tbl.Insert(func(row uint32) error {
		return age.SetInt64(row, 42)
	})
	require.NoError(t, err)
	require.True(t, tbl.IsLive(pref))
	require.EqualValues(t, 0, selection.Row(pref))
	require.EqualValues(t, 1, selection.Generation(pref))
	require.EqualValues(t, 1, tbl.RowCount())
}

func TestTombstoneInvalidatesStalePref(t *testing.T) {
	tbl, age := newDemoTable()
	pref, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, 1) })
	require.NoError(t, err)

	require.NoError(t, tbl.Tombstone(pref))
	require.False(t, tbl.IsLive(pref))
	require.EqualValues(t, 0, tbl.RowCount())

	err = tbl.Update(pref, func(row uint32) error { return nil })
	require.Error(t, err)
}

func TestFreeListReuseAdvancesGeneration(t *testing.T) {
	tbl, age := newDemoTable()
	first, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, 1) })
	require.NoError(t, err)
	require.NoError(t, tbl.Tombstone(first))

	second, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, 2) })
	require.NoError(t, err)

	require.Equal(t, selection.Row(first), selection.Row(second))
	require.Greater(t, selection.Generation(second), selection.Generation(first))
	require.False(t, tbl.IsLive(first))
	require.True(t, tbl.IsLive(second))
}

func TestUpdateMutatesInPlace(t *testing.T) {
	tbl, age := newDemoTable()
	pref, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, 1) })
	require.NoError(t, err)

	require.NoError(t, tbl.Update(pref, func(row uint32) error { return age.SetInt64(row, 99) }))

	var got int64
	require.NoError(t, tbl.ReadWithSeqlock(selection.Row(pref), func() error {
		v, err := age.GetInt64(selection.Row(pref))
		got = v
		return err
	}))
	require.EqualValues(t, 99, got)
}

func TestScanAllSkipsTombstoned(t *testing.T) {
	tbl, age := newDemoTable()
	var prefs []uint64
	for i := 0; i < 3; i++ {
		p, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, int64(i)) })
		require.NoError(t, err)
		prefs = append(prefs, p)
	}
	require.NoError(t, tbl.Tombstone(prefs[1]))
	require.Equal(t, []uint32{0, 2}, tbl.ScanAll())
}

func TestConcurrentReadersNeverObserveTornWrite(t *testing.T) {
	tbl, age := newDemoTable()
	pref, err := tbl.Insert(func(row uint32) error { return age.SetInt64(row, 0) })
	require.NoError(t, err)
	row := selection.Row(pref)

	const writes = 2000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			_ = tbl.Update(pref, func(row uint32) error { return age.SetInt64(row, int64(i%100)) })
		}
	}()

	seen := make(map[int64]bool)
	var mu sync.Mutex
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				var v int64
				err := tbl.ReadWithSeqlock(row, func() error {
					var err error
					v, err = age.GetInt64(row)
					return err
				})
				if err == nil {
					mu.Lock()
					seen[v] = true
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	for v := range seen {
		require.True(t, v >= 0 && v < 100)
	}
}
