package column_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memris/column"
	"memris/errs"
	"memris/typecode"
)

func alwaysLive(uint32) bool { return true }

func TestColumnInt64ScanEquals(t *testing.T) {
	c := column.New(typecode.Int64, false)
	c.Resize(8)
	for i := uint32(0); i < 8; i++ {
		require.NoError(t, c.SetInt64(i, int64(i%3)))
	}

	rows := c.ScanEquals(8, alwaysLive, 1)
	require.Equal(t, []uint32{1, 4, 7}, rows)
}

func TestColumnBetweenInclusive(t *testing.T) {
	c := column.New(typecode.Int32, false)
	c.Resize(10)
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, c.SetInt64(i, int64(i)))
	}
	rows := c.ScanBetween(10, alwaysLive, 3, 6)
	require.Equal(t, []uint32{3, 4, 5, 6}, rows)
}

func TestColumnScanSkipsTombstoned(t *testing.T) {
	c := column.New(typecode.Int64, false)
	c.Resize(4)
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, c.SetInt64(i, 5))
	}
	live := func(row uint32) bool { return row != 2 }
	rows := c.ScanEquals(4, live, 5)
	require.Equal(t, []uint32{0, 1, 3}, rows)
}

func TestColumnNullable(t *testing.T) {
	c := column.New(typecode.String, true)
	c.Resize(3)
	require.NoError(t, c.SetString(0, "a"))
	require.False(t, c.IsPresent(1))
	c.SetNull(1)
	require.False(t, c.IsPresent(1))
	require.NoError(t, c.SetString(2, ""))
	require.True(t, c.IsPresent(2))

	present := c.ScanAllPresent(3, alwaysLive, true)
	require.Equal(t, []uint32{0, 2}, present)
	absent := c.ScanAllPresent(3, alwaysLive, false)
	require.Equal(t, []uint32{1}, absent)
}

func TestColumnStringPatterns(t *testing.T) {
	c := column.New(typecode.String, false)
	c.Resize(4)
	require.NoError(t, c.SetString(0, "Alice"))
	require.NoError(t, c.SetString(1, "alicia"))
	require.NoError(t, c.SetString(2, "Bob"))
	require.NoError(t, c.SetString(3, "alice"))

	require.Equal(t, []uint32{0, 3}, c.ScanStringEquals(4, alwaysLive, "alice", true))
	require.Equal(t, []uint32{3}, c.ScanStringEquals(4, alwaysLive, "alice", false))
	require.Equal(t, []uint32{0, 1, 3}, c.ScanStartsWith(4, alwaysLive, "ali", true))
	require.Equal(t, []uint32{2}, c.ScanEndsWith(4, alwaysLive, "ob", false))
	require.Equal(t, []uint32{0, 3}, c.ScanLike(4, alwaysLive, "Alic_", true))
}

func TestColumnBool(t *testing.T) {
	c := column.New(typecode.Bool, false)
	c.Resize(3)
	require.NoError(t, c.SetBool(0, true))
	require.NoError(t, c.SetBool(1, false))
	v, err := c.GetBool(0)
	require.NoError(t, err)
	require.True(t, v)
}

func TestColumnTypeMismatch(t *testing.T) {
	c := column.New(typecode.Int64, false)
	c.Resize(1)
	_, err := c.GetBool(0)
	require.Error(t, err)
}

func TestColumnResizeDoubles(t *testing.T) {
	c := column.New(typecode.Int64, false)
	require.EqualValues(t, 64, c.Capacity())
	c.Resize(65)
	require.EqualValues(t, 128, c.Capacity())
}

func TestColumnOutOfRangeIsInternal(t *testing.T) {
	c := column.New(typecode.Int64, false)
	_, err := c.GetInt64(1000)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Internal))
}
