package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memris/arena"
	"memris/errs"
	"memris/schema"
	"memris/typecode"
)

func userEntity() schema.Entity {
	return schema.Entity{
		Name: "user",
		Fields: []schema.Field{
			{Name: "id", TypeCode: typecode.Int64, IsIdentifier: true, Generated: true},
			{Name: "email", TypeCode: typecode.String},
			{Name: "age", TypeCode: typecode.Int32, Nullable: true},
			{Name: "active", TypeCode: typecode.Bool},
		},
		FieldIndexes: []schema.FieldIndex{
			{Field: "email", Kind: schema.IndexHash},
			{Field: "active", Kind: schema.IndexHash},
		},
		CompositeIndexes: []schema.CompositeIndex{
			{Fields: []string{"email", "age"}, Kind: schema.CompositeIndexRange},
		},
	}
}

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	a := arena.New(arena.DefaultConfig())
	require.NoError(t, a.Register(userEntity()))
	return a
}

func TestSaveAllocatesIdentifierOnInsert(t *testing.T) {
	a := newTestArena(t)

	pref, err := a.Save("user", arena.Row{int64(0), "a@example.com", int32(30), true})
	require.NoError(t, err)

	row, err := a.ReadRow("user", pref)
	require.NoError(t, err)
	require.NotEqual(t, int64(0), row[0])
	require.Equal(t, "a@example.com", row[1])
	require.Equal(t, int32(30), row[2])
	require.Equal(t, true, row[3])
}

func TestSaveUpdatesInPlaceAndMaintainsIndex(t *testing.T) {
	a := newTestArena(t)

	pref, err := a.Save("user", arena.Row{int64(0), "a@example.com", int32(30), true})
	require.NoError(t, err)
	row, err := a.ReadRow("user", pref)
	require.NoError(t, err)
	id := row[0]

	pref2, err := a.Save("user", arena.Row{id, "b@example.com", int32(31), false})
	require.NoError(t, err)
	require.Equal(t, pref, pref2)

	indices, err := a.Indices("user")
	require.NoError(t, err)
	emailCol, err := columnIndex(a, "email")
	require.NoError(t, err)
	require.Equal(t, 0, len(indices.PerColumn[emailCol].Hash.Query(hashKeyFor("a@example.com"))))
	require.Equal(t, 1, len(indices.PerColumn[emailCol].Hash.Query(hashKeyFor("b@example.com"))))
}

func TestDeleteByIDIsNoopOnUnknownIdentifier(t *testing.T) {
	a := newTestArena(t)
	err := a.DeleteByID("user", int64(999))
	require.NoError(t, err)
}

func TestDeleteFailsNotFoundOnUnknownIdentifier(t *testing.T) {
	a := newTestArena(t)
	err := a.Delete("user", arena.Row{int64(999), "ghost@example.com", nil, false})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.NotFound))
}

func TestFindByIDAfterDelete(t *testing.T) {
	a := newTestArena(t)
	pref, err := a.Save("user", arena.Row{int64(0), "a@example.com", nil, true})
	require.NoError(t, err)
	row, err := a.ReadRow("user", pref)
	require.NoError(t, err)
	id := row[0]

	_, ok, err := a.FindByID("user", id)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.DeleteByID("user", id))

	_, ok, err = a.FindByID("user", id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStatsReflectsSavedRows(t *testing.T) {
	a := newTestArena(t)
	_, err := a.Save("user", arena.Row{int64(0), "a@example.com", int32(20), true})
	require.NoError(t, err)
	_, err = a.Save("user", arena.Row{int64(0), "b@example.com", int32(21), false})
	require.NoError(t, err)

	stats := a.Stats()
	require.Len(t, stats, 1)
	require.Equal(t, uint32(2), stats[0].RowCount)
	require.Equal(t, 2, stats[0].PrimaryKeyCount)
}

func TestConfigFromOptionsRejectsUnknownKey(t *testing.T) {
	_, err := arena.ConfigFromOptions(map[string]any{"bogus": true})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidArgument))
}

func columnIndex(a *arena.Arena, field string) (int, error) {
	e, err := a.Entity("user")
	if err != nil {
		return 0, err
	}
	return e.ColumnIndex(field), nil
}

func hashKeyFor(s string) []byte { return []byte(s) }
