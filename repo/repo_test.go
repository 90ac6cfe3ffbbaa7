package repo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memris/arena"
	"memris/query"
	"memris/repo"
	"memris/schema"
	"memris/typecode"
)

func userSchema() schema.Entity {
	return schema.Entity{
		Name: "user",
		Fields: []schema.Field{
			{Name: "id", TypeCode: typecode.Int64, IsIdentifier: true, Generated: true},
			{Name: "name", TypeCode: typecode.String},
			{Name: "age", TypeCode: typecode.Int32},
			{Name: "dept", TypeCode: typecode.String},
		},
		FieldIndexes: []schema.FieldIndex{
			{Field: "name", Kind: schema.IndexHash},
		},
		CompositeIndexes: []schema.CompositeIndex{
			{Fields: []string{"dept", "age"}, Kind: schema.CompositeIndexHash},
		},
	}
}

func newRepo(t *testing.T) (*arena.Arena, *repo.Repository) {
	t.Helper()
	a := arena.New(arena.DefaultConfig())
	require.NoError(t, a.Register(userSchema()))
	return a, repo.New(a, "user")
}

func userSchemaWithCompositeRange() schema.Entity {
	e := userSchema()
	e.CompositeIndexes = []schema.CompositeIndex{
		{Fields: []string{"dept", "age"}, Kind: schema.CompositeIndexRange},
	}
	return e
}

func newCompositeRangeRepo(t *testing.T) (*arena.Arena, *repo.Repository) {
	t.Helper()
	a := arena.New(arena.DefaultConfig())
	require.NoError(t, a.Register(userSchemaWithCompositeRange()))
	return a, repo.New(a, "user")
}

func TestInsertThenFindByName(t *testing.T) {
	_, r := newRepo(t)

	saveRes, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
		Row: arena.Row{int64(0), "name-42", int32(42), "d0"},
	})
	require.NoError(t, err)
	require.NotZero(t, saveRes.Pref)

	findPlan := query.Plan{
		Opcode:     query.OpFind,
		Conditions: []query.Condition{{Column: 1, Operator: query.EQ, ArgIndex: 0, TypeCode: typecode.String}},
	}
	findRes, err := r.Execute(findPlan, repo.Input{Args: query.Args{"name-42"}})
	require.NoError(t, err)
	require.Len(t, findRes.Rows, 1)
	require.Equal(t, "name-42", findRes.Rows[0][1])

	countRes, err := r.Execute(query.Plan{Opcode: query.OpCount, Conditions: findPlan.Conditions}, repo.Input{Args: query.Args{"name-42"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), countRes.Count)
}

func TestSaveUpdateInvalidatesNameIndex(t *testing.T) {
	_, r := newRepo(t)

	saveRes, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
		Row: arena.Row{int64(0), "name-42", int32(42), "d0"},
	})
	require.NoError(t, err)

	findPlan := query.Plan{Opcode: query.OpFind, Conditions: []query.Condition{{Column: 1, Operator: query.EQ, ArgIndex: 0, TypeCode: typecode.String}}}
	byOld, err := r.Execute(findPlan, repo.Input{Args: query.Args{"name-42"}})
	require.NoError(t, err)
	id := byOld.Rows[0][0]

	_, err = r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
		Row: arena.Row{id, "name-7", int32(7), "d0"},
	})
	require.NoError(t, err)
	_ = saveRes

	afterOld, err := r.Execute(findPlan, repo.Input{Args: query.Args{"name-42"}})
	require.NoError(t, err)
	require.Empty(t, afterOld.Rows)

	afterNew, err := r.Execute(findPlan, repo.Input{Args: query.Args{"name-7"}})
	require.NoError(t, err)
	require.Len(t, afterNew.Rows, 1)
}

func TestRangeOrderLimit(t *testing.T) {
	_, r := newRepo(t)
	for i := 0; i < 1000; i++ {
		_, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
			Row: arena.Row{int64(0), "r", int32(i % 100), "d0"},
		})
		require.NoError(t, err)
	}

	plan := query.Plan{
		Opcode:     query.OpFind,
		Conditions: []query.Condition{{Column: 2, Operator: query.BETWEEN, ArgIndex: 0, TypeCode: typecode.Int32}},
		OrderBy:    []query.OrderKey{{Column: 2, Ascending: true}},
		Limit:      5,
	}
	res, err := r.Execute(plan, repo.Input{Args: query.Args{int32(10), int32(19)}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 5)
	for _, row := range res.Rows {
		require.Equal(t, int32(10), row[2])
	}
}

func TestCompositeHashHit(t *testing.T) {
	_, r := newRepo(t)
	for dept := 0; dept < 10; dept++ {
		for age := int32(0); age < 100; age++ {
			_, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
				Row: arena.Row{int64(0), "u", age, deptName(dept)},
			})
			require.NoError(t, err)
		}
	}

	plan := query.Plan{
		Opcode: query.OpFind,
		Conditions: []query.Condition{
			{Column: 3, Operator: query.EQ, ArgIndex: 0, TypeCode: typecode.String, Next: query.AND},
			{Column: 2, Operator: query.EQ, ArgIndex: 1, TypeCode: typecode.Int32},
		},
	}
	res, err := r.Execute(plan, repo.Input{Args: query.Args{"d3", int32(42)}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "d3", res.Rows[0][3])
	require.Equal(t, int32(42), res.Rows[0][2])
}

func TestCompositeRangeHit(t *testing.T) {
	_, r := newCompositeRangeRepo(t)
	for dept := 0; dept < 10; dept++ {
		for age := int32(0); age < 100; age++ {
			_, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
				Row: arena.Row{int64(0), "u", age, deptName(dept)},
			})
			require.NoError(t, err)
		}
	}

	plan := query.Plan{
		Opcode: query.OpFind,
		Conditions: []query.Condition{
			{Column: 3, Operator: query.EQ, ArgIndex: 0, TypeCode: typecode.String, Next: query.AND},
			{Column: 2, Operator: query.EQ, ArgIndex: 1, TypeCode: typecode.Int32},
		},
	}
	res, err := r.Execute(plan, repo.Input{Args: query.Args{"d3", int32(42)}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "d3", res.Rows[0][3])
	require.Equal(t, int32(42), res.Rows[0][2])
}

func TestOrAcrossGroups(t *testing.T) {
	_, r := newRepo(t)
	mustSave := func(name string, age int32, dept string) {
		_, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
			Row: arena.Row{int64(0), name, age, dept},
		})
		require.NoError(t, err)
	}
	mustSave("alice", 40, "d0")
	mustSave("carl", 10, "d0")
	mustSave("dana", 99, "d1")

	plan := query.Plan{
		Opcode: query.OpFind,
		Conditions: []query.Condition{
			{Column: 1, Operator: query.EQ, ArgIndex: 0, TypeCode: typecode.String, Next: query.AND},
			{Column: 2, Operator: query.GT, ArgIndex: 1, TypeCode: typecode.Int32, Next: query.OR},
			{Column: 3, Operator: query.EQ, ArgIndex: 2, TypeCode: typecode.String},
		},
	}
	res, err := r.Execute(plan, repo.Input{Args: query.Args{"alice", int32(30), "d1"}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

func TestDeleteByIDIsNoopOnUnknown(t *testing.T) {
	_, r := newRepo(t)
	res, err := r.Execute(query.Plan{Opcode: query.OpDeleteByID}, repo.Input{ID: int64(999)})
	require.NoError(t, err)
	require.Equal(t, repo.Result{}, res)
}

func TestDeleteAllRemovesMatchingRows(t *testing.T) {
	_, r := newRepo(t)
	for age := int32(0); age < 5; age++ {
		_, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{
			Row: arena.Row{int64(0), "r", age, "d0"},
		})
		require.NoError(t, err)
	}

	plan := query.Plan{Opcode: query.OpDeleteAll, Conditions: []query.Condition{{Column: 2, Operator: query.LT, ArgIndex: 0, TypeCode: typecode.Int32}}}
	res, err := r.Execute(plan, repo.Input{Args: query.Args{int32(3)}})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Count)

	countRes, err := r.Execute(query.Plan{Opcode: query.OpCountAll}, repo.Input{})
	require.NoError(t, err)
	require.Equal(t, int64(2), countRes.Count)
}

func deptName(n int) string {
	return "d" + string(rune('0'+n))
}
