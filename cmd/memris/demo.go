package main

import (
	"fmt"

	"memris/arena"
	"memris/schema"
	"memris/typecode"
)

// demoEntity is the fixture schema the bench and query subcommands
// populate: a shape wide enough to exercise a hash index, a composite-
// hash index, and ordered range scans in one declaration.
func demoEntity() schema.Entity {
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
			{Field: "age", Kind: schema.IndexRange},
		},
		CompositeIndexes: []schema.CompositeIndex{
			{Fields: []string{"dept", "age"}, Kind: schema.CompositeIndexHash},
		},
	}
}

// seedDemoArena registers demoEntity and inserts rowCount deterministic
// rows spread across 10 departments and a 0..99 age cycle.
func seedDemoArena(rowCount int) (*arena.Arena, error) {
	a := arena.New(arena.DefaultConfig())
	if err := a.Register(demoEntity()); err != nil {
		return nil, err
	}
	for i := 0; i < rowCount; i++ {
		row := arena.Row{
			int64(0),
			fmt.Sprintf("user-%d", i),
			int32(i % 100),
			fmt.Sprintf("d%d", i%10),
		}
		if _, err := a.Save("user", row); err != nil {
			return nil, err
		}
	}
	return a, nil
}
