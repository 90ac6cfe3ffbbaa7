package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"memris/arena"
	"memris/query"
	"memris/repo"
	"memris/schema"
)

func printInfo(format string) {
	fmt.Fprintln(os.Stderr, format)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "memris",
		Short: "In-memory columnar entity engine demo",
	}

	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newQueryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <entities.toml>",
		Short: "Load a TOML entity declaration and print the compiled arena layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := schema.LoadTOMLFile(args[0])
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}

			a := arena.New(arena.DefaultConfig())
			for _, e := range entities {
				if err := a.Register(e); err != nil {
					return fmt.Errorf("register entity %q: %w", e.Name, err)
				}
			}

			for _, e := range entities {
				fmt.Printf("entity %s (%d fields)\n", e.Name, len(e.Fields))
				for _, f := range e.Fields {
					marker := ""
					if f.IsIdentifier {
						marker = " [id]"
					}
					fmt.Printf("  %-20s %-10s nullable=%-5v%s\n", f.Name, f.TypeCode, f.Nullable, marker)
				}
				for _, fi := range e.FieldIndexes {
					fmt.Printf("  index: %s (%s)\n", fi.Field, fi.Kind)
				}
				for _, ci := range e.CompositeIndexes {
					fmt.Printf("  composite index: %v (%s)\n", ci.Fields, ci.Kind)
				}
			}
			return nil
		},
	}
}

func newBenchCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a scripted insert/query/update timing scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			a, err := seedDemoArena(rows)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("insert %d rows: %s", rows, time.Since(start)))

			r := repo.New(a, "user")

			start = time.Now()
			findPlan := query.Plan{
				Opcode:     query.OpFind,
				Conditions: []query.Condition{{Column: 3, Operator: query.EQ, ArgIndex: 0, TypeCode: "string", Next: query.AND}, {Column: 2, Operator: query.EQ, ArgIndex: 1, TypeCode: "i32"}},
			}
			findRes, err := r.Execute(findPlan, repo.Input{Args: query.Args{"d3", int32(42)}})
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("composite-hash find(dept=d3, age=42): %d rows in %s", len(findRes.Rows), time.Since(start)))

			start = time.Now()
			for _, row := range findRes.Rows {
				row[2] = int32(99)
				if _, err := r.Execute(query.Plan{Opcode: query.OpSaveOne}, repo.Input{Row: row}); err != nil {
					return err
				}
			}
			printInfo(fmt.Sprintf("update %d rows: %s", len(findRes.Rows), time.Since(start)))

			stats := a.Stats()
			for _, s := range stats {
				fmt.Printf("entity %s: rows=%d allocated=%d primary_key=%d hash=%d range=%d composite=%d\n",
					s.Name, s.RowCount, s.AllocatedCount, s.PrimaryKeyCount, s.HashEntries, s.RangeEntries, s.CompositeEntries)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10000, "number of demo rows to insert")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var seedRows int
	cmd := &cobra.Command{
		Use:   "query <plan.json>",
		Short: "Execute a compiled JSON query plan against a populated demo arena",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read plan: %w", err)
			}
			plan, queryArgs, err := loadPlan(data)
			if err != nil {
				return err
			}

			a, err := seedDemoArena(seedRows)
			if err != nil {
				return err
			}
			r := repo.New(a, "user")

			in := repo.Input{Args: queryArgs}
			switch plan.Opcode {
			case query.OpFindByID, query.OpExistsByID, query.OpDeleteByID:
				if len(queryArgs) == 0 {
					return fmt.Errorf("opcode requires args[0] to be the identifier")
				}
				in.ID = queryArgs[0]
			case query.OpFindAllByID, query.OpDeleteAllByID:
				if len(queryArgs) == 0 {
					return fmt.Errorf("opcode requires args[0] to be the identifier list")
				}
				ids, ok := queryArgs[0].([]any)
				if !ok {
					return fmt.Errorf("opcode requires args[0] to be a list of identifiers")
				}
				in.IDs = ids
			case query.OpSaveOne, query.OpSaveAll, query.OpDeleteOne:
				return fmt.Errorf("opcode %q needs row payloads, not supported from a plan file alone", plan.Opcode)
			}

			res, err := r.Execute(plan, in)
			if err != nil {
				return err
			}
			printQueryResult(plan.Opcode, res)
			return nil
		},
	}
	cmd.Flags().IntVar(&seedRows, "seed-rows", 1000, "number of demo rows to seed before executing the plan")
	return cmd
}

func printQueryResult(opcode query.Opcode, res repo.Result) {
	switch opcode {
	case query.OpFindByID:
		if !res.Found {
			fmt.Println("not found")
			return
		}
		fmt.Printf("%v\n", res.Row)
	case query.OpFindAllByID, query.OpFindAll, query.OpFind:
		for _, row := range res.Rows {
			fmt.Printf("%v\n", row)
		}
		fmt.Printf("(%d rows)\n", len(res.Rows))
	case query.OpCount, query.OpCountAll:
		fmt.Println(res.Count)
	case query.OpExists, query.OpExistsByID:
		fmt.Println(res.Exists)
	case query.OpDeleteByID, query.OpDeleteAllByID, query.OpDeleteAll:
		fmt.Printf("deleted %d\n", res.Count)
	default:
		fmt.Printf("%+v\n", res)
	}
}
