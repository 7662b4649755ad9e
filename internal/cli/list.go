package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newListCommand creates the list command.
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [paths...]",
		Short: "List loaded tables",
		Long:  `Load the dataset and list every table with its row and field counts.`,
		Example: `  # List tables from configured paths
  tsvdb list

  # List tables from explicit files
  tsvdb list data/planets.tsv data/moons.tsv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), args)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Rows", "Fields", "Prefix"})

			names := store.TableNames()
			for _, name := range names {
				rows, err := store.RowCount(name)
				if err != nil {
					return err
				}
				fields, err := store.FieldNames(name)
				if err != nil {
					return err
				}
				prefix, err := store.Prefix(name)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{name, rows, len(fields), prefix})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d tables)\n", len(names))
			return nil
		},
	}
}

// newShowCommand creates the show command.
func newShowCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <table> [paths...]",
		Short: "Show the rows of one table",
		Long:  `Load the dataset and print one table's resolved rows.`,
		Example: `  # Show the first 20 rows of the planets table
  tsvdb show planets

  # Show all rows
  tsvdb show planets --limit 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			tableName := args[0]

			rows, err := store.RowCount(tableName)
			if err != nil {
				return err
			}
			fields, err := store.FieldNames(tableName)
			if err != nil {
				return err
			}
			names, err := store.EntityNames(tableName)
			if err != nil {
				return err
			}
			named := len(names) > 0

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)

			header := make(table.Row, 0, len(fields)+1)
			if named {
				header = append(header, "name")
			}
			for _, field := range fields {
				header = append(header, field)
			}
			t.AppendHeader(header)

			shown := rows
			if limit > 0 && limit < rows {
				shown = limit
			}
			for row := 0; row < shown; row++ {
				values, err := store.RowMap(tableName, row)
				if err != nil {
					return err
				}
				out := make(table.Row, 0, len(fields)+1)
				if named {
					out = append(out, names[row])
				}
				for _, field := range fields {
					out = append(out, values[field].String())
				}
				t.AppendRow(out)
			}
			t.Render()
			if shown < rows {
				fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d rows)\n", shown, rows)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "(%d rows)\n", rows)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")
	return cmd
}
