package commands

import (
	"fmt"
	"path/filepath"

	"esic-scraper/lib/esic/parser"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var parseLimit int

func init() {
	parseCmd.Flags().IntVar(&parseLimit, "limit", 20, "The maximum amount of records shown per file, 0 shows all of them.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>... [--limit <n>]",
	Short: "Prints the records of extracted export files as a table.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			seq, err := parser.Open(path)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.SetTitle(filepath.Base(path))
			t.AppendHeader(table.Row{"#", "Kind", "Id", "Attributes"})

			shown := 0
			for record, err := range seq {
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				shown++
				t.AppendRow(table.Row{shown, record.Kind(), record.Id(), formatAttributes(record)})
				t.AppendSeparator()
				if parseLimit > 0 && shown >= parseLimit {
					break
				}
			}
			t.AppendFooter(table.Row{"", "", "Shown", shown})
			t.Render()
		}
		return nil
	},
}
