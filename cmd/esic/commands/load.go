package commands

import (
	"log/slog"
	"path/filepath"

	"esic-scraper/lib/esic/parser"
	"esic-scraper/lib/recordstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var loadDb string

func init() {
	loadCmd.Flags().StringVar(&loadDb, "db", "", "The sqlite database to write to, overrides database.file of the config.")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load <file>... [--db <path/to/records.db>]",
	Short: "Stores the records of extracted export files in a database.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConfig := config.Database
		if loadDb != "" {
			dbConfig = recordstore.Config{File: loadDb}
		}
		db, err := dbConfig.OpenDB()
		if err != nil {
			return err
		}
		defer db.Close()
		store := recordstore.NewStore(db)

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"File", "Kind", "Stored", "Skipped"})
		for _, path := range args {
			kind, err := parser.KindOf(path)
			if err != nil {
				return err
			}
			seq, err := parser.Open(path)
			if err != nil {
				return err
			}

			res, err := store.Push(cmd.Context(), filepath.Base(path), seq)
			if err != nil {
				return err
			}
			slog.Info("loaded records", "file", path, "stored", res.Stored)
			t.AppendRow(table.Row{filepath.Base(path), kind, res.Stored, res.Skipped})
		}
		t.Render()
		return nil
	},
}
