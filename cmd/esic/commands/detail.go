package commands

import (
	"fmt"

	"esic-scraper/lib/esic/detail"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var detailAttachments bool

func init() {
	detailCmd.Flags().BoolVar(&detailAttachments, "attachments", false, "Also list the attachments of the request.")
	rootCmd.AddCommand(detailCmd)
}

var detailCmd = &cobra.Command{
	Use:   "detail <protocolo> [--attachments]",
	Short: "Finds the detail page of a request on the portal, this needs a local chrome.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer := detail.NewChromeRenderer(config.Detail.Options())
		defer renderer.Close()
		resolver := detail.NewResolver(renderer, config.Detail.SearchURL)

		detailURL, err := resolver.ResolveDetailURL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), detailURL)
		if !detailAttachments {
			return nil
		}

		attachments, err := resolver.ListAttachments(cmd.Context(), detailURL)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Name", "Url"})
		for _, a := range attachments {
			t.AppendRow(table.Row{a.Name, a.URL})
		}
		t.Render()
		return nil
	},
}
