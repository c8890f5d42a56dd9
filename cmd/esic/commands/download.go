package commands

import (
	"fmt"
	"log/slog"

	"esic-scraper/lib/esic/download"
	"esic-scraper/lib/esic/portal"

	"github.com/spf13/cobra"
)

var (
	downloadYear      int
	downloadFormat    string
	downloadOut       string
	downloadDeleteZip bool
)

func init() {
	downloadCmd.Flags().IntVar(&downloadYear, "year", 0, "The year of the export.")
	downloadCmd.Flags().StringVar(&downloadFormat, "format", "xml", "The export format, xml or csv.")
	downloadCmd.Flags().StringVar(&downloadOut, "out", ".", "The directory to download and extract into.")
	downloadCmd.Flags().BoolVar(&downloadDeleteZip, "delete-zip", false, "Delete the archive once it was extracted.")
	downloadCmd.MarkFlagRequired("year")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download --year <year> [--format xml|csv] [--out <dir>] [--delete-zip]",
	Short: "Downloads the export of a year and prints the extracted files.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := download.ParseFileFormat(downloadFormat)
		if err != nil {
			return err
		}

		opts, err := config.Portal.Options()
		if err != nil {
			return fmt.Errorf("http dumps: %w", err)
		}
		session, err := portal.New(opts)
		if err != nil {
			return err
		}
		defer session.Close()

		downloader := download.New(session, config.Download.Options())
		slog.Info("downloading export", "year", downloadYear, "format", format, "out", downloadOut)
		files, err := downloader.Download(cmd.Context(), download.Request{
			Year:          downloadYear,
			Format:        format,
			Destination:   downloadOut,
			DeleteArchive: downloadDeleteZip,
		})
		if err != nil {
			return err
		}

		for path, err := range files.All() {
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}
