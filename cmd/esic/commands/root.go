package commands

import (
	"context"
	"fmt"

	"esic-scraper/lib/configutil"
	"esic-scraper/lib/serviceutil"
	"esic-scraper/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	config     Config
)

var rootCmd = &cobra.Command{
	Use:   "esic",
	Short: "esic downloads and reads the open data exports of the e-SIC portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		config, err = configutil.ReadConfigWithDefaults(configPath, DefaultConfig())
		if err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "esic.json5", "The configuration file, <name>.local.json5 next to it overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages, including every http request.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("esic failed", err)
	}
}
