package commands

import (
	"os"

	"github.com/spf13/cobra"

	"MarketPulse/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "MarketPulse - daily market sentiment index",
	Long: `MarketPulse scores the S&P 500, NASDAQ and Dow Jones on a -100..+100
sentiment scale, keeps a backfilled daily history and serves both over HTTP.

Examples:
  pulse serve --run-on-start
  pulse refresh
  pulse history --last 10`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $CONFIG_PATH or configs/config.yaml)")
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return config.DefaultPath
}
