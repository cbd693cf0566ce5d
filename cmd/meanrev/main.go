package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quantlab/meanrev/internal/config"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "meanrev",
	Short: "meanrev - daily-bar mean-reversion backtester",
	Long: `meanrev replays daily OHLCV bars through a mean-reversion strategy
and reports the resulting equity curve, trades and performance statistics.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads the configured file, or returns defaults when no
// file was given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Defaults(), nil
	}
	return config.Load(cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
