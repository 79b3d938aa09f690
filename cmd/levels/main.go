package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "levels",
	Short: "levels - support/resistance backtesting and paper trading",
	Long: `levels detects support and resistance levels in daily price history,
optimizes the strategy's lookback and trade-window parameters per symbol,
and can paper-trade the resulting signals against live exchange data.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
