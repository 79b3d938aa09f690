package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/akiyanov/levels/internal/logger"
	"github.com/akiyanov/levels/internal/optimize"
)

var optimizeShowSkipped bool

var optimizeCmd = &cobra.Command{
	Use:   "optimize SYMBOL",
	Short: "Show the full parameter grid for a symbol",
	Long: `Evaluate every lookback and trade-window combination over the
configured history and print each cell's final capital, including the
reason any cell was skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().BoolVar(&optimizeShowSkipped, "skipped", false, "include skipped grid cells")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	sym := symbolSettings(cfg, args[0])

	st, err := newStore(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-cfg.Backtest.YearsBack, 0, 0)

	bars, err := st.Load(ctx, sym.Symbol, start, end)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	best, cells, err := optimize.Optimize(ctx, bars, cfg.OptimizerConfig(sym), log)
	if err != nil {
		return fmt.Errorf("optimizing: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOOKBACK\tTRADE WINDOW\tFINAL CAPITAL\tNOTE")
	for _, cell := range cells {
		if cell.Skipped {
			if optimizeShowSkipped {
				fmt.Fprintf(w, "%d\t%d\t-\t%s\n", cell.Lookback, cell.TradeWindow, cell.Reason)
			}
			continue
		}
		note := ""
		if cell.Lookback == best.LookbackWindow && cell.TradeWindow == best.TradeWindow {
			note = "best"
		}
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%s\n", cell.Lookback, cell.TradeWindow, cell.FinalCapital, note)
	}
	w.Flush()

	fmt.Printf("\nBest: lookback=%d trade_window=%d final_capital=%.2f\n",
		best.LookbackWindow, best.TradeWindow, best.FinalCapital)
	return nil
}
