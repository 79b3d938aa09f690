package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akiyanov/levels/internal/backtest"
	"github.com/akiyanov/levels/internal/logger"
)

var backtestYears int

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Optimize parameters and backtest a symbol",
	Long: `Optimize the lookback and trade-window parameters over a historical
slice, then replay the winning strategy over the full history and show
matched trades and performance statistics.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().IntVar(&backtestYears, "years", 0, "years of history (overrides config)")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if backtestYears > 0 {
		cfg.Backtest.YearsBack = backtestYears
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
	log.Info("history loaded",
		zap.String("symbol", sym.Symbol),
		zap.Int("bars", len(bars)))

	result, err := backtest.NewRunner(log).Run(ctx, sym.Symbol, bars, backtest.Config{
		Window: backtest.Window{
			YearsBack:    cfg.Backtest.YearsBack,
			PercentStart: cfg.Backtest.PercentStart,
			PercentEnd:   cfg.Backtest.PercentEnd,
		},
		Optimizer: cfg.OptimizerConfig(sym),
	})
	if err != nil {
		return fmt.Errorf("running backtest: %w", err)
	}

	printBacktest(os.Stdout, result, sym.InitialCapital)
	return nil
}

func printBacktest(out io.Writer, result *backtest.Result, initialCapital float64) {
	fmt.Fprintf(out, "Run:     %s\n", result.RunID)
	fmt.Fprintf(out, "Symbol:  %s\n", result.Symbol)
	fmt.Fprintf(out, "Params:  lookback=%d trade_window=%d\n",
		result.Params.LookbackWindow, result.Params.TradeWindow)
	fmt.Fprintf(out, "Capital: %.2f -> %.2f\n", initialCapital, result.FinalCapital)
	fmt.Fprintln(out)

	if len(result.Trades) > 0 {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BUY DATE\tBUY\tSELL DATE\tSELL\tSHARES\tNET PNL\tSTATE")
		for _, trade := range result.Trades {
			state := "closed"
			sellDate := trade.SellDate.Format("2006-01-02")
			if trade.Open {
				state = "open"
				sellDate = "-"
			}
			fmt.Fprintf(w, "%s\t%.4f\t%s\t%.4f\t%v\t%.2f\t%s\n",
				trade.BuyDate.Format("2006-01-02"), trade.BuyPrice,
				sellDate, trade.SellPrice,
				trade.Shares, trade.NetPnL, state)
		}
		w.Flush()
		fmt.Fprintln(out)
	}

	// Stats fields are already percentages.
	stats := result.Stats
	fmt.Fprintf(out, "Trades:       %d (%d open)\n", stats.TotalTrades, stats.OpenTrades)
	fmt.Fprintf(out, "Win rate:     %.1f%%\n", stats.WinRate)
	fmt.Fprintf(out, "Net PnL:      %.2f\n", stats.TotalNetPnL)
	fmt.Fprintf(out, "Return:       %.2f%%\n", stats.TotalReturn)
	fmt.Fprintf(out, "Max drawdown: %.2f%%\n", stats.MaxDrawdown)
	fmt.Fprintf(out, "Sharpe:       %.2f\n", stats.SharpeRatio)

	if n := len(result.EquityCurve); n > 0 {
		first := result.EquityCurve[0]
		last := result.EquityCurve[n-1]
		fmt.Fprintf(out, "Equity:       %.2f (%s) -> %.2f (%s)\n",
			first.Equity, first.Date.Format("2006-01-02"),
			last.Equity, last.Date.Format("2006-01-02"))
	}
}
