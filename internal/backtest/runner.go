// Package backtest orchestrates the optimize-then-rerun cycle for one
// symbol and produces the artifacts reporting consumes: winning
// parameters, matched trades, and a daily equity curve.
package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/extrema"
	"github.com/akiyanov/levels/internal/optimize"
	"github.com/akiyanov/levels/internal/signal"
	"github.com/akiyanov/levels/internal/sim"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Window bounds the history slice used for parameter optimization.
// YearsBack limits total history from the newest bar backwards, then
// PercentStart/PercentEnd keep a fractional sub-window of that slice.
// The two stages let the operator both cap history and hold out the
// newest (or oldest) fraction, e.g. for live comparison.
type Window struct {
	YearsBack    int
	PercentStart float64
	PercentEnd   float64
}

// Config drives one backtest run.
type Config struct {
	Window    Window
	Optimizer optimize.Config
}

// Runner runs single-symbol backtests.
type Runner struct {
	log *zap.Logger
}

// NewRunner creates a Runner. A nil logger disables logging.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Run optimizes parameters on the configured slice of history, then
// re-runs the signal pipeline once with the winning parameters over the
// full history to produce final matched trades and the equity curve.
// The same inputs always produce the same result.
func (r *Runner) Run(ctx context.Context, symbol string, history []core.PriceBar, cfg Config) (*Result, error) {
	if len(history) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("symbol %s", symbol))
	}
	if err := validateWindow(cfg.Window); err != nil {
		return nil, err
	}

	slice := sliceYears(history, cfg.Window.YearsBack)
	slice = slicePercent(slice, cfg.Window.PercentStart, cfg.Window.PercentEnd)

	r.log.Debug("optimization slice selected",
		zap.String("symbol", symbol),
		zap.Int("full_bars", len(history)),
		zap.Int("slice_bars", len(slice)),
	)

	params, cells, err := optimize.Optimize(ctx, slice, cfg.Optimizer, r.log)
	if err != nil {
		return nil, err
	}

	// Final pass over the unsliced history with the winning parameters.
	support, resistance, err := extrema.Detect(history, params.LookbackWindow+params.TradeWindow)
	if err != nil {
		return nil, err
	}
	signals, err := signal.Assign(support, resistance, history, params.TradeWindow, cfg.Optimizer.TradeOn)
	if err != nil {
		return nil, err
	}
	outcome, err := sim.Simulate(signals, history[len(history)-1].Close, cfg.Optimizer.Sim, r.log)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:        uuid.NewString(),
		Symbol:       symbol,
		Params:       params,
		Cells:        cells,
		Trades:       outcome.Trades,
		FinalCapital: outcome.FinalCapital,
		EquityCurve:  buildEquityCurve(history, outcome.Trades, cfg.Optimizer.Sim),
		Stats:        CalculateStats(outcome.Trades, cfg.Optimizer.Sim.InitialCapital),
	}
	if len(slice) > 0 {
		result.SliceStart = slice[0].Date
		result.SliceEnd = slice[len(slice)-1].Date
	}

	r.log.Info("backtest complete",
		zap.String("symbol", symbol),
		zap.String("run_id", result.RunID),
		zap.Int("lookback", params.LookbackWindow),
		zap.Int("trade_window", params.TradeWindow),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_capital", result.FinalCapital),
	)

	return result, nil
}

func validateWindow(w Window) error {
	if w.YearsBack < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("years back cannot be negative, got %d", w.YearsBack))
	}
	ps, pe := normalizePercents(w.PercentStart, w.PercentEnd)
	if ps < 0 || pe > 1 || ps >= pe {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("percent range [%v,%v] invalid", w.PercentStart, w.PercentEnd))
	}
	return nil
}

// normalizePercents treats an unset (zero,zero) range as the whole slice.
func normalizePercents(start, end float64) (float64, float64) {
	if start == 0 && end == 0 {
		return 0, 1
	}
	return start, end
}

// sliceYears keeps the bars within years of the newest bar. Zero keeps
// everything.
func sliceYears(bars []core.PriceBar, years int) []core.PriceBar {
	if years <= 0 || len(bars) == 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Date.AddDate(-years, 0, 0)
	idx := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(cutoff)
	})
	return bars[idx:]
}

// slicePercent keeps the fractional [start,end) window of bars.
func slicePercent(bars []core.PriceBar, start, end float64) []core.PriceBar {
	start, end = normalizePercents(start, end)
	n := len(bars)
	lo := int(float64(n) * start)
	hi := int(float64(n) * end)
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	return bars[lo:hi]
}
