// Package optimize brute-force searches the (lookback, trade window)
// grid for the parameter pair with the highest backtested final capital.
package optimize

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/extrema"
	"github.com/akiyanov/levels/internal/signal"
	"github.com/akiyanov/levels/internal/sim"
	"go.uber.org/zap"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// DefaultLookback and DefaultTradeWindow are the fallback parameters
// used when no grid cell produces a usable backtest.
const (
	DefaultLookback    = 5
	DefaultTradeWindow = 2
)

// Config drives one grid search.
type Config struct {
	// Lookback is the lookback-window range, minimum 2.
	Lookback Range
	// TradeWindow is the trade-window range, minimum 1.
	TradeWindow Range
	// Sim carries capital and fee rules for each cell's simulation.
	Sim sim.Config
	// TradeOn selects the execution price field.
	TradeOn core.PriceField
	// Workers bounds grid parallelism; 0 means one worker per CPU.
	Workers int
}

// Validate reports invalid grid ranges loudly.
func (c Config) Validate() error {
	if c.Lookback.Min < 2 || c.Lookback.Max < c.Lookback.Min {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("lookback range [%d,%d] invalid, minimum is 2", c.Lookback.Min, c.Lookback.Max))
	}
	if c.TradeWindow.Min < 1 || c.TradeWindow.Max < c.TradeWindow.Min {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("trade window range [%d,%d] invalid, minimum is 1", c.TradeWindow.Min, c.TradeWindow.Max))
	}
	return c.Sim.Validate()
}

// CellResult is the outcome of evaluating one grid cell. A skipped cell
// carries the reason instead of a final capital; skipping is the
// expected path for degenerate slices, never an error.
type CellResult struct {
	Lookback     int
	TradeWindow  int
	FinalCapital float64
	Skipped      bool
	Reason       string
}

// Optimize runs the full grid over bars and returns the winning
// parameters plus every cell's result in iteration order (ascending
// lookback, then ascending trade window). The winner is the cell with
// the strictly greatest final capital; ties keep the first-encountered
// cell. When every cell is skipped the fixed defaults win.
//
// Cells are independent pure evaluations and run in parallel on a
// bounded worker pool.
func Optimize(ctx context.Context, bars []core.PriceBar, cfg Config, log *zap.Logger) (core.OptimizationResult, []CellResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return core.OptimizationResult{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return core.OptimizationResult{}, nil, err
	}

	type cell struct {
		idx      int
		lookback int
		tw       int
	}

	var cells []cell
	for lb := cfg.Lookback.Min; lb <= cfg.Lookback.Max; lb++ {
		for tw := cfg.TradeWindow.Min; tw <= cfg.TradeWindow.Max; tw++ {
			cells = append(cells, cell{idx: len(cells), lookback: lb, tw: tw})
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(cells) {
		workers = len(cells)
	}

	results := make([]CellResult, len(cells))
	jobs := make(chan cell)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results[c.idx] = evaluateCell(bars, c.lookback, c.tw, cfg)
			}
		}()
	}

	for _, c := range cells {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return core.OptimizationResult{}, nil, ctx.Err()
		case jobs <- c:
		}
	}
	close(jobs)
	wg.Wait()

	best := -1
	for i, r := range results {
		if r.Skipped {
			continue
		}
		if best == -1 || r.FinalCapital > results[best].FinalCapital {
			best = i
		}
	}

	if best == -1 {
		log.Info("no grid cell produced usable signals, using defaults",
			zap.Int("lookback", DefaultLookback),
			zap.Int("trade_window", DefaultTradeWindow),
		)
		return core.OptimizationResult{
			LookbackWindow: DefaultLookback,
			TradeWindow:    DefaultTradeWindow,
			FinalCapital:   cfg.Sim.InitialCapital,
		}, results, nil
	}

	win := results[best]
	log.Debug("grid search complete",
		zap.Int("cells", len(results)),
		zap.Int("lookback", win.Lookback),
		zap.Int("trade_window", win.TradeWindow),
		zap.Float64("final_capital", win.FinalCapital),
	)

	return core.OptimizationResult{
		LookbackWindow: win.Lookback,
		TradeWindow:    win.TradeWindow,
		FinalCapital:   win.FinalCapital,
	}, results, nil
}

// evaluateCell runs the detect/assign/simulate pipeline for one
// parameter pair. The extrema window couples both parameters so a wider
// trade window also demands a more prominent extreme.
func evaluateCell(bars []core.PriceBar, lookback, tw int, cfg Config) CellResult {
	res := CellResult{Lookback: lookback, TradeWindow: tw}

	support, resistance, err := extrema.Detect(bars, lookback+tw)
	if err != nil {
		res.Skipped = true
		res.Reason = err.Error()
		return res
	}
	if len(support) == 0 && len(resistance) == 0 {
		res.Skipped = true
		res.Reason = "no levels detected"
		return res
	}

	signals, err := signal.Assign(support, resistance, bars, tw, cfg.TradeOn)
	if err != nil {
		res.Skipped = true
		res.Reason = err.Error()
		return res
	}
	if len(signals) == 0 {
		res.Skipped = true
		res.Reason = "no signals assigned"
		return res
	}

	outcome, err := sim.Simulate(signals, bars[len(bars)-1].Close, cfg.Sim, nil)
	if err != nil {
		res.Skipped = true
		res.Reason = err.Error()
		return res
	}
	if len(outcome.Trades) == 0 {
		res.Skipped = true
		res.Reason = "no trades executed"
		return res
	}

	res.FinalCapital = outcome.FinalCapital
	return res
}
