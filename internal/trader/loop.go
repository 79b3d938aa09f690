// Package trader runs the live paper trading loop: it refreshes price
// history, re-optimizes strategy parameters, and places orders for
// signals that execute on the current day.
package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akiyanov/levels/internal/backtest"
	"github.com/akiyanov/levels/internal/broker"
	"github.com/akiyanov/levels/internal/config"
	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/extrema"
	"github.com/akiyanov/levels/internal/metrics"
	"github.com/akiyanov/levels/internal/notifier"
	"github.com/akiyanov/levels/internal/sim"
	"github.com/akiyanov/levels/internal/signal"
	"github.com/akiyanov/levels/internal/store"
)

// Trader drives periodic trading cycles across configured symbols.
type Trader struct {
	cfg       *config.Config
	store     *store.PriceSeriesStore
	runner    *backtest.Runner
	broker    broker.Broker
	notifiers *notifier.Registry
	metrics   *metrics.Registry
	log       *zap.Logger

	// now is swappable for tests
	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a trader over the given collaborators.
func New(cfg *config.Config, st *store.PriceSeriesStore, b broker.Broker, reg *notifier.Registry, m *metrics.Registry, log *zap.Logger) *Trader {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	if reg == nil {
		reg = notifier.NewRegistry()
	}
	return &Trader{
		cfg:       cfg,
		store:     st,
		runner:    backtest.NewRunner(log),
		broker:    b,
		notifiers: reg,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Start begins the trading loop and blocks until the context ends.
func (t *Trader) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return fmt.Errorf("trader already running")
	}
	t.running = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.log.Info("trader starting",
		zap.Int("symbols", len(t.cfg.Symbols)),
		zap.Duration("interval", t.cfg.Trader.Interval),
	)

	t.RunOnce(ctx)

	ticker := time.NewTicker(t.cfg.Trader.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("trader shutting down")
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// Stop cancels a running loop.
func (t *Trader) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

// RunOnce executes a single trading cycle across all enabled symbols.
func (t *Trader) RunOnce(ctx context.Context) {
	for _, sym := range t.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		if !sym.LongEnabled {
			continue
		}
		if err := t.tradeSymbol(ctx, sym); err != nil {
			t.log.Error("trading cycle failed",
				zap.String("symbol", sym.Symbol), zap.Error(err))
		}
	}
}

func (t *Trader) tradeSymbol(ctx context.Context, sym config.SymbolConfig) error {
	end := t.now().UTC().Truncate(24 * time.Hour)
	years := t.cfg.Backtest.YearsBack
	if years <= 0 {
		years = 3
	}
	start := end.AddDate(-years, 0, 0)

	bars, err := t.store.Load(ctx, sym.Symbol, start, end)
	if err != nil {
		t.metrics.RecordHistoryFetch(sym.Symbol, "error")
		return err
	}
	t.metrics.RecordHistoryFetch(sym.Symbol, "success")
	t.metrics.SetCacheBars(sym.Symbol, len(bars))

	began := time.Now()
	result, err := t.runner.Run(ctx, sym.Symbol, bars, backtest.Config{
		Window: backtest.Window{
			YearsBack:    t.cfg.Backtest.YearsBack,
			PercentStart: t.cfg.Backtest.PercentStart,
			PercentEnd:   t.cfg.Backtest.PercentEnd,
		},
		Optimizer: t.cfg.OptimizerConfig(sym),
	})
	if err != nil {
		t.metrics.RecordBacktest(sym.Symbol, "error", time.Since(began).Seconds())
		return err
	}
	t.metrics.RecordBacktest(sym.Symbol, "success", time.Since(began).Seconds())
	for _, cell := range result.Cells {
		if cell.Skipped {
			t.metrics.RecordCellSkipped(cell.Reason)
		} else {
			t.metrics.RecordCellEvaluated()
		}
	}

	sig, ok := t.todaysSignal(bars, result.Params, sym)
	if !ok {
		t.log.Debug("no actionable signal today", zap.String("symbol", sym.Symbol))
		return nil
	}

	return t.execute(ctx, sym, sig)
}

// todaysSignal re-derives the signal sequence with the optimized
// parameters and returns the one executing on the newest bar, if any.
func (t *Trader) todaysSignal(bars []core.PriceBar, params core.OptimizationResult, sym config.SymbolConfig) (core.Signal, bool) {
	window := params.LookbackWindow + params.TradeWindow
	support, resistance, err := extrema.Detect(bars, window)
	if err != nil {
		return core.Signal{}, false
	}

	signals, err := signal.Assign(support, resistance, bars, params.TradeWindow, sym.TradeField())
	if err != nil {
		return core.Signal{}, false
	}

	today := bars[len(bars)-1].Date
	for i := len(signals) - 1; i >= 0; i-- {
		if !signals[i].ExecutionDate.Equal(today) {
			break
		}
		if signals[i].Action != core.ActionNone {
			return signals[i], true
		}
	}
	return core.Signal{}, false
}

func (t *Trader) execute(ctx context.Context, sym config.SymbolConfig, sig core.Signal) error {
	switch sig.Action {
	case core.ActionBuy:
		return t.executeBuy(ctx, sym, sig)
	case core.ActionSell:
		return t.executeSell(ctx, sym, sig)
	}
	return nil
}

func (t *Trader) executeBuy(ctx context.Context, sym config.SymbolConfig, sig core.Signal) error {
	pos, err := t.broker.GetPosition(ctx, sym.Symbol)
	if err != nil {
		return err
	}
	if pos != nil {
		t.log.Debug("already long, skipping buy", zap.String("symbol", sym.Symbol))
		return nil
	}

	balance, err := t.broker.GetBalance(ctx)
	if err != nil {
		return err
	}
	budget := balance.Cash
	if sym.InitialCapital < budget {
		budget = sym.InitialCapital
	}

	shares, _, _ := sim.SizeBuy(budget, sig.ExecutionPrice, sym.SimConfig())
	if shares <= 0 {
		t.log.Info("buy skipped, budget cannot cover one lot",
			zap.String("symbol", sym.Symbol),
			zap.Float64("budget", budget),
			zap.Float64("price", sig.ExecutionPrice))
		return nil
	}

	order, err := t.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:   sym.Symbol,
		Side:     broker.OrderSideBuy,
		Quantity: shares,
		Price:    sig.ExecutionPrice,
	})
	if err != nil {
		t.metrics.RecordPaperOrder(sym.Symbol, "buy", "rejected")
		return core.WrapError(core.ErrOrderFailed, err)
	}
	t.metrics.RecordPaperOrder(sym.Symbol, "buy", "filled")
	t.announce(order, "support level entry")
	return nil
}

func (t *Trader) executeSell(ctx context.Context, sym config.SymbolConfig, sig core.Signal) error {
	pos, err := t.broker.GetPosition(ctx, sym.Symbol)
	if err != nil {
		return err
	}
	if pos == nil {
		t.log.Debug("flat, skipping sell", zap.String("symbol", sym.Symbol))
		return nil
	}

	order, err := t.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:   sym.Symbol,
		Side:     broker.OrderSideSell,
		Quantity: pos.Quantity,
		Price:    sig.ExecutionPrice,
	})
	if err != nil {
		t.metrics.RecordPaperOrder(sym.Symbol, "sell", "rejected")
		return core.WrapError(core.ErrOrderFailed, err)
	}
	t.metrics.RecordPaperOrder(sym.Symbol, "sell", "filled")
	t.announce(order, "resistance level exit")
	return nil
}

func (t *Trader) announce(order *broker.Order, note string) {
	event := notifier.Event{
		Symbol:     order.Symbol,
		Side:       string(order.Side),
		Quantity:   order.Quantity,
		Price:      order.FillPrice,
		Commission: order.Commission,
		Note:       note,
		Time:       order.CreatedAt,
	}
	failures := t.notifiers.NotifyAll(event)
	for name, err := range failures {
		t.metrics.RecordNotification(name, "error")
		t.log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
	for _, n := range t.notifiers.GetAll() {
		if _, failed := failures[n.Name()]; !failed {
			t.metrics.RecordNotification(n.Name(), "success")
		}
	}
}
