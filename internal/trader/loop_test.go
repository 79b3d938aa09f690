package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akiyanov/levels/internal/broker"
	"github.com/akiyanov/levels/internal/config"
	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/metrics"
	"github.com/akiyanov/levels/internal/storage/archive"
	"github.com/akiyanov/levels/internal/store"
)

var lastDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// seedHistory writes a CSV cache of n daily bars ending on lastDay whose
// closes come from the given function of the day index.
func seedHistory(t *testing.T, st archive.Storage, symbol string, n int, closeAt func(i int) float64) {
	t.Helper()
	bars := make([]core.PriceBar, n)
	for i := 0; i < n; i++ {
		c := closeAt(i)
		bars[i] = core.PriceBar{
			Symbol: symbol,
			Date:   lastDay.AddDate(0, 0, i-n+1),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	data, err := store.EncodeBars(bars)
	if err != nil {
		t.Fatalf("EncodeBars() error = %v", err)
	}
	if err := st.Write(context.Background(), "prices/"+symbol+".csv", data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func testTrader(t *testing.T, st archive.Storage, b broker.Broker) *Trader {
	t.Helper()
	cfg := config.Defaults()
	cfg.Symbols = []config.SymbolConfig{{
		Symbol:         "BTCUSDT",
		LongEnabled:    true,
		InitialCapital: 1000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
		LotRoundFactor: 0.01,
	}}

	tr := New(cfg, store.New(st, nil, nil), b, nil, nil, nil)
	tr.now = func() time.Time { return lastDay.Add(6 * time.Hour) }
	return tr
}

func newArchive(t *testing.T) archive.Storage {
	t.Helper()
	st, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}
	return st
}

func TestRunOnce_BuysOnSupportSignal(t *testing.T) {
	st := newArchive(t)
	// Strictly descending closes: the global minimum is the newest bar,
	// so a buy executes on the final day.
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 200 - float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{
		InitialCash:    10000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
	})
	tr := testTrader(t, st, paper)
	tr.RunOnce(context.Background())

	pos, err := paper.GetPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if pos == nil {
		t.Fatal("expected a long position after the buy signal")
	}
	if pos.Quantity <= 0 {
		t.Errorf("position quantity = %v, want > 0", pos.Quantity)
	}

	bal, err := paper.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if bal.Cash >= 10000 {
		t.Errorf("cash = %v, want reduced by the buy", bal.Cash)
	}
	// Budget is capped at the symbol's configured capital
	if 10000-bal.Cash > 1000+1e-9 {
		t.Errorf("buy spent %v, want at most the per-symbol capital of 1000", 10000-bal.Cash)
	}
}

func TestRunOnce_SellsOnResistanceSignal(t *testing.T) {
	st := newArchive(t)
	// Strictly ascending closes: the global maximum is the newest bar,
	// so a sell executes on the final day.
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 100 + float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{
		InitialCash:    10000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
	})
	_, err := paper.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "BTCUSDT", Side: broker.OrderSideBuy, Quantity: 5, Price: 100,
	})
	if err != nil {
		t.Fatalf("priming buy error = %v", err)
	}

	tr := testTrader(t, st, paper)
	tr.RunOnce(context.Background())

	pos, err := paper.GetPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if pos != nil {
		t.Errorf("position = %+v, want flat after the sell signal", pos)
	}
}

func TestRunOnce_SellWhileFlatIsNoOp(t *testing.T) {
	st := newArchive(t)
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 100 + float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{InitialCash: 10000})
	tr := testTrader(t, st, paper)
	tr.RunOnce(context.Background())

	bal, err := paper.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if bal.Cash != 10000 {
		t.Errorf("cash = %v, want untouched", bal.Cash)
	}
}

func TestRunOnce_DisabledSymbolSkipped(t *testing.T) {
	st := newArchive(t)
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 200 - float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{InitialCash: 10000})
	tr := testTrader(t, st, paper)
	tr.cfg.Symbols[0].LongEnabled = false
	tr.RunOnce(context.Background())

	pos, err := paper.GetPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if pos != nil {
		t.Errorf("position = %+v, want none for disabled symbol", pos)
	}
}

func TestRunOnce_BuyWhileLongIsNoOp(t *testing.T) {
	st := newArchive(t)
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 200 - float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{
		InitialCash:    10000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
	})
	tr := testTrader(t, st, paper)
	tr.RunOnce(context.Background())
	first, err := paper.GetPosition(context.Background(), "BTCUSDT")
	if err != nil || first == nil {
		t.Fatalf("GetPosition() = %v, %v after first cycle", first, err)
	}

	tr.RunOnce(context.Background())
	second, err := paper.GetPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if second.Quantity != first.Quantity {
		t.Errorf("quantity grew from %v to %v, pyramiding must not happen",
			first.Quantity, second.Quantity)
	}
}

// counterTotal sums a counter family across all label sets.
func counterTotal(t *testing.T, m *metrics.Registry, name string) float64 {
	t.Helper()
	families, err := m.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestRunOnce_RecordsOptimizerCellMetrics(t *testing.T) {
	st := newArchive(t)
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 200 - float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{
		InitialCash:    10000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
	})
	tr := testTrader(t, st, paper)
	m := metrics.NewRegistry()
	tr.metrics = m
	tr.RunOnce(context.Background())

	evaluated := counterTotal(t, m, "levels_optimizer_cells_evaluated_total")
	skipped := counterTotal(t, m, "levels_optimizer_cells_skipped_total")
	if evaluated == 0 {
		t.Error("no evaluated grid cells recorded after a trading cycle")
	}

	grid := tr.cfg.OptimizerConfig(tr.cfg.Symbols[0])
	cells := float64((grid.Lookback.Max - grid.Lookback.Min + 1) *
		(grid.TradeWindow.Max - grid.TradeWindow.Min + 1))
	if evaluated+skipped != cells {
		t.Errorf("evaluated %v + skipped %v = %v, want the full grid of %v",
			evaluated, skipped, evaluated+skipped, cells)
	}
}

// rejectingBroker fails every order placement.
type rejectingBroker struct {
	cash float64
}

func (b *rejectingBroker) Name() string { return "rejecting" }

func (b *rejectingBroker) PlaceOrder(ctx context.Context, request broker.OrderRequest) (*broker.Order, error) {
	return nil, broker.ErrInsufficientFunds
}

func (b *rejectingBroker) GetOrder(ctx context.Context, orderID string) (*broker.Order, error) {
	return nil, broker.ErrOrderNotFound
}

func (b *rejectingBroker) GetPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	return nil, nil
}

func (b *rejectingBroker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	return &broker.Balance{Cash: b.cash}, nil
}

func TestExecuteBuy_WrapsBrokerRejection(t *testing.T) {
	st := newArchive(t)
	tr := testTrader(t, st, &rejectingBroker{cash: 10000})

	sig := core.Signal{
		Action:         core.ActionBuy,
		ExecutionDate:  lastDay,
		ExecutionPrice: 100,
	}
	err := tr.executeBuy(context.Background(), tr.cfg.Symbols[0], sig)
	if !errors.Is(err, core.ErrOrderFailed) {
		t.Errorf("executeBuy() error = %v, want core.ErrOrderFailed", err)
	}
	if !errors.Is(err, broker.ErrInsufficientFunds) {
		t.Errorf("executeBuy() error = %v, should wrap the broker error", err)
	}
}

func TestStartStop(t *testing.T) {
	st := newArchive(t)
	seedHistory(t, st, "BTCUSDT", 30, func(i int) float64 { return 100 + float64(i) })

	paper := broker.NewPaper(broker.PaperConfig{InitialCash: 10000})
	tr := testTrader(t, st, paper)
	tr.cfg.Trader.Interval = time.Hour

	done := make(chan error, 1)
	go func() { done <- tr.Start(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	tr.Stop()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("trader did not stop")
	}
}
