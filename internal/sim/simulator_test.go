package sim

import (
	"testing"
	"time"

	"github.com/akiyanov/levels/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sig(dayOffset int, action core.Action, price float64) core.Signal {
	kind := core.KindSupport
	if action == core.ActionSell {
		kind = core.KindResistance
	}
	return core.Signal{
		Symbol:         "TEST",
		Kind:           kind,
		Action:         action,
		ExecutionDate:  base.AddDate(0, 0, dayOffset),
		ExecutionPrice: price,
	}
}

func testConfig() Config {
	return Config{
		InitialCapital: 1000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
		LotRoundFactor: 0.01,
	}
}

func TestSimulate_BuyShrinksToAffordableLot(t *testing.T) {
	// capital 1000 at price 100: the naive 10.0 shares cost 1000 plus
	// 1.80 commission and overdraw. Reserving the commission floor
	// gives 9.99 shares, still 1000.7982 total, so one more lot step
	// down lands at 9.98 shares (999.7964 total).
	res, err := Simulate([]core.Signal{sig(0, core.ActionBuy, 100)}, 100, testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.True(t, trade.Open)
	assert.InDelta(t, 9.98, trade.Shares, 1e-9)
	assert.InDelta(t, 1000-998-1.7964, res.FinalCapital, 1e-9)
	assert.GreaterOrEqual(t, res.FinalCapital, 0.0)
}

func TestSimulate_RoundTripPnL(t *testing.T) {
	signals := []core.Signal{
		sig(0, core.ActionBuy, 100),
		sig(5, core.ActionSell, 110),
	}
	res, err := Simulate(signals, 110, testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.False(t, trade.Open)
	assert.InDelta(t, 9.98, trade.Shares, 1e-9)

	buyCommission := 998 * 0.0018
	sellCommission := 9.98 * 110 * 0.0018
	assert.InDelta(t, buyCommission+sellCommission, trade.CommissionTotal, 1e-9)
	assert.InDelta(t, (110-100.0)*9.98, trade.GrossPnL, 1e-9)

	// net_pnl == (sell-buy)*shares - both commissions
	assert.InDelta(t, trade.GrossPnL-trade.CommissionTotal, trade.NetPnL, 1e-9)
	assert.InDelta(t, 1000+trade.NetPnL, res.FinalCapital, 1e-9)
}

func TestSimulate_StateInconsistentSignalsAreNoOps(t *testing.T) {
	signals := []core.Signal{
		sig(0, core.ActionSell, 120), // flat, ignored
		sig(1, core.ActionBuy, 100),
		sig(2, core.ActionBuy, 90), // already long, ignored
		sig(3, core.ActionNone, 95),
		sig(4, core.ActionSell, 110),
		sig(5, core.ActionSell, 130), // flat again, ignored
	}
	res, err := Simulate(signals, 130, testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 100.0, res.Trades[0].BuyPrice)
	assert.Equal(t, 110.0, res.Trades[0].SellPrice)
}

func TestSimulate_OpenPositionEmittedWithoutTouchingCapital(t *testing.T) {
	signals := []core.Signal{sig(0, core.ActionBuy, 100)}
	res, err := Simulate(signals, 120, testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	require.True(t, trade.Open)
	assert.Equal(t, 120.0, trade.SellPrice, "open trade is marked at last close")
	assert.True(t, trade.SellDate.IsZero())
	assert.InDelta(t, (120-100.0)*trade.Shares, trade.GrossPnL, 1e-9)

	// Capital stays invested: only the residual cash remains.
	assert.Less(t, res.FinalCapital, 1.0)
}

func TestSimulate_WholeLotRounding(t *testing.T) {
	cfg := Config{
		InitialCapital: 1000,
		CommissionRate: 0.001,
		MinCommission:  0.5,
		LotRoundFactor: 1.0,
	}
	res, err := Simulate([]core.Signal{sig(0, core.ActionBuy, 301)}, 301, cfg, nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	// 1000/301 = 3.32 raw, rounds to 3 whole shares (903 + 0.903 fee).
	assert.Equal(t, 3.0, res.Trades[0].Shares)
}

func TestSimulate_CapitalTooSmallToBuySkips(t *testing.T) {
	cfg := Config{
		InitialCapital: 5,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
		LotRoundFactor: 1.0,
	}
	// One whole share costs 100; unaffordable, and not an error.
	res, err := Simulate([]core.Signal{sig(0, core.ActionBuy, 100)}, 100, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 5.0, res.FinalCapital)
}

func TestSimulate_NeverOverdraws(t *testing.T) {
	prices := []float64{3.7, 11.1, 99.95, 250, 104.5}
	for _, p := range prices {
		res, err := Simulate([]core.Signal{sig(0, core.ActionBuy, p)}, p, testConfig(), nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.FinalCapital, -eps, "buy at %v overdrew capital", p)
	}
}

func TestSimulate_CompoundingAcrossTrades(t *testing.T) {
	signals := []core.Signal{
		sig(0, core.ActionBuy, 100),
		sig(1, core.ActionSell, 120),
		sig(2, core.ActionBuy, 100),
		sig(3, core.ActionSell, 120),
	}
	res, err := Simulate(signals, 120, testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	// The second trade sizes from the grown capital.
	assert.Greater(t, res.Trades[1].Shares, res.Trades[0].Shares)
	assert.Greater(t, res.FinalCapital, 1000.0)
}

func TestSimulate_InvalidConfig(t *testing.T) {
	bad := []Config{
		{InitialCapital: 0, LotRoundFactor: 1},
		{InitialCapital: 1000, LotRoundFactor: 0},
		{InitialCapital: 1000, LotRoundFactor: 1, CommissionRate: -0.1},
		{InitialCapital: 1000, LotRoundFactor: 1, MinCommission: -1},
	}
	for _, cfg := range bad {
		_, err := Simulate(nil, 0, cfg, nil)
		assert.ErrorIs(t, err, core.ErrInvalidParameter, "config %+v", cfg)
	}
}

func TestSimulate_NoSignals(t *testing.T) {
	res, err := Simulate(nil, 0, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.FinalCapital)
	assert.Empty(t, res.Trades)
}
