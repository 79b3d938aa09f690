package main

import (
	"strings"
	"testing"
	"time"

	"github.com/akiyanov/levels/internal/backtest"
	"github.com/akiyanov/levels/internal/core"
)

func TestPrintBacktest_StatsAreNotRescaled(t *testing.T) {
	buy := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	sell := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	result := &backtest.Result{
		RunID:        "run-1",
		Symbol:       "BTCUSDT",
		Params:       core.OptimizationResult{LookbackWindow: 5, TradeWindow: 2},
		FinalCapital: 11000,
		Trades: []core.MatchedTrade{{
			BuyDate: buy, BuyPrice: 100, SellDate: sell, SellPrice: 110,
			Shares: 10, NetPnL: 100,
		}},
		Stats: backtest.Stats{
			TotalTrades: 2,
			OpenTrades:  1,
			WinRate:     50,
			TotalNetPnL: 1000,
			TotalReturn: 10,
			MaxDrawdown: 5,
			SharpeRatio: 1.2,
		},
	}

	var out strings.Builder
	printBacktest(&out, result, 10000)
	got := out.String()

	// Stats arrive as percentages and must print verbatim.
	for _, want := range []string{
		"Win rate:     50.0%",
		"Return:       10.00%",
		"Max drawdown: 5.00%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, bogus := range []string{"5000.0%", "1000.00%", "500.00%"} {
		if strings.Contains(got, bogus) {
			t.Errorf("output contains rescaled value %q:\n%s", bogus, got)
		}
	}
}
