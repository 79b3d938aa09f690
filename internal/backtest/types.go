package backtest

import (
	"time"

	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/optimize"
)

// Result holds the complete backtest output for one symbol.
type Result struct {
	// RunID identifies this run in logs and exports.
	RunID string
	// Symbol is the backtested instrument.
	Symbol string
	// Params are the winning optimizer parameters.
	Params core.OptimizationResult
	// Cells are all evaluated grid cells in iteration order.
	Cells []optimize.CellResult
	// Trades are the matched trades from the final full-history run.
	Trades []core.MatchedTrade
	// FinalCapital is the cash after the final run.
	FinalCapital float64
	// EquityCurve is the daily mark-to-market portfolio value.
	EquityCurve []core.EquityPoint
	// Stats summarizes trade performance.
	Stats Stats
	// SliceStart and SliceEnd bound the optimization slice.
	SliceStart time.Time
	SliceEnd   time.Time
}

// Stats holds performance statistics over matched trades.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	OpenTrades    int
	WinRate       float64 // Percentage of profitable closed trades
	TotalNetPnL   float64
	TotalReturn   float64 // Net return percentage on initial capital
	MaxDrawdown   float64 // Largest peak-to-trough equity decline, percent
	SharpeRatio   float64 // Risk-adjusted return (annualized)
}
