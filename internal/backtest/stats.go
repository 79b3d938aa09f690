package backtest

import (
	"math"

	"github.com/akiyanov/levels/internal/core"
)

// CalculateStats computes performance statistics from matched trades.
// Open trades count toward totals but not win/loss rates; per-trade
// returns are net PnL over the capital the trade consumed.
func CalculateStats(trades []core.MatchedTrade, initialCapital float64) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	var winning, losing, open int
	var totalNet float64
	var returns []float64

	for _, t := range trades {
		if t.Open {
			open++
			continue
		}
		totalNet += t.NetPnL
		cost := t.BuyPrice * t.Shares
		if cost > 0 {
			returns = append(returns, t.NetPnL/cost)
		}
		if t.NetPnL > 0 {
			winning++
		} else {
			losing++
		}
	}

	closed := winning + losing
	var winRate float64
	if closed > 0 {
		winRate = float64(winning) / float64(closed) * 100
	}

	var totalReturn float64
	if initialCapital > 0 {
		totalReturn = totalNet / initialCapital * 100
	}

	return Stats{
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		OpenTrades:    open,
		WinRate:       winRate,
		TotalNetPnL:   totalNet,
		TotalReturn:   totalReturn,
		MaxDrawdown:   calculateMaxDrawdown(returns) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// compounded per-trade return series.
func calculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var maxDD float64
	var peak float64
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= (1 + r)
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			dd := (peak - cumulative) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return, assuming a
// risk-free rate of 0 and ~252 trading days for annualization.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	annualizedReturn := mean * 252
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
