// Package sim replays signal sequences against a single long-only
// position with commission and lot-rounding rules.
package sim

import (
	"fmt"
	"math"

	"github.com/akiyanov/levels/internal/core"
	"go.uber.org/zap"
)

// Config holds the capital and fee rules for a simulation run.
type Config struct {
	// InitialCapital is the starting cash, must be positive.
	InitialCapital float64
	// CommissionRate is the fractional fee charged on each leg.
	CommissionRate float64
	// MinCommission is the fee floor per leg; charged even when the
	// percentage fee computes lower.
	MinCommission float64
	// LotRoundFactor is the broker's share granularity: share counts
	// are rounded to the nearest multiple (e.g. 1.0 for whole units,
	// 0.01 for two decimals).
	LotRoundFactor float64
}

// Validate reports invariant violations loudly; these are caller bugs,
// not data conditions.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital))
	}
	if c.LotRoundFactor <= 0 {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("lot round factor must be positive, got %v", c.LotRoundFactor))
	}
	if c.CommissionRate < 0 {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("commission rate cannot be negative, got %v", c.CommissionRate))
	}
	if c.MinCommission < 0 {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("min commission cannot be negative, got %v", c.MinCommission))
	}
	return nil
}

// Result is the outcome of one simulation run. FinalCapital is cash
// only; an unclosed position stays invested and is reported as the
// trailing open trade instead.
type Result struct {
	FinalCapital float64
	Trades       []core.MatchedTrade
}

// eps absorbs float64 rounding noise in affordability checks.
const eps = 1e-9

// Simulate replays signals in order against a Flat/Long state machine.
// Buys open a position when flat, sells close it when long; anything
// else is a no-op. lastClose values the final open position (if any)
// for unrealized-PnL reporting without touching capital. Signals are
// expected sorted by execution date.
func Simulate(signals []core.Signal, lastClose float64, cfg Config, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	capital := cfg.InitialCapital
	var trades []core.MatchedTrade
	var open *core.MatchedTrade

	for _, sig := range signals {
		switch sig.Action {
		case core.ActionBuy:
			if open != nil {
				continue // already long, repeated entry is a no-op
			}
			shares, cost, commission := SizeBuy(capital, sig.ExecutionPrice, cfg)
			if shares <= 0 {
				log.Info("skipping buy, capital cannot cover one lot",
					zap.String("symbol", sig.Symbol),
					zap.Time("date", sig.ExecutionDate),
					zap.Float64("price", sig.ExecutionPrice),
					zap.Float64("capital", capital),
				)
				continue
			}
			capital -= cost + commission
			open = &core.MatchedTrade{
				Symbol:          sig.Symbol,
				Open:            true,
				BuyDate:         sig.ExecutionDate,
				BuyPrice:        sig.ExecutionPrice,
				Shares:          shares,
				CommissionTotal: commission,
			}

		case core.ActionSell:
			if open == nil {
				continue // flat, nothing to close
			}
			revenue := open.Shares * sig.ExecutionPrice
			commission := legCommission(revenue, cfg)
			capital += revenue - commission

			entryCost := open.Shares * open.BuyPrice
			open.Open = false
			open.SellDate = sig.ExecutionDate
			open.SellPrice = sig.ExecutionPrice
			open.GrossPnL = revenue - entryCost
			open.CommissionTotal += commission
			open.NetPnL = open.GrossPnL - open.CommissionTotal
			trades = append(trades, *open)
			open = nil
		}
	}

	// A position still held at the end is reported marked at the last
	// close. Capital stays invested.
	if open != nil {
		entryCost := open.Shares * open.BuyPrice
		open.SellPrice = lastClose
		open.GrossPnL = open.Shares*lastClose - entryCost
		open.NetPnL = open.GrossPnL - open.CommissionTotal
		trades = append(trades, *open)
	}

	return Result{FinalCapital: capital, Trades: trades}, nil
}

// SizeBuy computes an affordable lot-rounded share count for a buy at
// price. Nearest-multiple rounding can push the total above available
// capital; in that case the budget shrinks by the commission floor and
// shares step down one lot at a time until the trade fits. A zero
// return means the buy should be skipped.
func SizeBuy(capital, price float64, cfg Config) (shares, cost, commission float64) {
	if price <= 0 {
		return 0, 0, 0
	}

	shares = roundLot(capital/price, cfg.LotRoundFactor)
	cost = shares * price
	commission = legCommission(cost, cfg)

	if cost+commission > capital+eps {
		budget := capital - cfg.MinCommission
		shares = roundLot(budget/price, cfg.LotRoundFactor)
		cost = shares * price
		commission = legCommission(cost, cfg)
	}

	for shares > 0 && cost+commission > capital+eps {
		shares = roundLot(shares-cfg.LotRoundFactor, cfg.LotRoundFactor)
		cost = shares * price
		commission = legCommission(cost, cfg)
	}

	if shares <= 0 {
		return 0, 0, 0
	}
	return shares, cost, commission
}

// legCommission applies the percentage fee with a per-leg floor.
func legCommission(amount float64, cfg Config) float64 {
	return math.Max(amount*cfg.CommissionRate, cfg.MinCommission)
}

// roundLot rounds shares to the nearest multiple of factor.
func roundLot(shares, factor float64) float64 {
	if shares <= 0 {
		return 0
	}
	return math.Round(shares/factor) * factor
}
