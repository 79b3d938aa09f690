package backtest

import (
	"math"

	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/sim"
)

// buildEquityCurve replays matched trades against the bar series and
// values the portfolio daily: cash while flat, cash plus shares at the
// day's close while a position is held, so the curve moves every day
// during a held position rather than only at trade boundaries.
func buildEquityCurve(bars []core.PriceBar, trades []core.MatchedTrade, cfg sim.Config) []core.EquityPoint {
	if len(bars) == 0 {
		return nil
	}

	type event struct {
		date   int64 // unix day the leg executed
		delta  float64
		shares float64
	}

	var events []event
	for _, t := range trades {
		cost := t.Shares * t.BuyPrice
		buyCommission := math.Max(cost*cfg.CommissionRate, cfg.MinCommission)
		events = append(events, event{
			date:   t.BuyDate.Unix(),
			delta:  -(cost + buyCommission),
			shares: t.Shares,
		})
		if !t.Open {
			revenue := t.Shares * t.SellPrice
			sellCommission := t.CommissionTotal - buyCommission
			events = append(events, event{
				date:   t.SellDate.Unix(),
				delta:  revenue - sellCommission,
				shares: 0,
			})
		}
	}

	cash := cfg.InitialCapital
	held := 0.0
	curve := make([]core.EquityPoint, 0, len(bars))
	ei := 0

	for _, bar := range bars {
		for ei < len(events) && events[ei].date <= bar.Date.Unix() {
			cash += events[ei].delta
			held = events[ei].shares
			ei++
		}
		curve = append(curve, core.EquityPoint{
			Date:   bar.Date,
			Equity: cash + held*bar.Close,
		})
	}

	return curve
}
