// Package signal turns support/resistance levels into dated, priced
// buy/sell decisions.
package signal

import (
	"fmt"
	"sort"
	"time"

	"github.com/akiyanov/levels/internal/core"
)

// Assign merges support and resistance levels chronologically and
// derives one Signal per level. Within a run of consecutive same-kind
// levels only the first fires an action: a support starts a run with
// Buy, a resistance with Sell, and every later level of the same kind
// is suppressed to ActionNone until the opposite kind appears. Repeated
// confirmations of a level that is already held must not re-enter the
// position; the first touch is the trigger.
//
// Each level's execution date is the first trading day in bars at or
// after the level date plus tradeWindow calendar days; if the offset
// lands beyond the last bar the last date is used. The execution price
// is that bar's open or close per field. The result is sorted ascending
// by execution date.
func Assign(support, resistance []core.Level, bars []core.PriceBar, tradeWindow int, field core.PriceField) ([]core.Signal, error) {
	if tradeWindow < 0 {
		return nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("trade window must be >= 0, got %d", tradeWindow))
	}
	if len(bars) == 0 {
		return nil, nil
	}

	merged := mergeLevels(support, resistance)
	if len(merged) == 0 {
		return nil, nil
	}

	symbol := bars[0].Symbol
	signals := make([]core.Signal, 0, len(merged))
	var lastKind core.LevelKind

	for _, lvl := range merged {
		action := core.ActionNone
		if lvl.Kind != lastKind {
			if lvl.Kind == core.KindSupport {
				action = core.ActionBuy
			} else {
				action = core.ActionSell
			}
		}
		lastKind = lvl.Kind

		execBar := resolveExecutionBar(bars, lvl.Date.AddDate(0, 0, tradeWindow))
		price := execBar.Close
		if field == core.TradeOnOpen {
			price = execBar.Open
		}

		signals = append(signals, core.Signal{
			Symbol:         symbol,
			LevelDate:      lvl.Date,
			LevelPrice:     lvl.Price,
			Kind:           lvl.Kind,
			Action:         action,
			ExecutionDate:  execBar.Date,
			ExecutionPrice: price,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].ExecutionDate.Before(signals[j].ExecutionDate)
	})

	return signals, nil
}

// mergeLevels interleaves two date-sorted level slices into one
// chronological sequence. Date ties order support before resistance so
// identical inputs always produce identical output.
func mergeLevels(support, resistance []core.Level) []core.Level {
	merged := make([]core.Level, 0, len(support)+len(resistance))
	i, j := 0, 0
	for i < len(support) && j < len(resistance) {
		if support[i].Date.After(resistance[j].Date) {
			merged = append(merged, resistance[j])
			j++
		} else {
			merged = append(merged, support[i])
			i++
		}
	}
	merged = append(merged, support[i:]...)
	merged = append(merged, resistance[j:]...)
	return merged
}

// resolveExecutionBar finds the first bar dated at or after target.
// Offsets past the end of the series clamp to the last bar.
func resolveExecutionBar(bars []core.PriceBar, target time.Time) core.PriceBar {
	idx := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(target)
	})
	if idx == len(bars) {
		return bars[len(bars)-1]
	}
	return bars[idx]
}
