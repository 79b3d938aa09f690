// Package extrema detects local price extrema in a closing-price series
// and turns them into support and resistance levels.
package extrema

import (
	"fmt"

	"github.com/akiyanov/levels/internal/core"
)

// Detect finds support (local minimum) and resistance (local maximum)
// levels in the closing prices of bars. A bar is a local minimum when its
// close is strictly below every close within window bars on both sides;
// the rule for maxima is symmetric. The global minimum and maximum close
// are always included, so any non-empty series yields at least one level
// of each kind. Both outputs are sorted ascending by date.
func Detect(bars []core.PriceBar, window int) (support, resistance []core.Level, err error) {
	if window < 1 {
		return nil, nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("extrema window must be >= 1, got %d", window))
	}
	if len(bars) == 0 {
		return nil, nil, nil
	}

	isSupport := make([]bool, len(bars))
	isResistance := make([]bool, len(bars))

	// Only bars with a full window on both sides qualify as local
	// extrema. A series shorter than 2*window+1 gets levels from the
	// global fallback alone.
	for i := window; i < len(bars)-window; i++ {
		c := bars[i].Close
		localMin, localMax := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].Close <= c {
				localMin = false
			}
			if bars[j].Close >= c {
				localMax = false
			}
			if !localMin && !localMax {
				break
			}
		}
		if localMin {
			isSupport[i] = true
		}
		if localMax {
			isResistance[i] = true
		}
	}

	// Global extrema are always levels, even when the window rule
	// misses them. First occurrence wins on ties.
	minIdx, maxIdx := 0, 0
	for i := 1; i < len(bars); i++ {
		if bars[i].Close < bars[minIdx].Close {
			minIdx = i
		}
		if bars[i].Close > bars[maxIdx].Close {
			maxIdx = i
		}
	}
	isSupport[minIdx] = true
	isResistance[maxIdx] = true

	for i, bar := range bars {
		if isSupport[i] {
			support = append(support, core.Level{
				Date:  bar.Date,
				Price: bar.Close,
				Kind:  core.KindSupport,
			})
		}
		if isResistance[i] {
			resistance = append(resistance, core.Level{
				Date:  bar.Date,
				Price: bar.Close,
				Kind:  core.KindResistance,
			})
		}
	}

	return support, resistance, nil
}
