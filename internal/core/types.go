package core

import "time"

// SyntheticVolume is the sentinel volume marking a bar that was
// interpolated to fill a calendar gap rather than fetched from an
// exchange. Synthetic bars participate in all calculations like real
// bars; they are replaced when real data becomes available.
const SyntheticVolume = -1000

// PriceBar represents one day of OHLCV data for a symbol.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IsSynthetic reports whether the bar was interpolated rather than fetched.
func (b PriceBar) IsSynthetic() bool {
	return b.Volume == SyntheticVolume
}

// LevelKind distinguishes support from resistance levels.
type LevelKind string

const (
	// KindSupport marks a local price floor (local minimum close).
	KindSupport LevelKind = "support"
	// KindResistance marks a local price ceiling (local maximum close).
	KindResistance LevelKind = "resistance"
)

// Level is a detected support or resistance point. Immutable once created.
type Level struct {
	Date  time.Time
	Price float64
	Kind  LevelKind
}

// Action represents a trading decision derived from a level.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	// ActionNone marks a level suppressed by the consecutive-run
	// collapsing rule.
	ActionNone Action = "none"
)

// PriceField selects which bar field an order executes at.
type PriceField string

const (
	TradeOnOpen  PriceField = "open"
	TradeOnClose PriceField = "close"
)

// Signal is one decision derived from a Level. ExecutionDate is the
// first trading day at or after the level date plus the trade window,
// clamped to the last available bar.
type Signal struct {
	Symbol         string
	LevelDate      time.Time
	LevelPrice     float64
	Kind           LevelKind
	Action         Action
	ExecutionDate  time.Time
	ExecutionPrice float64
}

// MatchedTrade is a completed buy+sell round trip, or an unclosed buy
// awaiting a future sell. Open is the discriminant: when true, the
// sell-side fields carry the mark-to-market valuation at the last
// available close instead of a realized exit.
type MatchedTrade struct {
	Symbol          string
	Open            bool
	BuyDate         time.Time
	BuyPrice        float64
	SellDate        time.Time
	SellPrice       float64
	Shares          float64
	GrossPnL        float64
	CommissionTotal float64
	NetPnL          float64
}

// OptimizationResult is the winning cell of a parameter grid search.
type OptimizationResult struct {
	LookbackWindow int
	TradeWindow    int
	FinalCapital   float64
}

// EquityPoint is one day of the mark-to-market equity curve.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}
