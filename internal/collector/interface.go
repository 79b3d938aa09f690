package collector

import (
	"context"
	"time"

	"github.com/akiyanov/levels/internal/core"
)

// Config holds collector configuration
type Config struct {
	Providers    []string
	DefaultQuote string
	Extra        map[string]any
}

// Collector defines the interface for daily price history sources
type Collector interface {
	// Name returns the collector identifier (e.g., "crypto")
	Name() string

	// FetchDaily fetches daily price bars for a symbol in [start, end],
	// sorted ascending by date
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error)
}
