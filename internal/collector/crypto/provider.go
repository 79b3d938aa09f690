package crypto

import (
	"context"
	"time"

	"github.com/akiyanov/levels/internal/core"
)

// Provider defines the interface for cryptocurrency exchange data sources
type Provider interface {
	// Name returns the provider identifier (e.g., "binance", "okx")
	Name() string

	// FetchDaily fetches daily candles for a normalized symbol (e.g., "BTCUSDT")
	// in [start, end], sorted ascending by date
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error)
}
