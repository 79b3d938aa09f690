package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/akiyanov/levels/internal/collector"
	"github.com/akiyanov/levels/internal/collector/crypto/binance"
	"github.com/akiyanov/levels/internal/collector/crypto/okx"
	"github.com/akiyanov/levels/internal/core"
)

// CryptoCollector implements collector.Collector for cryptocurrency markets,
// trying each provider in order until one returns data.
type CryptoCollector struct {
	providers    []Provider
	defaultQuote string
}

// New creates a CryptoCollector with the default provider chain:
// Binance first, then OKX.
func New() *CryptoCollector {
	return &CryptoCollector{
		providers: []Provider{
			binance.New(),
			okx.New(),
		},
		defaultQuote: "USDT",
	}
}

// NewWithProviders creates a CryptoCollector with custom providers
func NewWithProviders(providers []Provider, defaultQuote string) *CryptoCollector {
	if defaultQuote == "" {
		defaultQuote = "USDT"
	}
	return &CryptoCollector{
		providers:    providers,
		defaultQuote: defaultQuote,
	}
}

// FromConfig creates a CryptoCollector from collector configuration
func FromConfig(cfg collector.Config) *CryptoCollector {
	c := New()
	if cfg.DefaultQuote != "" {
		c.defaultQuote = cfg.DefaultQuote
	}
	if len(cfg.Providers) > 0 {
		providers := make([]Provider, 0, len(cfg.Providers))
		for _, name := range cfg.Providers {
			switch name {
			case "binance":
				providers = append(providers, binance.New())
			case "okx":
				providers = append(providers, okx.New())
			}
		}
		if len(providers) > 0 {
			c.providers = providers
		}
	}
	return c
}

func (c *CryptoCollector) Name() string {
	return "crypto"
}

// FetchDaily fetches daily price bars with automatic provider fallback
func (c *CryptoCollector) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	normalized := NormalizeSymbol(symbol, c.defaultQuote)

	var lastErr error
	for _, p := range c.providers {
		bars, err := p.FetchDaily(ctx, normalized, start, end)
		if err == nil && len(bars) > 0 {
			for i := range bars {
				bars[i].Symbol = normalized
			}
			return bars, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("all providers failed for %s: %w", normalized, lastErr))
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data available for %s", normalized))
}
