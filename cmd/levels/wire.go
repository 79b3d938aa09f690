package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akiyanov/levels/internal/collector"
	"github.com/akiyanov/levels/internal/collector/crypto"
	"github.com/akiyanov/levels/internal/config"
	"github.com/akiyanov/levels/internal/storage/archive"
	"github.com/akiyanov/levels/internal/store"
)

func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newArchive(cfg *config.Config) (archive.Storage, error) {
	switch cfg.Cache.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.Cache.S3.Bucket,
			Endpoint:  cfg.Cache.S3.Endpoint,
			Region:    cfg.Cache.S3.Region,
			AccessKey: cfg.Cache.S3.AccessKey,
			SecretKey: cfg.Cache.S3.SecretKey,
			Prefix:    cfg.Cache.S3.Prefix,
		})
	default:
		return archive.NewLocalFS(cfg.Cache.Path)
	}
}

// newCollectorRegistry registers every available collector. New sources
// get added here and selected via collector.source in the config.
func newCollectorRegistry(cfg *config.Config) *collector.Registry {
	reg := collector.NewRegistry()
	reg.Register(crypto.FromConfig(collector.Config{
		Providers:    cfg.Collector.Providers,
		DefaultQuote: cfg.Collector.DefaultQuote,
	}))
	return reg
}

func newCollector(cfg *config.Config) (collector.Collector, error) {
	reg := newCollectorRegistry(cfg)

	source := cfg.Collector.Source
	if source == "" {
		source = "crypto"
	}
	c, ok := reg.Get(source)
	if !ok {
		return nil, fmt.Errorf("unknown collector source %q, registered: %v",
			source, reg.Names())
	}
	return c, nil
}

func newStore(cfg *config.Config, log *zap.Logger) (*store.PriceSeriesStore, error) {
	st, err := newArchive(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating price cache: %w", err)
	}

	c, err := newCollector(cfg)
	if err != nil {
		return nil, err
	}
	return store.New(st, c, log), nil
}

// defaultSymbol provides trading settings for symbols absent from the
// config, so one-off backtests work without editing a file.
func defaultSymbol(name string) config.SymbolConfig {
	return config.SymbolConfig{
		Symbol:         name,
		LongEnabled:    true,
		InitialCapital: 10000,
		CommissionRate: 0.0018,
		MinCommission:  1.0,
		LotRoundFactor: 0.01,
		TradeOn:        "close",
	}
}

func symbolSettings(cfg *config.Config, name string) config.SymbolConfig {
	if sym, ok := cfg.Symbol(name); ok {
		return sym
	}
	return defaultSymbol(name)
}
