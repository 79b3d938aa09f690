package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/optimize"
	"github.com/akiyanov/levels/internal/sim"
)

type Config struct {
	Cache     CacheConfig               `mapstructure:"cache"`
	Collector CollectorConfig           `mapstructure:"collector"`
	Optimizer OptimizerConfig           `mapstructure:"optimizer"`
	Backtest  BacktestConfig            `mapstructure:"backtest"`
	Symbols   []SymbolConfig            `mapstructure:"symbols"`
	Trader    TraderConfig              `mapstructure:"trader"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type CacheConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type CollectorConfig struct {
	// Source selects the collector from the registry, e.g. "crypto".
	Source       string   `mapstructure:"source"`
	Providers    []string `mapstructure:"providers"`
	DefaultQuote string   `mapstructure:"default_quote"`
}

// OptimizerConfig holds the default parameter grid, overridable per symbol.
type OptimizerConfig struct {
	LookbackMin    int `mapstructure:"lookback_min"`
	LookbackMax    int `mapstructure:"lookback_max"`
	TradeWindowMin int `mapstructure:"trade_window_min"`
	TradeWindowMax int `mapstructure:"trade_window_max"`
	Workers        int `mapstructure:"workers"`
}

// BacktestConfig holds default history slicing settings.
type BacktestConfig struct {
	YearsBack    int     `mapstructure:"years_back"`
	PercentStart float64 `mapstructure:"percent_start"`
	PercentEnd   float64 `mapstructure:"percent_end"`
}

// SymbolConfig holds per-symbol trading settings.
type SymbolConfig struct {
	Symbol         string  `mapstructure:"symbol"`
	LongEnabled    bool    `mapstructure:"long_enabled"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	MinCommission  float64 `mapstructure:"min_commission"`
	LotRoundFactor float64 `mapstructure:"lot_round_factor"`
	TradeOn        string  `mapstructure:"trade_on"` // "open" or "close"
}

type TraderConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	BotToken string            `mapstructure:"bot_token"`
	ChatID   string            `mapstructure:"chat_id"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Cache: CacheConfig{
			Type: "localfs",
			Path: "data",
		},
		Collector: CollectorConfig{
			Source:       "crypto",
			Providers:    []string{"binance", "okx"},
			DefaultQuote: "USDT",
		},
		Optimizer: OptimizerConfig{
			LookbackMin:    2,
			LookbackMax:    15,
			TradeWindowMin: 1,
			TradeWindowMax: 8,
		},
		Backtest: BacktestConfig{
			YearsBack: 3,
		},
		Trader: TraderConfig{
			Interval: time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Cache.Type {
	case "localfs":
		if c.Cache.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("cache path required when type is localfs"))
		}
	case "s3":
		if c.Cache.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when cache type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	if c.Optimizer.LookbackMin < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_min must be at least 2, got %d", c.Optimizer.LookbackMin))
	}
	if c.Optimizer.LookbackMax < c.Optimizer.LookbackMin {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_max %d below lookback_min %d",
				c.Optimizer.LookbackMax, c.Optimizer.LookbackMin))
	}
	if c.Optimizer.TradeWindowMin < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trade_window_min must be at least 1, got %d", c.Optimizer.TradeWindowMin))
	}
	if c.Optimizer.TradeWindowMax < c.Optimizer.TradeWindowMin {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trade_window_max %d below trade_window_min %d",
				c.Optimizer.TradeWindowMax, c.Optimizer.TradeWindowMin))
	}
	if c.Optimizer.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Optimizer.Workers))
	}

	if c.Backtest.YearsBack < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("years_back cannot be negative, got %d", c.Backtest.YearsBack))
	}
	if c.Backtest.PercentStart < 0 || c.Backtest.PercentEnd > 1 ||
		(c.Backtest.PercentEnd != 0 && c.Backtest.PercentStart >= c.Backtest.PercentEnd) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("percent range [%v, %v] invalid",
				c.Backtest.PercentStart, c.Backtest.PercentEnd))
	}

	for _, sym := range c.Symbols {
		if sym.Symbol == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("symbol entry missing symbol name"))
		}
		if sym.InitialCapital <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s: initial_capital must be positive, got %v",
					sym.Symbol, sym.InitialCapital))
		}
		if sym.CommissionRate < 0 || sym.CommissionRate >= 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s: commission_rate must be in [0, 1), got %v",
					sym.Symbol, sym.CommissionRate))
		}
		if sym.MinCommission < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s: min_commission cannot be negative, got %v",
					sym.Symbol, sym.MinCommission))
		}
		if sym.LotRoundFactor <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s: lot_round_factor must be positive, got %v",
					sym.Symbol, sym.LotRoundFactor))
		}
		switch sym.TradeOn {
		case "", "open", "close":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s: trade_on must be open or close, got %q",
					sym.Symbol, sym.TradeOn))
		}
	}

	if c.Trader.Enabled && c.Trader.Interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trader interval must be positive, got %v", c.Trader.Interval))
	}

	return nil
}

// Symbol returns the configuration for a symbol, or false if absent.
func (c *Config) Symbol(name string) (SymbolConfig, bool) {
	for _, sym := range c.Symbols {
		if sym.Symbol == name {
			return sym, true
		}
	}
	return SymbolConfig{}, false
}

// SimConfig converts symbol settings into simulator configuration.
func (s SymbolConfig) SimConfig() sim.Config {
	return sim.Config{
		InitialCapital: s.InitialCapital,
		CommissionRate: s.CommissionRate,
		MinCommission:  s.MinCommission,
		LotRoundFactor: s.LotRoundFactor,
	}
}

// TradeField maps the trade_on setting to a price field, defaulting to close.
func (s SymbolConfig) TradeField() core.PriceField {
	if s.TradeOn == "open" {
		return core.TradeOnOpen
	}
	return core.TradeOnClose
}

// OptimizerConfig converts grid settings into an optimizer configuration.
func (c *Config) OptimizerConfig(sym SymbolConfig) optimize.Config {
	return optimize.Config{
		Lookback:    optimize.Range{Min: c.Optimizer.LookbackMin, Max: c.Optimizer.LookbackMax},
		TradeWindow: optimize.Range{Min: c.Optimizer.TradeWindowMin, Max: c.Optimizer.TradeWindowMax},
		Sim:         sym.SimConfig(),
		TradeOn:     sym.TradeField(),
		Workers:     c.Optimizer.Workers,
	}
}
