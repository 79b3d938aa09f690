package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akiyanov/levels/internal/broker"
	"github.com/akiyanov/levels/internal/config"
	"github.com/akiyanov/levels/internal/logger"
	"github.com/akiyanov/levels/internal/metrics"
	"github.com/akiyanov/levels/internal/notifier"
	"github.com/akiyanov/levels/internal/notifier/telegram"
	"github.com/akiyanov/levels/internal/notifier/webhook"
	"github.com/akiyanov/levels/internal/trader"
)

var tradeCash float64

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run the paper trading loop",
	Long: `Periodically refresh price history for each configured symbol,
re-optimize the strategy parameters, and place paper orders for signals
that execute on the current day. Fills are announced to the configured
notifiers and metrics are exposed over HTTP.`,
	RunE: runTrade,
}

func init() {
	tradeCmd.Flags().Float64Var(&tradeCash, "cash", 10000, "starting paper account cash")
	rootCmd.AddCommand(tradeCmd)
}

func runTrade(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	st, err := newStore(cfg, log)
	if err != nil {
		return err
	}

	registry := notifier.NewRegistry()
	if err := registerNotifiers(cfg, registry); err != nil {
		return err
	}

	m := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		go func() {
			log.Info("metrics listening",
				zap.String("addr", cfg.Metrics.Listen),
				zap.String("path", cfg.Metrics.Path))
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	paper := broker.NewPaper(broker.PaperConfig{
		Currency:       cfg.Collector.DefaultQuote,
		InitialCash:    tradeCash,
		CommissionRate: commissionRate(cfg),
		MinCommission:  minCommission(cfg),
	})

	t := trader.New(cfg, st, paper, registry, m, log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := t.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func registerNotifiers(cfg *config.Config, registry *notifier.Registry) error {
	for name, n := range cfg.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return fmt.Errorf("telegram notifier requires bot_token and chat_id")
			}
			if err := registry.Register(telegram.New(n.BotToken, n.ChatID)); err != nil {
				return err
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("webhook notifier requires url")
			}
			if err := registry.Register(webhook.New(n.URL, n.Headers)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown notifier %q", name)
		}
	}
	return nil
}

// The paper account charges one fee schedule; use the first configured
// symbol's rates so fills match what the backtest assumed.
func commissionRate(cfg *config.Config) float64 {
	if len(cfg.Symbols) > 0 {
		return cfg.Symbols[0].CommissionRate
	}
	return 0
}

func minCommission(cfg *config.Config) float64 {
	if len(cfg.Symbols) > 0 {
		return cfg.Symbols[0].MinCommission
	}
	return 0
}
