package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	cellsEvaluated   prometheus.Counter
	cellsSkipped     *prometheus.CounterVec
	historyFetches   *prometheus.CounterVec
	cacheBars        *prometheus.GaugeVec
	paperOrders      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levels_backtests_total",
				Help: "Total number of backtests run",
			},
			[]string{"symbol", "status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "levels_backtest_duration_seconds",
				Help:    "Backtest duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
		cellsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "levels_optimizer_cells_evaluated_total",
				Help: "Total number of optimizer grid cells evaluated",
			},
		),
		cellsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levels_optimizer_cells_skipped_total",
				Help: "Total number of optimizer grid cells skipped",
			},
			[]string{"reason"},
		),
		historyFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levels_history_fetches_total",
				Help: "Total number of price history fetches",
			},
			[]string{"symbol", "status"},
		),
		cacheBars: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "levels_cache_bars",
				Help: "Number of cached daily bars per symbol",
			},
			[]string{"symbol"},
		),
		paperOrders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levels_paper_orders_total",
				Help: "Total number of paper trading orders",
			},
			[]string{"symbol", "side", "status"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levels_notifications_total",
				Help: "Total number of notifications sent",
			},
			[]string{"notifier", "status"},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.cellsEvaluated)
	reg.MustRegister(r.cellsSkipped)
	reg.MustRegister(r.historyFetches)
	reg.MustRegister(r.cacheBars)
	reg.MustRegister(r.paperOrders)
	reg.MustRegister(r.notifications)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(symbol, status string, duration float64) {
	r.backtestsTotal.WithLabelValues(symbol, status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordCellEvaluated records an evaluated optimizer grid cell.
func (r *Registry) RecordCellEvaluated() {
	r.cellsEvaluated.Inc()
}

// RecordCellSkipped records a skipped optimizer grid cell.
func (r *Registry) RecordCellSkipped(reason string) {
	r.cellsSkipped.WithLabelValues(reason).Inc()
}

// RecordHistoryFetch records a price history fetch.
func (r *Registry) RecordHistoryFetch(symbol, status string) {
	r.historyFetches.WithLabelValues(symbol, status).Inc()
}

// SetCacheBars sets the number of cached bars for a symbol.
func (r *Registry) SetCacheBars(symbol string, count int) {
	r.cacheBars.WithLabelValues(symbol).Set(float64(count))
}

// RecordPaperOrder records a paper trading order.
func (r *Registry) RecordPaperOrder(symbol, side, status string) {
	r.paperOrders.WithLabelValues(symbol, side, status).Inc()
}

// RecordNotification records a notification attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notifications.WithLabelValues(notifier, status).Inc()
}
