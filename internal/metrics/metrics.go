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
	ordersTotal      *prometheus.CounterVec
	barsProcessed    prometheus.Counter
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
				Name: "meanrev_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"strategy", "status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meanrev_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meanrev_orders_total",
				Help: "Total number of simulated order events",
			},
			[]string{"side", "event"},
		),
		barsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meanrev_bars_processed_total",
				Help: "Total number of bars replayed",
			},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.ordersTotal)
	reg.MustRegister(r.barsProcessed)

	return r
}

// ObserveBacktest records a finished backtest run.
func (r *Registry) ObserveBacktest(strategy, status string, seconds float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(seconds)
}

// CountOrder records a simulated order event (created, filled, rejected).
func (r *Registry) CountOrder(side, event string) {
	r.ordersTotal.WithLabelValues(side, event).Inc()
}

// AddBars records the number of bars replayed by a run.
func (r *Registry) AddBars(n int) {
	r.barsProcessed.Add(float64(n))
}
