// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equity-backtest-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Walk-forward metrics
	FoldsEvaluated prometheus.Counter
	FoldsSkipped   *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram

	// Execution metrics
	TradesSimulated  prometheus.Counter
	PicksDropped     *prometheus.CounterVec
	MissingReference prometheus.Counter

	// Risk gate metrics
	RiskMode        *prometheus.GaugeVec
	RiskEvaluations prometheus.Counter
	PicksThrottled  prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "equity_backtest_lab"
	}

	return &Metrics{
		FoldsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "folds_evaluated_total",
			Help:      "Total number of folds evaluated",
		}),
		FoldsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "folds_skipped_total",
			Help:      "Total number of folds skipped by reason",
		}, []string{"reason"}),
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "runs_total",
			Help:      "Total number of walk-forward runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "run_duration_seconds",
			Help:      "Walk-forward run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		PicksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "picks_dropped_total",
			Help:      "Total number of picks dropped by reason",
		}, []string{"reason"}),
		MissingReference: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "missing_reference_total",
			Help:      "Total number of picks filled with default reference data",
		}),

		RiskMode: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "riskgate",
			Name:      "mode",
			Help:      "Current risk gate mode (1 for the active mode, 0 otherwise)",
		}, []string{"mode"}),
		RiskEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "riskgate",
			Name:      "evaluations_total",
			Help:      "Total number of risk gate evaluation cycles",
		}),
		PicksThrottled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "riskgate",
			Name:      "picks_throttled_total",
			Help:      "Total number of picks dropped by risk gate throttling",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful walk-forward run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetRiskMode flips the mode gauge so exactly one label reads 1.
func (m *Metrics) SetRiskMode(mode domain.RiskMode) {
	for _, candidate := range []domain.RiskMode{
		domain.RiskModeNormal, domain.RiskModeTight,
		domain.RiskModeSevere, domain.RiskModeSuspended,
	} {
		v := 0.0
		if candidate == mode {
			v = 1.0
		}
		m.RiskMode.WithLabelValues(string(candidate)).Set(v)
	}
}
