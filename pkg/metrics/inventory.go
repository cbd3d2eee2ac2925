package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Confirmation outcome labels.
const (
	OutcomeConfirmed    = "confirmed"
	OutcomeReplayed     = "replayed"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// InventoryMetrics records the hot-path behavior of the deduction engine.
type InventoryMetrics struct {
	confirmDuration *prometheus.HistogramVec
	confirmOutcome  *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	lockRetries     prometheus.Counter
	lowStockGauge   *prometheus.GaugeVec
}

// NewInventoryMetrics registers the engine metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	confirmDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_confirmation_duration_seconds",
		Help:    "Duration of order confirmation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	confirmOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_confirmation_total",
		Help: "Order confirmation attempts by outcome.",
	}, []string{"outcome"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Manual stock adjustments by transaction kind.",
	}, []string{"kind"})
	lockRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_lock_retries_total",
		Help: "Confirmation retries caused by serialization failures.",
	})
	lowStockGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "low_stock_ingredients",
		Help: "Ingredients currently below threshold, by severity.",
	}, []string{"severity"})
	reg.MustRegister(confirmDuration, confirmOutcome, adjustments, lockRetries, lowStockGauge)
	return &InventoryMetrics{
		confirmDuration: confirmDuration,
		confirmOutcome:  confirmOutcome,
		adjustments:     adjustments,
		lockRetries:     lockRetries,
		lowStockGauge:   lowStockGauge,
	}
}

// ObserveConfirmation records one confirmation attempt with its outcome.
func (m *InventoryMetrics) ObserveConfirmation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if m.confirmDuration != nil {
		m.confirmDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
	if m.confirmOutcome != nil {
		m.confirmOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncAdjustment counts a manual stock movement by kind.
func (m *InventoryMetrics) IncAdjustment(kind string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(kind).Inc()
}

// IncLockRetry counts a serialization-failure retry.
func (m *InventoryMetrics) IncLockRetry() {
	if m == nil || m.lockRetries == nil {
		return
	}
	m.lockRetries.Inc()
}

// SetLowStockCount publishes the size of a low-stock severity bucket.
func (m *InventoryMetrics) SetLowStockCount(severity string, count int) {
	if m == nil || m.lowStockGauge == nil {
		return
	}
	m.lowStockGauge.WithLabelValues(severity).Set(float64(count))
}
