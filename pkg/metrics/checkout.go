package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	AccountClassRetail    = "retail"
	AccountClassWholesale = "wholesale"
)

// CheckoutMetrics records order placement outcomes.
type CheckoutMetrics struct {
	placed   *prometheus.CounterVec
	units    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Orders committed by the checkout workflow.",
	}, []string{"account_class"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_units_ordered_total",
		Help: "Units committed by the checkout workflow.",
	}, []string{"account_class"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts that did not produce an order.",
	}, []string{"reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(placed, units, failures, duration)
	return &CheckoutMetrics{
		placed:   placed,
		units:    units,
		failures: failures,
		duration: duration,
	}
}

// OrderPlaced records a committed order.
func (c *CheckoutMetrics) OrderPlaced(wholesale bool, units int, elapsed time.Duration) {
	if c == nil || c.placed == nil {
		return
	}
	class := AccountClassRetail
	if wholesale {
		class = AccountClassWholesale
	}
	c.placed.WithLabelValues(class).Inc()
	c.units.WithLabelValues(class).Add(float64(units))
	c.duration.WithLabelValues("placed").Observe(elapsed.Seconds())
}

// OrderFailed records a checkout attempt that ended without an order.
func (c *CheckoutMetrics) OrderFailed(reason string, elapsed time.Duration) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(reason)).Inc()
	c.duration.WithLabelValues("failed").Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
