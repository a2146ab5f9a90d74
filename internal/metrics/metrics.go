package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics holds the business counters exported on /metrics.
type Metrics struct {
	OrdersPlaced      prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	OrderRevenue      prometheus.Counter
	VouchersApplied   prometheus.Counter
	VouchersSkipped   *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	Payments          *prometheus.CounterVec
	HTTPRequests      *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop", Name: "orders_placed_total",
			Help: "Orders committed.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop", Name: "orders_rejected_total",
			Help: "Order requests that failed, by error code.",
		}, []string{"code"}),
		OrderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop", Name: "order_value_total",
			Help: "Sum of order totals at placement.",
		}),
		VouchersApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop", Name: "vouchers_applied_total",
			Help: "Vouchers applied to orders.",
		}),
		VouchersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop", Name: "vouchers_skipped_total",
			Help: "Ineligible vouchers ignored under the skip policy, by reason.",
		}, []string{"reason"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop", Name: "order_status_transitions_total",
			Help: "Order status changes.",
		}, []string{"from", "to"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop", Name: "payments_total",
			Help: "Payment outcomes.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shop", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.OrdersPlaced,
			m.OrdersRejected,
			m.OrderRevenue,
			m.VouchersApplied,
			m.VouchersSkipped,
			m.StatusTransitions,
			m.Payments,
			m.HTTPRequests,
		)
	}
	return m
}

func (m *Metrics) ObserveOrder(total decimal.Decimal) {
	m.OrdersPlaced.Inc()
	m.OrderRevenue.Add(total.InexactFloat64())
}
