package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts checkout quote computations by result.
	QuoteTotal *prometheus.CounterVec
	// CouponRejectionTotal counts coupon rejections by reason.
	CouponRejectionTotal *prometheus.CounterVec
	// OrderPlacedTotal counts order placement outcomes.
	OrderPlacedTotal *prometheus.CounterVec
	// OrderConfirmationTasks counts enqueued order confirmation tasks.
	OrderConfirmationTasks prometheus.Counter
	// DeliveryResolveLatency records delivery rate resolution latency in milliseconds.
	DeliveryResolveLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_quote_total",
			Help:      "Count of checkout quote computations by result.",
		}, []string{"result"})
		CouponRejectionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_rejection_total",
			Help:      "Count of coupon rejections by reason.",
		}, []string{"reason"})
		OrderPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_placed_total",
			Help:      "Count of order placement outcomes.",
		}, []string{"result"})
		OrderConfirmationTasks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_confirmation_tasks_total",
			Help:      "Number of order confirmation tasks enqueued.",
		})
		DeliveryResolveLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_resolve_duration_ms",
			Help:      "Latency for delivery rate resolution in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"result"})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRejectionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRejectionTotal = v
			}
		})
		mustRegisterCollector(reg, OrderPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderConfirmationTasks, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrderConfirmationTasks = v
			}
		})
		mustRegisterCollector(reg, DeliveryResolveLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				DeliveryResolveLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
