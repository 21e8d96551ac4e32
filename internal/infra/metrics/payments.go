package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment ledger events by kind and resulting status.",
		},
		[]string{"kind", "status"}, // status: pending (created), completed, failed, refunded
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_revenue_total",
			Help:      "Monetary value of payments confirmed as completed, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayment(kind, status string) {
	paymentsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}
