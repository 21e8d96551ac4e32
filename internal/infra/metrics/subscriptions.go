package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
		subscriptionsActive,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_activated_total",
			Help:      "Subscriptions moved to active by a completed payment.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions persisted as expired by the expiry sweep.",
		},
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Active, unexpired subscriptions at the last sweep.",
		},
	)
)

func IncSubscriptionActivated() { subscriptionsActivatedTotal.Inc() }

func IncSubscriptionsExpired(count int64) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetSubscriptionsActive(count int64) {
	subscriptionsActive.Set(float64(count))
}
