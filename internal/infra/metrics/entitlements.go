package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(entitlementChecksTotal) }

var entitlementChecksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entitlement_checks_total",
		Help:      "Entitlement decisions by resource and outcome.",
	},
	[]string{"resource", "outcome"}, // outcome: allowed, fee, quota_exceeded, no_subscription, not_enforced, error
)

func IncEntitlementCheck(resource, outcome string) {
	entitlementChecksTotal.WithLabelValues(norm(resource), norm(outcome)).Inc()
}
