// Package metrics holds the Prometheus collectors shared by the proxy pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipwatch",
		Name:      "events_total",
		Help:      "Network events handed to the matcher, by phase.",
	}, []string{"phase"})

	MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipwatch",
		Name:      "matches_total",
		Help:      "Match results produced, by rule type.",
	}, []string{"rule_type"})

	RuleErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipwatch",
		Name:      "rule_errors_total",
		Help:      "Per-rule evaluation failures that were logged and skipped, by reason.",
	}, []string{"reason"})

	DispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipwatch",
		Name:      "dispatch_failures_total",
		Help:      "Dispatcher steps that failed, by step.",
	}, []string{"step"})

	NotificationDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipwatch",
		Name:      "notification_deliveries_total",
		Help:      "Page message deliveries, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		MatchesTotal,
		RuleErrorsTotal,
		DispatchFailuresTotal,
		NotificationDeliveriesTotal,
	)
}
