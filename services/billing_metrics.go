package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	billingCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagoyameshi_billing_calls_total",
		Help: "Billing provider calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	billingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nagoyameshi_billing_call_duration_seconds",
		Help:    "Billing provider call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	subscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagoyameshi_subscription_events_total",
		Help: "Local subscription lifecycle transitions.",
	}, []string{"event"})
)

func observeBillingCall(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	billingCalls.WithLabelValues(op, outcome).Inc()
	billingLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
