// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagate_inbound_total",
		Help: "Inbound webhook deliveries by outcome.",
	}, []string{"outcome"}) // message | noop | duplicate | ratelimited | rejected

	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagate_replies_total",
		Help: "Generated replies by outcome.",
	}, []string{"outcome"}) // ok | fallback

	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wagate_dispatch_failures_total",
		Help: "Outbound sends that failed. Sends are not retried.",
	})

	CompletionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wagate_completion_seconds",
		Help:    "Latency of remote completion calls.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)
