package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK   = "ok"
	OutcomeLost = "lost"
	OutcomeNoop = "noop"
	OutcomeFail = "error"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "surplus_relay",
		Name:      "transitions_total",
		Help:      "State transitions attempted, by operation and outcome.",
	}, []string{"operation", "outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "surplus_relay",
		Name:      "notifications_total",
		Help:      "Notification envelopes handled by the emitter, by kind and result.",
	}, []string{"kind", "result"})

	EmitterQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "surplus_relay",
		Name:      "emitter_queue_depth",
		Help:      "Notifications waiting for an emitter worker.",
	})

	SweptRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "surplus_relay",
		Name:      "swept_records_total",
		Help:      "Records changed by the periodic sweeper.",
	}, []string{"kind"})
)
