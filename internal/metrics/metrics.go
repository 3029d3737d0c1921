/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics defines the Prometheus metrics the Observability
// Substrate exposes for the runtime's four telemetry event families:
// agent.cmd.*, agent_server.signal.*, agent_server.directive.*, and
// agent_server.queue.overflow. Adapted from the teacher's
// internal/metrics/metrics.go — same CounterVec/HistogramVec shape and
// naming convention (agentcore_ prefix, _total/_seconds suffixes) but
// registered against a plain prometheus.Registry instead of
// controller-runtime's shared registry, since this core has no
// Kubernetes control plane to piggyback a metrics endpoint on.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CmdTotal counts command-pipeline turns by agent class and
	// terminal status (ok|error).
	CmdTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_cmd_total",
			Help: "Total command pipeline turns by class and status.",
		},
		[]string{"class", "status"},
	)

	// CmdDurationSeconds is a histogram of command pipeline turn
	// duration by agent class.
	CmdDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentcore_cmd_duration_seconds",
			Help:    "Duration of command pipeline turns in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"class"},
	)

	// SignalsTotal counts signals processed by an Agent Server by
	// class and signal type.
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_server_signal_total",
			Help: "Total signals dequeued and dispatched by an Agent Server.",
		},
		[]string{"class", "signal_type"},
	)

	// DirectivesTotal counts directives interpreted, by kind and
	// terminal status.
	DirectivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_server_directive_total",
			Help: "Total directives interpreted, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	// QueueOverflowTotal counts signals dropped because an agent's
	// queue was at capacity.
	QueueOverflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_server_queue_overflow_total",
			Help: "Total signals dropped due to queue overflow, by class.",
		},
		[]string{"class"},
	)

	// QueueSize is the current depth of an Agent Server's signal
	// queue.
	QueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentcore_server_queue_size",
			Help: "Current depth of an Agent Server's signal queue.",
		},
		[]string{"instance"},
	)

	// ActiveInstances is the number of currently running agent
	// instances.
	ActiveInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentcore_active_instances",
			Help: "Number of currently running agent instances, by class.",
		},
		[]string{"class"},
	)
)

// NewRegistry returns a fresh prometheus.Registry with every metric
// above registered. Callers wire this into their own HTTP exposition
// endpoint; this package does not own an HTTP server.
func NewRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		CmdTotal,
		CmdDurationSeconds,
		SignalsTotal,
		DirectivesTotal,
		QueueOverflowTotal,
		QueueSize,
		ActiveInstances,
	)
	return r
}

// RecordCmd records one completed command-pipeline turn.
func RecordCmd(class, status string, duration time.Duration) {
	CmdTotal.WithLabelValues(class, status).Inc()
	CmdDurationSeconds.WithLabelValues(class).Observe(duration.Seconds())
}

// RecordSignal records one signal dequeued and dispatched.
func RecordSignal(class, sigType string) {
	SignalsTotal.WithLabelValues(class, sigType).Inc()
}

// RecordDirective records one interpreted directive.
func RecordDirective(kind, status string) {
	DirectivesTotal.WithLabelValues(kind, status).Inc()
}

// RecordQueueOverflow records one dropped signal.
func RecordQueueOverflow(class string) {
	QueueOverflowTotal.WithLabelValues(class).Inc()
}

// SetQueueSize sets the current queue depth gauge for instance.
func SetQueueSize(instance string, size int) {
	QueueSize.WithLabelValues(instance).Set(float64(size))
}

// SetActiveInstances sets the active-instance gauge for class.
func SetActiveInstances(class string, count int) {
	ActiveInstances.WithLabelValues(class).Set(float64(count))
}
