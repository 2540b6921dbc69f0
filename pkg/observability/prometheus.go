// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package observability exposes Prometheus process metrics for the
// pipeline: message throughput, failures and evictions. These are local
// process counters, distinct from the size-delta metric stream the alarm
// watches.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the counters incremented by the pipeline runner,
// the tracker and the evictor.
type PipelineMetrics struct {
	MessagesProcessed *prometheus.CounterVec
	MessagesFailed    *prometheus.CounterVec
	MessagesSkipped   *prometheus.CounterVec
	Evictions         prometheus.Counter
	LedgerAppends     prometheus.Counter
}

// NewPipelineMetrics creates and registers the pipeline counters on the
// given registerer. Pass prometheus.NewRegistry() in tests to avoid
// default-registry collisions.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketwatch_messages_processed_total",
			Help: "Queue messages fully processed and acked, per consumer.",
		}, []string{"consumer"}),
		MessagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketwatch_messages_failed_total",
			Help: "Queue messages whose processing failed, per consumer.",
		}, []string{"consumer"}),
		MessagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketwatch_messages_skipped_total",
			Help: "Notifications skipped (foreign bucket or undecodable), per consumer.",
		}, []string{"consumer"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bucketwatch_evictions_total",
			Help: "Objects deleted by the evictor.",
		}),
		LedgerAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bucketwatch_ledger_appends_total",
			Help: "Size records appended to the ledger.",
		}),
	}

	reg.MustRegister(
		m.MessagesProcessed,
		m.MessagesFailed,
		m.MessagesSkipped,
		m.Evictions,
		m.LedgerAppends,
	)
	return m
}
