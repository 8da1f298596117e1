// Package retrieval composes scope resolution, engine invocation, and
// isolation enforcement behind the single scoped-query entry point.
package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts scoped-query calls.
	// Labels: mode (isolated, relational, short_circuit)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "covenantrix",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total number of scoped-query calls by retrieval mode",
		},
		[]string{"mode"},
	)

	// UnresolvedDocumentsTotal counts documents that could not be mapped to
	// chunks during scope resolution.
	UnresolvedDocumentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "covenantrix",
			Subsystem: "retrieval",
			Name:      "unresolved_documents_total",
			Help:      "Total number of requested documents that resolved to no chunks",
		},
	)

	// GuardDroppedSourcesTotal counts sources the isolation guard stripped
	// from results. A nonzero rate means the engine returned out-of-scope
	// content.
	GuardDroppedSourcesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "covenantrix",
			Subsystem: "retrieval",
			Name:      "guard_dropped_sources_total",
			Help:      "Total number of out-of-scope sources removed by the isolation guard",
		},
	)

	// FilterFallbacksTotal counts queries where the engine rejected the
	// candidate filter and the adapter retried unfiltered.
	FilterFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "covenantrix",
			Subsystem: "retrieval",
			Name:      "filter_fallbacks_total",
			Help:      "Total number of queries retried without a candidate filter",
		},
	)

	// QueryDuration tracks end-to-end scoped-query latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "covenantrix",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end duration of scoped queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
