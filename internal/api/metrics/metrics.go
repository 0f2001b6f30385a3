// Package metrics defines all custom Prometheus metrics for the dispatch API.
// Metrics are registered with the default registry on package init through
// promauto and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

// ── Dispatch metrics ──────────────────────────────────────────────────────────

// ClaimsTotal counts claim attempts.
// Label:
//   - outcome: "won", "lost" (already claimed) or "rejected" (any other failure)
var ClaimsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_total",
		Help:      "Total number of ride claim attempts, by outcome.",
	},
	[]string{"outcome"},
)

// RideTransitionsTotal counts committed ride lifecycle changes.
// Label:
//   - transition: "submitted", "claimed", "declined", "completed", "rated"
var RideTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ride_transitions_total",
		Help:      "Total number of committed ride transitions.",
	},
	[]string{"transition"},
)

// RatingsTotal counts stored ratings by star value.
var RatingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratings_total",
		Help:      "Total number of ride ratings stored, by stars.",
	},
	[]string{"stars"},
)

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts created accounts by role.
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of accounts created, by role.",
	},
	[]string{"role"},
)

// ApprovalDecisionsTotal counts admin decisions on puller applications.
// Label:
//   - decision: "approved" or "rejected"
var ApprovalDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_decisions_total",
		Help:      "Total number of puller approval decisions.",
	},
	[]string{"decision"},
)

// ── Event stream metrics ──────────────────────────────────────────────────────

// EventsPublishedTotal counts ride events delivered to the broker.
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of ride events published, by event type.",
	},
	[]string{"type"},
)

// EventsDroppedTotal counts ride events discarded because a worker shard was full.
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of ride events dropped on a full worker queue.",
	},
	[]string{"type"},
)

// EventsPublishErrorsTotal counts failed publish attempts.
var EventsPublishErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_publish_errors_total",
		Help:      "Total number of ride events the publisher failed to deliver.",
	},
	[]string{"type"},
)

// EventQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_queue_depth",
		Help:      "Current number of ride events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Analytics metrics ─────────────────────────────────────────────────────────

// AnalyticsCacheTotal counts analytics cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var AnalyticsCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_cache_total",
		Help:      "Total number of analytics cache lookups, by result.",
	},
	[]string{"result"},
)

// AnalyticsDuration measures how long each analytics report takes to serve.
var AnalyticsDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analytics_duration_seconds",
		Help:      "Duration of analytics report requests, cache included.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"report"},
)
