// Package metrics defines and registers the custom Prometheus metrics of the
// course registration service. It is the single source of truth for metric
// names, labels and help strings.
//
// All collectors are registered with the default registry through promauto,
// so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coursereg"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// RegistrationAttemptsTotal counts register calls by outcome.
// Label:
//   - outcome: "registered", "restored", "course_full", "already_registered",
//     "course_not_found", "replayed" or "error"
var RegistrationAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_attempts_total",
		Help:      "Total number of course registration attempts, by outcome.",
	},
	[]string{"outcome"},
)

// DropsTotal counts registrations moved to dropped.
// Label:
//   - actor_role: "student" or "admin"
var DropsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "drops_total",
		Help:      "Total number of registrations dropped, by actor role.",
	},
	[]string{"actor_role"},
)

// LedgerLockDuration measures how long a course-locked transaction runs.
// Label:
//   - operation: "register", "set_status", "update_course" or "delete_course"
var LedgerLockDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_lock_duration_seconds",
		Help:      "Duration of transactions holding a course lock.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// IdempotencyLookupsTotal counts Idempotency-Key lookups.
// Label:
//   - result: "hit", "miss" or "error"
var IdempotencyLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_lookups_total",
		Help:      "Total number of idempotency key lookups, by result.",
	},
	[]string{"result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks pending audit events per dispatcher worker.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsTotal counts audit events by result.
// Label:
//   - result: "written", "failed" or "dropped" (queue full)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events handled by the dispatcher, by result.",
	},
	[]string{"result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Labels:
//   - kind: "user" or "admin" login endpoint
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by endpoint kind and result.",
	},
	[]string{"kind", "result"},
)
