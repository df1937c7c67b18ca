// Package metrics defines and registers all custom Prometheus metrics for
// the desk-buddy membership API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default registry at package init via
// promauto; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deskbuddy"

// MutationsTotal counts membership mutations by final outcome.
// Labels:
//   - operation: "claim_ownership", "assign_manager", "delete_user",
//     "update_role", "signin_bootstrap"
//   - outcome: "success", "rejected" (precondition/authorisation failure),
//     "conflict", "rolled_back", "reconcile_required", "error"
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of membership mutations, labelled by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// CompensationsTotal counts saga compensation runs.
// Labels:
//   - operation: the saga that was unwound
//   - result: "clean" (all undo steps applied) or "failed" (manual
//     reconciliation required)
var CompensationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compensations_total",
		Help:      "Total number of saga compensation runs, labelled by result.",
	},
	[]string{"operation", "result"},
)

// AuthRequestsTotal counts bearer-token verifications.
// Label:
//   - result: "ok", "unauthorized", "provider_error"
var AuthRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_requests_total",
		Help:      "Total number of bearer token verifications, labelled by result.",
	},
	[]string{"result"},
)
