package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisionsTotal counts route guard outcomes by path class.
	GuardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meditrack_guard_decisions_total",
			Help: "Route guard decisions by outcome and path class",
		},
		[]string{"outcome", "class"},
	)

	// RoleVerificationsTotal counts privileged role verifications by result.
	RoleVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meditrack_role_verifications_total",
			Help: "Privileged role verifications by result",
		},
		[]string{"result"},
	)

	// PermissionChecksTotal counts API permission checks.
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meditrack_permission_checks_total",
			Help: "API permission checks by resource, action and decision",
		},
		[]string{"resource", "action", "decision"},
	)
)
