package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names an audited event.
type Action string

const (
	ActionUserLogin         Action = "user_login"
	ActionUserLogout        Action = "user_logout"
	ActionUserRegistered    Action = "user_registered"
	ActionUserRoleChanged   Action = "user_role_changed"
	ActionUserStatusChanged Action = "user_status_changed"
	ActionSessionsRevoked   Action = "user_sessions_revoked"
	ActionStaffCreated      Action = "staff_created"
	ActionPermissionDenied  Action = "permission_denied"
)

// Severity grades an entry for review.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Status records whether the audited operation succeeded.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry maps to the audit_log table.
type Entry struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	Action       Action                 `db:"action" json:"action"`
	Severity     Severity               `db:"severity" json:"severity"`
	Status       Status                 `db:"status" json:"status"`
	ActorID      *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole    string                 `db:"actor_role" json:"actor_role,omitempty"`
	ResourceType string                 `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   string                 `db:"resource_id" json:"resource_id,omitempty"`
	Path         string                 `db:"path" json:"path,omitempty"`
	IPAddress    string                 `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string                 `db:"user_agent" json:"user_agent,omitempty"`
	Details      map[string]interface{} `db:"details" json:"details,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}

// Filter narrows a listing. Zero fields do not filter.
type Filter struct {
	Action   Action
	Severity Severity
	ActorID  *uuid.UUID
	Since    *time.Time
	Until    *time.Time
}
