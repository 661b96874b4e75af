package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// SessionResolver maps a session token to the principal it belongs to.
type SessionResolver interface {
	Principal(ctx context.Context, token string) (Principal, error)
}

// RoleStore reads the durable role of an account.
type RoleStore interface {
	GetRole(ctx context.Context, accountID uuid.UUID) (rbac.Role, error)
}

// Reason classifies a failed verification.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoSession      Reason = "no_session"
	ReasonRecordNotFound Reason = "record_not_found"
	ReasonRoleMismatch   Reason = "role_mismatch"

	// ReasonPermissionDenied marks a verified role lacking a matrix grant.
	ReasonPermissionDenied Reason = "permission_denied"
)

const (
	msgNoSession      = "no authenticated session"
	msgRecordNotFound = "role record not found"
)

// Verification is the outcome of a privileged role check. Message is for
// server logs only.
type Verification struct {
	Valid     bool
	Message   string
	Reason    Reason
	Principal Principal
	// Actual is the durable role when it could be read.
	Actual rbac.Role
	// Verified is set only when Valid is true.
	Verified VerifiedRole
	// Err keeps the underlying failure for logging.
	Err error
}

// Verifier re-reads the caller's role from the record store on every call.
// Nothing is cached.
type Verifier struct {
	sessions SessionResolver
	roles    RoleStore
}

// NewVerifier creates a verifier.
func NewVerifier(sessions SessionResolver, roles RoleStore) *Verifier {
	return &Verifier{sessions: sessions, roles: roles}
}

// Verify checks that the session's durable role equals expected.
func (v *Verifier) Verify(ctx context.Context, sessionToken string, expected rbac.Role) Verification {
	return v.VerifyAny(ctx, sessionToken, expected)
}

// VerifyAny checks that the session's durable role is one of expected. With
// no expected roles any recognized role is accepted.
func (v *Verifier) VerifyAny(ctx context.Context, sessionToken string, expected ...rbac.Role) (res Verification) {
	defer func() {
		if r := recover(); r != nil {
			res = Verification{
				Message: msgRecordNotFound,
				Reason:  ReasonRecordNotFound,
				Err:     fmt.Errorf("role verification panic: %v", r),
			}
		}
		result := "valid"
		if !res.Valid {
			result = string(res.Reason)
		}
		RoleVerificationsTotal.WithLabelValues(result).Inc()
	}()

	principal, err := v.sessions.Principal(ctx, sessionToken)
	if err != nil {
		return Verification{Message: msgNoSession, Reason: ReasonNoSession, Err: err}
	}

	actual, err := v.roles.GetRole(ctx, principal.AccountID)
	if err == nil && !actual.Valid() {
		err = fmt.Errorf("stored role %q is not recognized", actual)
	}
	if err != nil {
		return Verification{
			Message:   msgRecordNotFound,
			Reason:    ReasonRecordNotFound,
			Principal: principal,
			Err:       err,
		}
	}

	if len(expected) > 0 && !containsRole(expected, actual) {
		return Verification{
			Message:   fmt.Sprintf("role mismatch: expected %s, actual %s", joinRoles(expected), actual),
			Reason:    ReasonRoleMismatch,
			Principal: principal,
			Actual:    actual,
		}
	}

	return Verification{
		Valid:     true,
		Principal: principal,
		Actual:    actual,
		Verified:  VerifiedRole{role: actual},
	}
}

func containsRole(roles []rbac.Role, r rbac.Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

func joinRoles(roles []rbac.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
