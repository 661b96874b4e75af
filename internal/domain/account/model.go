package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// Account maps to the account table. Role is the durable role record.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         rbac.Role `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateStaffRequest provisions an account with an explicit role.
type CreateStaffRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

// SetStatusRequest suspends (false) or reactivates (true) an account.
type SetStatusRequest struct {
	Active *bool `json:"active"`
}

// RevokeSessionsResponse reports how many sessions were ended.
type RevokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}

// RequestMeta carries client details for audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
