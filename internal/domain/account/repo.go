package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// Repository defines the persistence interface for accounts.
type Repository interface {
	// Create stores a new account, returning ErrEmailTaken on a duplicate
	// email.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// GetRole reads only the durable role. Unknown stored values are errors.
	GetRole(ctx context.Context, id uuid.UUID) (rbac.Role, error)
	// SetRole replaces the durable role and returns the previous one.
	SetRole(ctx context.Context, id uuid.UUID, role rbac.Role) (rbac.Role, error)
	// SetActive suspends or reactivates the account and returns the
	// previous state.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, role rbac.Role, limit, offset int) ([]*Account, int, error)
}
