package audit

import "context"

// Repository defines the persistence interface for audit entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// List returns matching entries newest first and the total match count.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
}
