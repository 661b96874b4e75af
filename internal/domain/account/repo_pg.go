package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meditrack/meditrack/internal/platform/db"
	"github.com/meditrack/meditrack/internal/platform/rbac"
)

const uniqueViolation = "23505"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const accountColumns = `id, email, name, password_hash, role, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO account (id, email, name, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.Active,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
}

func (r *repoPG) GetRole(ctx context.Context, id uuid.UUID) (rbac.Role, error) {
	var raw string
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT role FROM account WHERE id = $1 AND active`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read role: %w", err)
	}
	role, ok := rbac.LookupRole(raw)
	if !ok {
		return "", fmt.Errorf("account %s has unrecognized role %q", id, raw)
	}
	return role, nil
}

func (r *repoPG) SetRole(ctx context.Context, id uuid.UUID, role rbac.Role) (rbac.Role, error) {
	var previous string
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.Conn(ctx, r.pool)
		err := tx.QueryRow(ctx, `SELECT role FROM account WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE account SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
		if err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rbac.Role(previous), nil
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	var previous bool
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.Conn(ctx, r.pool)
		err := tx.QueryRow(ctx, `SELECT active FROM account WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE account SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return previous, nil
}

func (r *repoPG) List(ctx context.Context, role rbac.Role, limit, offset int) ([]*Account, int, error) {
	conn := db.Conn(ctx, r.pool)

	where := ""
	args := []interface{}{}
	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM account`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM account%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, total, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &role, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Role = rbac.Role(role)
	return &a, nil
}
