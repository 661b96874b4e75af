package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meditrack/meditrack/internal/domain/audit"
	"github.com/meditrack/meditrack/internal/platform/auth"
	"github.com/meditrack/meditrack/internal/platform/middleware"
	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// SessionStore issues and ends sessions.
type SessionStore interface {
	Create(ctx context.Context, accountID uuid.UUID) (auth.Session, error)
	Principal(ctx context.Context, token string) (auth.Principal, error)
	Delete(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, accountID uuid.UUID) (int, error)
}

// Auditor persists audit entries without failing the caller.
type Auditor interface {
	Record(ctx context.Context, e *audit.Entry)
}

type Service struct {
	repo     Repository
	sessions SessionStore
	audit    Auditor
	cost     int
	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash []byte
}

func NewService(repo Repository, sessions SessionStore, auditor Auditor) *Service {
	return newService(repo, sessions, auditor, bcrypt.DefaultCost)
}

func newService(repo Repository, sessions SessionStore, auditor Auditor, cost int) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("meditrack-dummy-password"), cost)
	return &Service{repo: repo, sessions: sessions, audit: auditor, cost: cost, dummyHash: dummy}
}

// GetRole reads the durable role. It satisfies auth.RoleStore.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (rbac.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// Register creates a patient account and signs it in. Self registration
// never grants any other role.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*Account, auth.Session, error) {
	a, err := s.create(ctx, req.Email, req.Name, req.Password, rbac.RolePatient)
	if err != nil {
		return nil, auth.Session{}, err
	}
	s.record(ctx, &audit.Entry{
		Action:       audit.ActionUserRegistered,
		ActorID:      &a.ID,
		ActorRole:    string(a.Role),
		ResourceType: "account",
		ResourceID:   a.ID.String(),
	}, meta)

	sess, err := s.sessions.Create(ctx, a.ID)
	if err != nil {
		return nil, auth.Session{}, fmt.Errorf("create session: %w", err)
	}
	return a, sess, nil
}

// CreateStaff provisions an account with any role on behalf of actor.
func (s *Service) CreateStaff(ctx context.Context, actor uuid.UUID, req CreateStaffRequest, meta RequestMeta) (*Account, error) {
	role, ok := rbac.LookupRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}
	a, err := s.create(ctx, req.Email, req.Name, req.Password, role)
	if err != nil {
		return nil, err
	}
	e := &audit.Entry{
		Action:       audit.ActionStaffCreated,
		ResourceType: "account",
		ResourceID:   a.ID.String(),
		Details:      map[string]interface{}{"role": string(role)},
	}
	if actor != uuid.Nil {
		e.ActorID = &actor
	}
	s.record(ctx, e, meta)
	return a, nil
}

func (s *Service) create(ctx context.Context, email, name, password string, role rbac.Role) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = middleware.SanitizeString(name)
	// Display-name forms like "Name <addr>" parse too; only a bare address
	// is stored.
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Login checks credentials and opens a session. Any credential failure
// returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*Account, auth.Session, error) {
	a, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, auth.Session{}, err
	}
	if a == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.loginFailed(ctx, nil, meta)
		return nil, auth.Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil || !a.Active {
		s.loginFailed(ctx, a, meta)
		return nil, auth.Session{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, a.ID)
	if err != nil {
		return nil, auth.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.record(ctx, &audit.Entry{
		Action:       audit.ActionUserLogin,
		ActorID:      &a.ID,
		ActorRole:    string(a.Role),
		ResourceType: "session",
		ResourceID:   sess.ID,
	}, meta)
	return a, sess, nil
}

func (s *Service) loginFailed(ctx context.Context, a *Account, meta RequestMeta) {
	e := &audit.Entry{
		Action:       audit.ActionUserLogin,
		Severity:     audit.SeverityWarning,
		Status:       audit.StatusFailed,
		ResourceType: "session",
	}
	if a != nil {
		e.ActorID = &a.ID
		e.ActorRole = string(a.Role)
	}
	s.record(ctx, e, meta)
}

// Logout ends the session behind token.
func (s *Service) Logout(ctx context.Context, token string, meta RequestMeta) error {
	p, err := s.sessions.Principal(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	s.record(ctx, &audit.Entry{
		Action:       audit.ActionUserLogout,
		ActorID:      &p.AccountID,
		ResourceType: "session",
		ResourceID:   p.SessionID,
	}, meta)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) List(ctx context.Context, role rbac.Role, limit, offset int) ([]*Account, int, error) {
	return s.repo.List(ctx, role, limit, offset)
}

// SetRole changes the durable role of account id. This is the only path
// that mutates a role record. actor is uuid.Nil for operator changes.
func (s *Service) SetRole(ctx context.Context, actor, id uuid.UUID, roleName string, meta RequestMeta) (*Account, error) {
	role, ok := rbac.LookupRole(roleName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, roleName)
	}

	previous, err := s.repo.SetRole(ctx, id, role)
	if err != nil {
		return nil, err
	}

	e := &audit.Entry{
		Action:       audit.ActionUserRoleChanged,
		Severity:     audit.SeverityWarning,
		ResourceType: "account",
		ResourceID:   id.String(),
		Details: map[string]interface{}{
			"old_role": string(previous),
			"new_role": string(role),
		},
	}
	if actor != uuid.Nil {
		e.ActorID = &actor
	}
	s.record(ctx, e, meta)

	return s.repo.GetByID(ctx, id)
}

// SetActive suspends or reactivates account id. Suspending ends every live
// session of the account. Actors cannot suspend themselves.
func (s *Service) SetActive(ctx context.Context, actor, id uuid.UUID, active bool, meta RequestMeta) (*Account, error) {
	if !active && actor == id {
		return nil, fmt.Errorf("%w: cannot suspend your own account", ErrInvalidInput)
	}

	previous, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	revoked := 0
	if !active {
		revoked, err = s.sessions.RevokeAll(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	e := &audit.Entry{
		Action:       audit.ActionUserStatusChanged,
		Severity:     audit.SeverityWarning,
		ResourceType: "account",
		ResourceID:   id.String(),
		Details: map[string]interface{}{
			"old_active":       previous,
			"new_active":       active,
			"sessions_revoked": revoked,
		},
	}
	if actor != uuid.Nil {
		e.ActorID = &actor
	}
	s.record(ctx, e, meta)

	return s.repo.GetByID(ctx, id)
}

// RevokeSessions ends every live session of account id without changing
// its status.
func (s *Service) RevokeSessions(ctx context.Context, actor, id uuid.UUID, meta RequestMeta) (int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.sessions.RevokeAll(ctx, id)
	if err != nil {
		return 0, err
	}

	e := &audit.Entry{
		Action:       audit.ActionSessionsRevoked,
		Severity:     audit.SeverityWarning,
		ResourceType: "account",
		ResourceID:   id.String(),
		Details:      map[string]interface{}{"sessions_revoked": n},
	}
	if actor != uuid.Nil {
		e.ActorID = &actor
	}
	s.record(ctx, e, meta)
	return n, nil
}

func (s *Service) record(ctx context.Context, e *audit.Entry, meta RequestMeta) {
	if s.audit == nil {
		return
	}
	e.IPAddress = meta.IPAddress
	e.UserAgent = meta.UserAgent
	s.audit.Record(ctx, e)
}

var _ auth.RoleStore = (*Service)(nil)
