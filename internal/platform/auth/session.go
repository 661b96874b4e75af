package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrNoSession means the request carries no usable session token.
	ErrNoSession = errors.New("no authenticated session")
	// ErrSessionRevoked means the session was ended by logout.
	ErrSessionRevoked = errors.New("session revoked")
)

// SessionConfig configures session token signing.
type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Session is a freshly created session.
type Session struct {
	Token     string
	ID        string
	AccountID uuid.UUID
	ExpiresAt time.Time
}

// Principal is the account behind a valid session token.
type Principal struct {
	AccountID uuid.UUID
	SessionID string
	ExpiresAt time.Time
}

// SessionManager issues and checks HS256 session tokens. The token proves
// who the caller is and carries no role.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked RevocationStore
	now     func() time.Time
}

// NewSessionManager validates cfg and returns a manager backed by store.
func NewSessionManager(cfg SessionConfig, store RevocationStore) (*SessionManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if store == nil {
		return nil, errors.New("revocation store is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "meditrack"
	}
	return &SessionManager{
		secret:  cfg.Secret,
		ttl:     cfg.TTL,
		issuer:  cfg.Issuer,
		revoked: store,
		now:     time.Now,
	}, nil
}

// Create signs a new session token for accountID and tracks it so
// RevokeAll can end it.
func (m *SessionManager) Create(ctx context.Context, accountID uuid.UUID) (Session, error) {
	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   accountID.String(),
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}
	if err := m.revoked.Track(ctx, s.ID, accountID.String(), s.ExpiresAt); err != nil {
		return Session{}, fmt.Errorf("track session: %w", err)
	}
	s.Token = token
	return s, nil
}

// Principal validates token and returns the account it belongs to. Invalid,
// expired and empty tokens wrap ErrNoSession; logged out ones return
// ErrSessionRevoked.
func (m *SessionManager) Principal(ctx context.Context, token string) (Principal, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Principal{}, err
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("check session revocation: %w", err)
	}
	if revoked {
		return Principal{}, ErrSessionRevoked
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: bad subject", ErrNoSession)
	}
	return Principal{
		AccountID: accountID,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Delete revokes the session behind token until it would have expired.
func (m *SessionManager) Delete(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	if err := m.revoked.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll ends every live session of accountID and returns how many were
// ended.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID uuid.UUID) (int, error) {
	n, err := m.revoked.RevokeAccount(ctx, accountID.String())
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return n, nil
}

func (m *SessionManager) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrNoSession)
	}
	return claims, nil
}
