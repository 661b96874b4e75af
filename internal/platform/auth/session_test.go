package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSessions(t *testing.T) (*SessionManager, *MemoryRevocationStore) {
	t.Helper()
	store := NewMemoryRevocationStore(time.Hour)
	t.Cleanup(store.Close)
	m, err := NewSessionManager(SessionConfig{Secret: testSecret, TTL: time.Hour}, store)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return m, store
}

func TestNewSessionManager_Validates(t *testing.T) {
	store := NewMemoryRevocationStore(time.Hour)
	defer store.Close()

	if _, err := NewSessionManager(SessionConfig{TTL: time.Hour}, store); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewSessionManager(SessionConfig{Secret: testSecret}, store); err == nil {
		t.Error("expected error for zero ttl")
	}
	if _, err := NewSessionManager(SessionConfig{Secret: testSecret, TTL: time.Hour}, nil); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestSession_CreateAndResolve(t *testing.T) {
	m, _ := newTestSessions(t)
	ctx := context.Background()
	id := uuid.New()

	s, err := m.Create(ctx, id)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Token == "" || s.ID == "" {
		t.Fatal("expected token and session id")
	}

	p, err := m.Principal(ctx, s.Token)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if p.AccountID != id {
		t.Errorf("account = %s, want %s", p.AccountID, id)
	}
	if p.SessionID != s.ID {
		t.Errorf("session id = %s, want %s", p.SessionID, s.ID)
	}
}

func TestSession_RejectsBadTokens(t *testing.T) {
	m, _ := newTestSessions(t)
	ctx := context.Background()
	id := uuid.New()

	other, err := NewSessionManager(SessionConfig{Secret: []byte("ffffffffffffffffffffffffffffffff"), TTL: time.Hour}, NewMemoryRevocationStore(time.Hour))
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	foreign, _ := other.Create(ctx, id)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "meditrack",
		Subject: id.String(),
		ID:      "jti",
	}).SignedString(testSecret)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "meditrack",
		Subject:   id.String(),
		ID:        "jti",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": foreign.Token,
		"no expiry":    noExp,
		"alg none":     none,
	} {
		if _, err := m.Principal(ctx, token); !errors.Is(err, ErrNoSession) {
			t.Errorf("%s: expected ErrNoSession, got %v", name, err)
		}
	}
}

func TestSession_Expired(t *testing.T) {
	m, _ := newTestSessions(t)
	ctx := context.Background()

	s, err := m.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := m.Principal(ctx, s.Token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for expired token, got %v", err)
	}
}

func TestSession_DeleteRevokes(t *testing.T) {
	m, store := newTestSessions(t)
	ctx := context.Background()
	id := uuid.New()

	s, _ := m.Create(ctx, id)
	if err := m.Delete(ctx, s.Token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Principal(ctx, s.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
	if n := store.LiveSessions(id.String()); n != 0 {
		t.Errorf("expected the deleted session to leave the live set, got %d", n)
	}

	fresh, _ := m.Create(ctx, id)
	if _, err := m.Principal(ctx, fresh.Token); err != nil {
		t.Errorf("new session should be unaffected: %v", err)
	}
}

func TestSession_RevokeAll(t *testing.T) {
	m, store := newTestSessions(t)
	ctx := context.Background()
	id, other := uuid.New(), uuid.New()

	a, _ := m.Create(ctx, id)
	b, _ := m.Create(ctx, id)
	keep, _ := m.Create(ctx, other)
	if n := store.LiveSessions(id.String()); n != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", n)
	}

	n, err := m.RevokeAll(ctx, id)
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 revoked, got %d", n)
	}
	for _, s := range []Session{a, b} {
		if _, err := m.Principal(ctx, s.Token); !errors.Is(err, ErrSessionRevoked) {
			t.Errorf("expected ErrSessionRevoked, got %v", err)
		}
	}
	if _, err := m.Principal(ctx, keep.Token); err != nil {
		t.Errorf("other account's session should survive: %v", err)
	}
}

func TestSession_DeleteInvalidToken(t *testing.T) {
	m, _ := newTestSessions(t)
	if err := m.Delete(context.Background(), "junk"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

type failingRevocations struct{}

func (failingRevocations) Track(context.Context, string, string, time.Time) error {
	return nil
}

func (failingRevocations) RevokeAccount(context.Context, string) (int, error) {
	return 0, errors.New("store down")
}

func (failingRevocations) Revoke(context.Context, string, string, time.Time) error {
	return errors.New("store down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func TestSession_RevocationStoreFailure(t *testing.T) {
	m, err := NewSessionManager(SessionConfig{Secret: testSecret, TTL: time.Hour}, failingRevocations{})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	ctx := context.Background()
	s, _ := m.Create(ctx, uuid.New())

	if _, err := m.Principal(ctx, s.Token); err == nil {
		t.Error("expected store failure to deny the session")
	}
	if err := m.Delete(ctx, s.Token); err == nil {
		t.Error("expected Delete to report store failure")
	}
}
