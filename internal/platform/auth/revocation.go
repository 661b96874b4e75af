package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore remembers session ids that were ended before their natural
// expiry, and which sessions each account holds so they can all be ended at
// once.
type RevocationStore interface {
	// Track registers an issued session under its account.
	Track(ctx context.Context, jti, accountID string, expiresAt time.Time) error
	Revoke(ctx context.Context, jti, accountID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeAccount revokes every tracked, unexpired session of accountID
	// and returns how many were newly revoked.
	RevokeAccount(ctx context.Context, accountID string) (int, error)
}

// MemoryRevocationStore keeps revocations and issued sessions in process
// memory. Entries are dropped once the session would have expired anyway.
// Safe for concurrent use.
type MemoryRevocationStore struct {
	mu        sync.RWMutex
	revoked   map[string]time.Time
	sessions  map[string]map[string]time.Time
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryRevocationStore creates a store and starts a goroutine that
// removes expired entries every interval.
func NewMemoryRevocationStore(interval time.Duration) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		revoked:  make(map[string]time.Time),
		sessions: make(map[string]map[string]time.Time),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go s.cleanupLoop(interval)
	return s
}

// Track records jti as a live session of accountID until expiresAt.
func (s *MemoryRevocationStore) Track(_ context.Context, jti, accountID string, expiresAt time.Time) error {
	if accountID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[accountID]
	if !ok {
		live = make(map[string]time.Time)
		s.sessions[accountID] = live
	}
	live[jti] = expiresAt
	return nil
}

// Revoke records jti as revoked until expiresAt.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti, accountID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[jti] = expiresAt
	if live, ok := s.sessions[accountID]; ok {
		delete(live, jti)
		if len(live) == 0 {
			delete(s.sessions, accountID)
		}
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[jti]
	return ok, nil
}

// RevokeAccount revokes every live session tracked for accountID.
func (s *MemoryRevocationStore) RevokeAccount(_ context.Context, accountID string) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for jti, exp := range s.sessions[accountID] {
		if now.After(exp) {
			continue
		}
		if _, done := s.revoked[jti]; !done {
			s.revoked[jti] = exp
			n++
		}
	}
	delete(s.sessions, accountID)
	return n, nil
}

// LiveSessions returns how many unrevoked sessions are tracked for
// accountID.
func (s *MemoryRevocationStore) LiveSessions(accountID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions[accountID])
}

// Count returns the number of tracked revocations.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.revoked)
}

// Close stops the cleanup goroutine. Later calls do nothing.
func (s *MemoryRevocationStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *MemoryRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, jti)
		}
	}
	for accountID, live := range s.sessions {
		for jti, exp := range live {
			if now.After(exp) {
				delete(live, jti)
			}
		}
		if len(live) == 0 {
			delete(s.sessions, accountID)
		}
	}
}
