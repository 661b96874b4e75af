package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revocationKeyPrefix = "meditrack:revoked:"
	// accountSessionsPrefix keys a set of "jti|unix-expiry" members per
	// account.
	accountSessionsPrefix = "meditrack:sessions:"
)

// RedisRevocationStore shares revoked session ids between server instances.
// Each key expires together with the session it revokes.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocationStore wraps an existing client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Revoke stores jti until expiresAt. An already expired session needs no
// entry.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, revocationKeyPrefix+jti, accountID, ttl)
		if accountID != "" {
			pipe.SRem(ctx, accountSessionsPrefix+accountID, sessionMember(jti, expiresAt))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke session %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti has a live revocation key.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", jti, err)
	}
	return n > 0, nil
}

// Track adds jti to the account's session set. The set lives as long as the
// newest session in it.
func (s *RedisRevocationStore) Track(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	if accountID == "" {
		return nil
	}
	key := accountSessionsPrefix + accountID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, sessionMember(jti, expiresAt))
		pipe.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("track session %s: %w", jti, err)
	}
	return nil
}

// RevokeAccount revokes every unexpired session still in the account's set
// and drops the set.
func (s *RedisRevocationStore) RevokeAccount(ctx context.Context, accountID string) (int, error) {
	key := accountSessionsPrefix + accountID
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions of %s: %w", accountID, err)
	}

	now := s.now()
	n := 0
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			jti, exp, ok := parseSessionMember(m)
			if !ok || !exp.After(now) {
				continue
			}
			pipe.Set(ctx, revocationKeyPrefix+jti, accountID, exp.Sub(now))
			n++
		}
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("revoke sessions of %s: %w", accountID, err)
	}
	return n, nil
}

func sessionMember(jti string, expiresAt time.Time) string {
	return jti + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
}

func parseSessionMember(m string) (string, time.Time, bool) {
	jti, raw, ok := strings.Cut(m, "|")
	if !ok || jti == "" {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return jti, time.Unix(unix, 0), true
}
