package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList invalidates bearer tokens before they expire, either one
// token by its JTI or every token a user holds
type RevocationList interface {
	// RevokeToken blocks one token; ttl should cover its remaining lifetime
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsTokenRevoked reports whether the JTI was revoked
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUser blocks every token issued to userID up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserRevoked reports whether a token issued at issuedAt predates the user's revocation
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const revocationKeyPrefix = "storefront:revoked:"

// RedisRevocationList stores revocations in Redis so every instance sees them
type RedisRevocationList struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRevocationList keeps revocations on client, which the caller owns
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: revocationKeyPrefix}
}

func (l *RedisRevocationList) jtiKey(jti string) string {
	return l.keyPrefix + "jti:" + jti
}

func (l *RedisRevocationList) userKey(userID string) string {
	return l.keyPrefix + "user:" + userID
}

// RevokeToken stores the JTI until ttl elapses
func (l *RedisRevocationList) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks the JTI key
func (l *RedisRevocationList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeUser stores the current unix time; older tokens are rejected
func (l *RedisRevocationList) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IsUserRevoked compares issuedAt with the stored revocation time
func (l *RedisRevocationList) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := l.client.Get(ctx, l.userKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	revokedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation timestamp: %w", err)
	}
	return issuedAt.Unix() <= revokedAt, nil
}

var _ RevocationList = (*RedisRevocationList)(nil)

// InMemoryRevocationList is a single-instance RevocationList for tests and local runs
type InMemoryRevocationList struct {
	mu    sync.Mutex
	now   func() time.Time
	jtis  map[string]time.Time
	users map[string]time.Time
}

// NewInMemoryRevocationList creates an empty list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{
		now:   time.Now,
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
	}
}

// RevokeToken blocks the JTI until ttl elapses
func (l *InMemoryRevocationList) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jtis[jti] = l.now().Add(ttl)
	return nil
}

// IsTokenRevoked drops expired entries as it finds them
func (l *InMemoryRevocationList) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.jtis[jti]
	if !ok {
		return false, nil
	}
	if l.now().After(until) {
		delete(l.jtis, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUser records the revocation time
func (l *InMemoryRevocationList) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = l.now()
	return nil
}

// IsUserRevoked uses nanosecond precision
func (l *InMemoryRevocationList) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	revokedAt, ok := l.users[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(revokedAt), nil
}

var _ RevocationList = (*InMemoryRevocationList)(nil)
