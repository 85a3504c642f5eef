package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "barix:lock:"

// Both scripts act only while the key still holds the caller's token, so a
// lock that expired and was taken by another process is left alone.
const (
	lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	lockExtendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

var (
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrInvalidLockKey    = errors.New("invalid_lock_key")
	ErrInvalidLockTTL    = errors.New("invalid_lock_ttl")
	ErrLockLost          = errors.New("lock_lost")
)

// Locker is a single-instance Redis lease. It guards the daily reminder
// dispatch across api and scheduler processes.
type Locker struct {
	client  *redis.Client
	release *redis.Script
	extend  *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(lockReleaseScript),
		extend:  redis.NewScript(lockExtendScript),
	}
}

// TryLock returns the owner token and whether the lease was taken.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil {
		return "", false, ErrLockNotConfigured
	}
	if key == "" {
		return "", false, ErrInvalidLockKey
	}
	if ttl <= 0 {
		return "", false, ErrInvalidLockTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Extend pushes the lease expiry out to ttl from now. ErrLockLost means the
// lease expired and may belong to someone else.
func (l *Locker) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	if l == nil {
		return ErrLockNotConfigured
	}
	if ttl <= 0 {
		return ErrInvalidLockTTL
	}
	n, err := l.extend.Run(ctx, l.client, []string{lockKeyPrefix + key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Err()
}
