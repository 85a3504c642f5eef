package ratelimit

import (
	"context"
	"strings"

	"github.com/burton0621/barix-site-sub000/internal/config"
)

// Scope names a rate-limited surface. It is part of the bucket key and the
// denial metric.
type Scope string

const (
	ScopePublic Scope = "public"
	ScopeCron   Scope = "cron"
)

const keyPrefix = "ratelimit:"

// Limiter applies per-scope token buckets. A nil or disabled Limiter allows
// everything.
type Limiter struct {
	bucket   *TokenBucket
	policies map[Scope]Policy
}

func NewLimiter(cfg config.Config, bucket *TokenBucket) *Limiter {
	if !cfg.RateLimit.Enabled || bucket == nil {
		return nil
	}
	return &Limiter{
		bucket: bucket,
		policies: map[Scope]Policy{
			ScopePublic: {Rate: cfg.RateLimit.PublicRate, Burst: cfg.RateLimit.PublicBurst},
			ScopeCron:   {Rate: cfg.RateLimit.CronRate, Burst: cfg.RateLimit.CronBurst},
		},
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow spends one token from the bucket for (scope, subject).
func (l *Limiter) Allow(ctx context.Context, scope Scope, subject string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	policy, ok := l.policies[scope]
	if !ok || !policy.valid() {
		return Decision{Allowed: true}, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	return l.bucket.Allow(ctx, keyPrefix+string(scope)+":"+subject, policy)
}
