package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis truncates Lua numbers to integers in replies, so the remaining token
// count is returned as a string.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end
ts = now

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

var (
	ErrLimiterNotConfigured = errors.New("rate_limiter_not_configured")
	ErrInvalidBucketKey     = errors.New("invalid_bucket_key")
	ErrInvalidBucketPolicy  = errors.New("invalid_bucket_policy")
)

// Policy is a refill rate in tokens per second and a bucket capacity.
type Policy struct {
	Rate  float64
	Burst int
}

func (p Policy) valid() bool {
	return p.Rate > 0 && p.Burst > 0
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	if t == nil || t.client == nil {
		return Decision{}, ErrLimiterNotConfigured
	}
	if key == "" {
		return Decision{}, ErrInvalidBucketKey
	}
	if !policy.valid() {
		return Decision{}, ErrInvalidBucketPolicy
	}

	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{key},
		policy.Rate,
		policy.Burst,
		bucketTTL(policy).Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) < 2 {
		return Decision{}, fmt.Errorf("token bucket: unexpected reply of %d values", len(res))
	}

	allowed := toInt64(res[0]) == 1
	remaining := toFloat64(res[1])
	return decide(allowed, remaining, policy), nil
}

func decide(allowed bool, remaining float64, policy Policy) Decision {
	d := Decision{
		Allowed:   allowed,
		Limit:     policy.Burst,
		Remaining: int(math.Max(0, math.Floor(remaining))),
	}
	if !allowed {
		if needed := 1 - remaining; needed > 0 {
			d.RetryAfter = time.Duration(needed / policy.Rate * float64(time.Second))
		}
	}
	return d
}

// bucketTTL keeps an idle bucket around for twice its full refill time.
func bucketTTL(policy Policy) time.Duration {
	if !policy.valid() {
		return time.Second
	}
	seconds := math.Ceil(float64(policy.Burst) / policy.Rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
