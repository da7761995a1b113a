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

// The bucket lives in one hash per key. Redis TIME is the clock so every
// replica refills against the same time source. Tokens are returned as a
// string because Redis truncates Lua numbers to integers.
const redisBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl_ms = tonumber(ARGV[3])

local t = redis.call("TIME")
local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now_ms

local elapsed = math.max(0, now_ms - last)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now_ms)
redis.call("PEXPIRE", KEYS[1], ttl_ms)

return {allowed, tostring(tokens), now_ms}
`

// RateLimitResult is the outcome of one take from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// RedisBucket is a token bucket shared by every replica through Redis.
type RedisBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisBucket(client *redis.Client) *RedisBucket {
	return &RedisBucket{
		client: client,
		script: redis.NewScript(redisBucketScript),
	}
}

func (b *RedisBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("redis bucket not configured")
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("rate limiter rate and burst must be positive")
	}

	reply, err := b.script.Run(ctx, b.client, []string{key},
		rate,
		burst,
		bucketTTL(rate, burst).Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected bucket reply of length %d", len(reply))
	}

	allowed, _ := reply[0].(int64)
	remaining, err := strconv.ParseFloat(fmt.Sprint(reply[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse bucket tokens: %w", err)
	}
	nowMs, _ := reply[2].(int64)

	return newResult(allowed == 1, remaining, burst, rate, time.UnixMilli(nowMs)), nil
}

// bucketTTL keeps an idle key around for twice its full refill time.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Max(1, math.Ceil(2*float64(burst)/rate))
	return time.Duration(seconds) * time.Second
}
