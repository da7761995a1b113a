package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/chaseless/internal/clock"
)

// MemoryBucket is a per-process token bucket. Each replica keeps its own
// counts, so the effective limit scales with the replica count.
type MemoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*memoryState
	maxKeys int
}

type memoryState struct {
	tokens float64
	ts     time.Time
}

func NewMemoryBucket(clk clock.Clock) *MemoryBucket {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &MemoryBucket{
		clock:   clk,
		buckets: make(map[string]*memoryState),
		maxKeys: 10000,
	}
}

func (b *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if key == "" {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter rate and burst must be positive")
	}

	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.buckets[key]
	if !ok {
		if len(b.buckets) >= b.maxKeys {
			b.evictFull(now, rate, burst)
		}
		state = &memoryState{tokens: float64(burst), ts: now}
		b.buckets[key] = state
	} else {
		elapsed := now.Sub(state.ts).Seconds()
		if elapsed > 0 {
			state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
			state.ts = now
		}
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}
	return newResult(allowed, state.tokens, burst, rate, now), nil
}

// evictFull drops buckets that would have refilled completely by now.
func (b *MemoryBucket) evictFull(now time.Time, rate float64, burst int) {
	for key, state := range b.buckets {
		if state.tokens+now.Sub(state.ts).Seconds()*rate >= float64(burst) {
			delete(b.buckets, key)
		}
	}
}

func newResult(allowed bool, remaining float64, burst int, rate float64, now time.Time) *RateLimitResult {
	retryAfter := time.Duration(0)
	if !allowed {
		if needed := 1.0 - remaining; needed > 0 {
			retryAfter = time.Duration(needed / rate * float64(time.Second))
		}
	}
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  int(remaining),
		ResetTime:  now.Add(retryAfter),
		RetryAfter: retryAfter,
	}
}
