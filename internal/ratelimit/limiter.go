package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPublic = "ratelimit:public:%s:%s"

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// PublicLimiter throttles the unauthenticated payer routes by client IP.
type PublicLimiter struct {
	enabled bool
	bucket  bucket
	rate    float64
	burst   int
	log     *zap.Logger
}

type Params struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewPublicLimiter(p Params) *PublicLimiter {
	cfg := p.Config.RateLimit
	l := &PublicLimiter{
		enabled: cfg.Enabled && cfg.Rate > 0 && cfg.Burst > 0,
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		log:     p.Log.Named("ratelimit"),
	}
	if p.Redis != nil {
		l.bucket = NewRedisBucket(p.Redis)
	} else {
		l.bucket = NewMemoryBucket(p.Clock)
	}
	return l
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow fails open: a broken store must not take the payer routes down.
func (l *PublicLimiter) Allow(ctx context.Context, scope, clientIP string) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}
	key := fmt.Sprintf(keyPublic, scope, strings.TrimSpace(clientIP))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
		return &RateLimitResult{Allowed: true}
	}
	return res
}
