package server

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
)

const (
	// HeaderIssuerID carries the subject the identity gateway authenticated.
	HeaderIssuerID = "X-Issuer-ID"
	// HeaderGatewaySecret proves the request came through the gateway.
	HeaderGatewaySecret = "X-Gateway-Secret"
)

// IssuerRequired trusts the issuer id set by the identity gateway. With no
// gateway secret configured the header alone is accepted, which is only
// allowed outside production.
func (s *Server) IssuerRequired() gin.HandlerFunc {
	secret := []byte(s.cfg.GatewaySecret)
	production := s.cfg.IsProduction()

	return func(c *gin.Context) {
		if len(secret) == 0 {
			if production {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		} else {
			presented := []byte(strings.TrimSpace(c.GetHeader(HeaderGatewaySecret)))
			if subtle.ConstantTimeCompare(presented, secret) != 1 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}

		issuerID := strings.TrimSpace(c.GetHeader(HeaderIssuerID))
		if issuerID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := issuercontext.WithIssuerID(c.Request.Context(), issuerID)
		ctx = issuercontext.WithClientInfo(ctx, issuercontext.ClientInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// PublicRateLimit throttles unauthenticated routes per client IP.
func (s *Server) PublicRateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		res := s.limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if !res.Allowed {
			s.obsMetrics.RecordRateLimited(scope)
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
