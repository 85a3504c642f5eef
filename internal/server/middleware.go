package server

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"

	obscontext "github.com/burton0621/barix-site-sub000/internal/observability/context"
	"github.com/burton0621/barix-site-sub000/internal/observability/logger"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderOrg           = "X-Org-ID"
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// OrgContext resolves the account from X-Org-ID. Authentication happens
// upstream; this only scopes the request.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := orgcontext.ParseOrgID(c.GetHeader(HeaderOrg))
		if !ok {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CronAuth accepts `Authorization: Bearer <CRON_SECRET>`. Without a
// configured secret the endpoint is open outside production only.
func (s *Server) CronAuth() gin.HandlerFunc {
	secret := strings.TrimSpace(s.cfg.CronSecret)
	return func(c *gin.Context) {
		if secret == "" {
			if s.cfg.IsProduction() {
				logger.FromContext(c.Request.Context()).Warn("cron request rejected, CRON_SECRET is not set")
				AbortWithError(c, ErrUnauthorized)
				return
			}
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader(headerAuthorization))
		if !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RateLimit spends one token per request from the scope's bucket, keyed by
// client IP. Limiter failures let the request through.
func (s *Server) RateLimit(scope ratelimit.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decision, err := s.limiter.Allow(ctx, scope, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed",
				zap.String("scope", string(scope)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		if decision.Allowed {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		logger.FromContext(ctx).Warn("rate limit exceeded",
			zap.String("scope", string(scope)),
			zap.String("endpoint", endpoint),
		)
		s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, string(scope))

		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		AbortWithError(c, ErrRateLimited)
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
