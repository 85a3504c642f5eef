package logger

import (
	"net/http"
	"strings"
	"time"

	obscontext "github.com/burton0621/barix-site-sub000/internal/observability/context"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const headerRequestID = "X-Request-Id"

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (type, code) log fields.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware emits one http_request event per request. Public document
// links carry a bearer token in the path, so those requests log the route
// template instead of the raw path.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c)
		c.Set("request_id", requestID)
		c.Header(headerRequestID, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			route = "unknown"
		}
		path := c.Request.URL.Path
		if isPublicRoute(route) {
			path = route
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if documentID := c.GetString("document_id"); documentID != "" {
			fields = append(fields, zap.String("document_id", documentID))
		}

		errorType := ""
		if lastErr := c.Errors.Last(); lastErr != nil {
			errorCode := ""
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Error(lastErr.Err))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(requestLevel(route, status, errorType), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestIDFrom(c *gin.Context) string {
	// Header lookup is case-insensitive.
	if id := strings.TrimSpace(c.GetHeader(headerRequestID)); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetString("request_id")); id != "" {
		return id
	}
	return uuid.NewString()
}

func requestLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case route == "/metrics" || route == "/health":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	case isPublicRoute(route) && errorType == "not_found":
		// Stale or mistyped client links.
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func isPublicRoute(route string) bool {
	return strings.HasPrefix(route, "/public/")
}
