package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrgContextKey is the request context key for the active account ID.
type OrgContextKey struct{}

// WithOrgID stores the account ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the account ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(OrgContextKey{}).(type) {
	case int64:
		if typed <= 0 {
			return 0, false
		}
		return snowflake.ID(typed), true
	case snowflake.ID:
		if typed <= 0 {
			return 0, false
		}
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed > 0 {
			return parsed, true
		}
	}
	return 0, false
}

// ParseOrgID parses the raw X-Org-ID header value.
func ParseOrgID(raw string) (snowflake.ID, bool) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
