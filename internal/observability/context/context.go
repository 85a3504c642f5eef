package context

import (
	stdcontext "context"
	"strings"
)

type requestIDKey struct{}
type orgIDKey struct{}
type jobKey struct{}

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithOrgID(ctx stdcontext.Context, orgID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, orgIDKey{}, strings.TrimSpace(orgID))
}

func OrgIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, orgIDKey{})
}

// WithJob tags background work (scheduler jobs, cron triggers) so logs emitted
// deep in services can be tied back to the run.
func WithJob(ctx stdcontext.Context, job string) stdcontext.Context {
	return stdcontext.WithValue(ctx, jobKey{}, strings.TrimSpace(job))
}

func JobFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, jobKey{})
}

func stringValue(ctx stdcontext.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
