package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	obscontext "github.com/burton0621/barix-site-sub000/internal/observability/context"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareRecordsRouteAndAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/documents/:id", func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithOrgID(c.Request.Context(), "42"))
		c.Set("document_id", c.Param("id"))
		c.Status(http.StatusInternalServerError)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents/7", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP GET /api/documents/:id", span.Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "42", attrs["barix.org_id"].AsString())
	assert.Equal(t, "7", attrs["barix.document_id"].AsString())
	assert.EqualValues(t, 500, attrs["http.status_code"].AsInt64())
	assert.Equal(t, "Error", span.Status().Code.String())
}
