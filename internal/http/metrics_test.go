package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/telemetry"
)

func TestMetricsMiddleware_RouteLabels(t *testing.T) {
	tel := telemetry.NewTestTelemetry(t)

	e := echo.New()
	e.Use(NewMetrics(zap.NewNop()).Middleware())
	e.GET("/api/v1/notes/:id/redaction", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "no")
	})

	for _, path := range []string{"/api/v1/notes/a/redaction", "/api/v1/notes/b/redaction", "/boom", "/nowhere"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(2), tel.CounterValue(t, "redactd.http.requests_total",
		attribute.String("route", "/api/v1/notes/:id/redaction"),
		attribute.Int("status", http.StatusOK)))
	assert.Equal(t, int64(1), tel.CounterValue(t, "redactd.http.requests_total",
		attribute.String("route", "/boom"),
		attribute.Int("status", http.StatusForbidden)))
	assert.Equal(t, int64(4), tel.CounterValue(t, "redactd.http.requests_total"))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", routeLabel(""))
	assert.Equal(t, "/health", routeLabel("/health"))
}
