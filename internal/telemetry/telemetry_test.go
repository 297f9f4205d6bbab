package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/redactd/internal/secrets"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = ""

	tel, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_EnabledWithOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()

	tel, err := New(context.Background(), cfg, zaptest.NewLogger(t),
		WithSpanExporter(spans), WithMetricReader(reader))
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())

	_, span := tel.Tracer("test").Start(context.Background(), "redact.preview")
	span.End()
	require.NoError(t, tel.ForceFlush(context.Background()))

	exported := spans.GetSpans()
	require.Len(t, exported, 1)
	assert.Equal(t, "redact.preview", exported[0].Name)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.IsEnabled())
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.IsEnabled())
	assert.True(t, tel.Health().Degraded)
	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestTestTelemetry_SecretsEngineMetrics(t *testing.T) {
	tt := NewTestTelemetry(t)

	engine, err := secrets.NewEngine(nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = engine.Detect(context.Background(), "key=AKIAABCDEFGHIJKLMN password=S3cr3tPass!")
	require.NoError(t, err)

	assert.Equal(t, int64(1), tt.CounterValue(t, "redactd.secrets.detections_total",
		attribute.String("type", secrets.TypeAWSAccessKey)))
	assert.Equal(t, int64(2), tt.CounterValue(t, "redactd.secrets.detections_total"))
	assert.Zero(t, tt.CounterValue(t, "redactd.secrets.rule_failures_total"))
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry(t)

	_, span := tt.Tracer("test").Start(context.Background(), "notes.Disclose")
	span.SetAttributes(attribute.String("note.id", "n1"), attribute.Bool("granted", false))
	span.End()

	tt.AssertSpan(t, "notes.Disclose", attribute.String("note.id", "n1"), attribute.Bool("granted", false))
	assert.Nil(t, tt.SpanByName("missing"))
}
