package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory.
type TestTelemetry struct {
	*Telemetry
	Spans  *tracetest.SpanRecorder
	Reader *sdkmetric.ManualReader
}

// NewTestTelemetry creates in-memory providers and installs them as the
// otel globals until the test ends.
func NewTestTelemetry(tb testing.TB) *TestTelemetry {
	tb.Helper()
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	t := &Telemetry{config: cfg, tracerProvider: tp, meterProvider: mp}
	t.healthy.Store(true)
	return &TestTelemetry{Telemetry: t, Spans: recorder, Reader: reader}
}

// SpanByName returns the first ended span named name.
func (t *TestTelemetry) SpanByName(name string) sdktrace.ReadOnlySpan {
	for _, s := range t.Spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// AssertSpan fails tb unless a span named name ended with every attribute
// in attrs.
func (t *TestTelemetry) AssertSpan(tb testing.TB, name string, attrs ...attribute.KeyValue) {
	tb.Helper()
	span := t.SpanByName(name)
	if span == nil {
		tb.Errorf("span %q not found", name)
		return
	}
	got := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, kv := range span.Attributes() {
		got[kv.Key] = kv.Value
	}
	for _, want := range attrs {
		v, ok := got[want.Key]
		if !ok {
			tb.Errorf("span %q missing attribute %q", name, want.Key)
			continue
		}
		if v != want.Value {
			tb.Errorf("span %q attribute %q = %v, want %v", name, want.Key, v.Emit(), want.Value.Emit())
		}
	}
}

// CounterValue collects metrics and returns the summed value of an int64
// counter, counting only data points that carry every attribute in attrs.
func (t *TestTelemetry) CounterValue(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := t.Reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collect metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				tb.Fatalf("metric %q is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAttributes(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttributes(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, want := range attrs {
		v, ok := set.Value(want.Key)
		if !ok || v != want.Value {
			return false
		}
	}
	return true
}
