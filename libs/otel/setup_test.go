package otelx

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "7")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317")

	cfg := ConfigFromEnv("scheduling-service")
	if !cfg.Enabled || cfg.OTLPEndpoint != "jaeger:4317" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("expected out-of-range ratio to fall back to 1, got %v", cfg.SampleRatio)
	}
}

func TestTraceContextRoundTripDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer shutdown(context.Background())

	ctx := ContextWithTraceContext(context.Background(), "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", "")
	tp, _ := TraceContextStrings(ctx)
	if tp != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected traceparent %q", tp)
	}
	if got := ContextWithTraceContext(context.Background(), "", ""); got != context.Background() {
		t.Fatalf("expected unchanged ctx for empty trace context")
	}
}
