package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartSpanDisabled(t *testing.T) {
	if err := Init(Config{Enabled: false}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	if span.IsRecording() {
		t.Error("expected non-recording span when tracing is disabled")
	}
	if _, _, ok := TraceFields(ctx); ok {
		t.Error("expected no trace fields when tracing is disabled")
	}
}

func TestStartSpanExports(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Enabled: true, ServiceName: "analyzer-test", Writer: &buf}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "analysis.Run")
	span.SetAttributes(String("symbol", "BTCUSDT"), Int("limit", 100))
	traceID, spanID, ok := TraceFields(ctx)
	if !ok || traceID == "" || spanID == "" {
		t.Errorf("TraceFields() = %q, %q, %v", traceID, spanID, ok)
	}
	span.End()

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if !strings.Contains(buf.String(), "analysis.Run") {
		t.Errorf("exported spans missing span name: %s", buf.String())
	}
	if Enabled() {
		t.Error("expected tracing disabled after Shutdown")
	}
}
