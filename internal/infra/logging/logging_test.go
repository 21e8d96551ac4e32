//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"jobboard-billing/internal/config"
)

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "info", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithHolder(ctx, "employer:5")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" || line["holder"] != "employer:5" {
		t.Errorf("missing context fields in %v", line)
	}
	if _, ok := line["payment_id"]; ok {
		t.Error("payment_id should be absent when not set")
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("expected trace id round trip, got %q", TraceID(ctx))
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "loud", Format: "json"}, false, &buf)
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line should be filtered at the fallback level, got %q", buf.String())
	}
	l.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("info line should be written")
	}
}
