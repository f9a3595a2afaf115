package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        LevelInfo,
		"DEBUG":   LevelDebug,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", raw, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLogger_WritesFieldsAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(LevelInfo, WithWriter(&buf), WithService("pickup")).Named("bot").With("venue", "1/2")

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.Debug("dropped")
	logger.WarnContext(ctx, "sign rejected", "error", errors.New("position taken"), "position", "GK")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := sonic.UnmarshalString(lines[0], &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	checks := map[string]string{
		"msg":      "sign rejected",
		"level":    "WARN",
		"logger":   "bot",
		"service":  "pickup",
		"venue":    "1/2",
		"error":    "position taken",
		"position": "GK",
		"trace_id": spanCtx.TraceID().String(),
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("field %s: got %q want %q", key, got, want)
		}
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync nil logger: %v", err)
	}
	if logger.With("k", "v") == nil {
		t.Fatalf("expected nop logger from nil receiver")
	}
}
