package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func captureDefault(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", format, false)
	return &buf
}

func TestFromContext_IncludesLoadID(t *testing.T) {
	buf := captureDefault(t, "text")

	ctx := WithLoadID(context.Background(), "load-123")
	FromContext(ctx).Info("chunk committed")

	out := buf.String()
	if !strings.Contains(out, "load_id=load-123") {
		t.Errorf("log output missing load_id: %q", out)
	}
}

func TestFromContext_NoLoadID(t *testing.T) {
	buf := captureDefault(t, "text")

	FromContext(context.Background()).Info("plain")

	if strings.Contains(buf.String(), "load_id") {
		t.Errorf("log output should not contain load_id: %q", buf.String())
	}
}

func TestWithFields_JSON(t *testing.T) {
	buf := captureDefault(t, "json")

	WithFields(WithLoadID(context.Background(), "abc"), "collection", "users").Info("load started")

	out := buf.String()
	for _, want := range []string{`"load_id":"abc"`, `"collection":"users"`, `"msg":"load started"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %q", want, out)
		}
	}
}

func TestLoadIDFromContext_Empty(t *testing.T) {
	if got := LoadIDFromContext(context.Background()); got != "" {
		t.Errorf("LoadIDFromContext() = %q, want empty", got)
	}
}

func TestSetupWriter_AddSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "text", true)
	slog.Info("load committed")

	if !strings.Contains(buf.String(), "source=") || !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("expected source location in %q", buf.String())
	}

	buf.Reset()
	SetupWriter(&buf, "info", "text", false)
	slog.Info("load committed")
	if strings.Contains(buf.String(), "source=") {
		t.Errorf("unexpected source location in %q", buf.String())
	}
}
