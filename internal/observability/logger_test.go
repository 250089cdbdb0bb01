package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"warning", zap.WarnLevel},
		{"  error ", zap.ErrorLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.env).Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

// TestNewLogger_ConsoleFormat verifies that both encoders build.
func TestNewLogger_ConsoleFormat(t *testing.T) {
	for _, format := range []string{"", "console"} {
		t.Setenv("LOG_FORMAT", format)
		logger, err := NewLogger()
		if err != nil {
			t.Fatalf("NewLogger() with LOG_FORMAT=%q error = %v", format, err)
		}
		logger.Debug("probe")
	}
}

// TestWithRequest verifies that the stored logger carries the correlation id.
func TestWithRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx := WithRequest(context.Background(), zap.New(core), "corr-7")
	LoggerFromContext(ctx, nil).Info("hello")

	if got := CorrelationID(ctx); got != "corr-7" {
		t.Errorf("CorrelationID() = %q, want corr-7", got)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != "corr-7" {
		t.Errorf("entries = %+v, want one line tagged corr-7", entries)
	}
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	fallback := zap.NewExample()
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("LoggerFromContext() did not return the fallback")
	}
	if got := LoggerFromContext(context.Background(), nil); got == nil {
		t.Error("LoggerFromContext() with nil fallback returned nil")
	}
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID() = %q, want empty", got)
	}
}
