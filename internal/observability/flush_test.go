package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFlushTelemetry_NilLogger(t *testing.T) {
	if err := FlushTelemetry(context.Background(), nil); err != nil {
		t.Errorf("FlushTelemetry(nil) error = %v", err)
	}
}

func TestFlushTelemetry_SyncsLogger(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	if err := FlushTelemetry(context.Background(), zap.New(core)); err != nil {
		t.Errorf("FlushTelemetry() error = %v", err)
	}
}

func TestFlushTelemetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	core, _ := observer.New(zap.InfoLevel)
	if err := FlushTelemetry(ctx, zap.New(core)); err == nil {
		t.Error("FlushTelemetry() with cancelled context error = nil")
	}
}
