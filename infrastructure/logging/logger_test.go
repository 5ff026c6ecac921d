package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		component string
		level     string
		format    string
		wantLevel logrus.Level
	}{
		{"json logger", "test-component", "info", "json", logrus.InfoLevel},
		{"text logger", "test-component", "debug", "text", logrus.DebugLevel},
		{"invalid level falls back to info", "test-component", "not-a-level", "json", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.component, tt.level, tt.format)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.component != tt.component {
				t.Errorf("component = %v, want %v", logger.component, tt.component)
			}
			if logger.Logger.Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", logger.Logger.Level, tt.wantLevel)
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "text")

	logger := NewFromEnv("engine")
	if logger.component != "engine" {
		t.Errorf("component = %v, want engine", logger.component)
	}
	if logger.Logger.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", logger.Logger.Level)
	}
}

func TestNewFromEnvDefaults(t *testing.T) {
	logger := NewFromEnv("engine")
	if logger.Logger.Level != logrus.InfoLevel {
		t.Errorf("default level = %v, want info", logger.Logger.Level)
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger := New("test", "info", "json")
	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-123")
	ctx = context.WithValue(ctx, OwnerIDKey, "owner-456")
	ctx = context.WithValue(ctx, TickKey, uint64(7))

	entry := logger.WithContext(ctx)
	if entry.Data["component"] != "test" {
		t.Errorf("component field = %v, want test", entry.Data["component"])
	}
	if entry.Data["trace_id"] != "trace-123" {
		t.Errorf("trace_id field = %v, want trace-123", entry.Data["trace_id"])
	}
	if entry.Data["owner_id"] != "owner-456" {
		t.Errorf("owner_id field = %v, want owner-456", entry.Data["owner_id"])
	}
	if entry.Data["tick"] != uint64(7) {
		t.Errorf("tick field = %v, want 7", entry.Data["tick"])
	}
}

func TestLogger_WithContextOmitsAbsentFields(t *testing.T) {
	logger := New("test", "info", "json")
	entry := logger.WithContext(context.Background())

	if _, ok := entry.Data["trace_id"]; ok {
		t.Error("trace_id should be absent when not set on the context")
	}
}

func TestLogger_WithTick(t *testing.T) {
	logger := New("test", "info", "json")
	entry := logger.WithTick(42)

	if entry.Data["tick"] != uint64(42) {
		t.Errorf("tick field = %v, want 42", entry.Data["tick"])
	}
	if entry.Data["component"] != "test" {
		t.Errorf("component field = %v, want test", entry.Data["component"])
	}
}

func TestLogger_OutputFormats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			logger := New("test", "info", format)
			buf := &bytes.Buffer{}
			logger.SetOutput(buf)

			logger.Info("hello")

			if buf.Len() == 0 {
				t.Errorf("%s formatter produced no output", format)
			}
		})
	}
}
