// Package logging provides structured logging with trace ID support for the
// simulation core.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carried into the logger.
type ContextKey string

const (
	TraceIDKey ContextKey = "trace_id"
	OwnerIDKey ContextKey = "owner_id"
	TickKey    ContextKey = "tick"
)

// Logger wraps logrus.Logger with service-name tagging.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance for the given component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment
// variables, defaulting to "info" and "json".
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithContext creates a logger entry tagged with whatever trace/owner/tick
// values are present on ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if ownerID := ctx.Value(OwnerIDKey); ownerID != nil {
		entry = entry.WithField("owner_id", ownerID)
	}
	if tick := ctx.Value(TickKey); tick != nil {
		entry = entry.WithField("tick", tick)
	}

	return entry
}

// WithTick is a convenience entry tagged with a tick number directly,
// used by the executor where threading a context through every call would
// be needless ceremony.
func (l *Logger) WithTick(tick uint64) *logrus.Entry {
	return l.Logger.WithField("component", l.component).WithField("tick", tick)
}
