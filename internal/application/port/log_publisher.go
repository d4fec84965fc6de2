package port

import (
	"context"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is a structured log line shipped to an external log sink.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher ships log entries to an external sink (CloudWatch Logs).
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch sends entries in as few requests as the sink allows.
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush publishes buffered entries; called on shutdown.
	Flush(ctx context.Context) error
}
