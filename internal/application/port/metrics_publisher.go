package port

import (
	"context"
	"time"
)

// MetricDatum is one numeric observation published to an external metrics backend.
type MetricDatum struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time
}

// MetricsPublisher defines the interface for publishing evaluation metrics to external observability platforms.
type MetricsPublisher interface {
	// PublishBatch buffers data; implementations respect backend request limits.
	PublishBatch(ctx context.Context, data []MetricDatum) error

	// PublishSingle publishes one datum immediately.
	PublishSingle(ctx context.Context, datum MetricDatum) error

	// Flush forces immediate publication of any buffered data.
	Flush(ctx context.Context) error
}
