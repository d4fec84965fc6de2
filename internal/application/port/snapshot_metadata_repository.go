package port

import (
	"context"
	"time"
)

// SnapshotMetadata представляет метаданные архивного снимка heatmap.
type SnapshotMetadata struct {
	Project     string
	Stage       string
	Service     string
	Format      string
	S3Key       string
	URL         string
	ContentType string
	SizeBytes   int64
	Rows        int
	Columns     int
	CapturedAt  time.Time
	ExpiresAt   time.Time
}

// SnapshotListQuery определяет параметры выборки списка снимков.
type SnapshotListQuery struct {
	Project string
	Stage   string
	Service string
	Format  string // пустой - все форматы
	Limit   int
	Cursor  string
	From    time.Time
	To      time.Time
}

// SnapshotListPage содержит результат выборки и курсор следующей страницы.
type SnapshotListPage struct {
	Items      []SnapshotMetadata
	NextCursor string
}

// SnapshotMetadataRepository определяет интерфейс индекса снимков.
type SnapshotMetadataRepository interface {
	PutBatch(ctx context.Context, records []SnapshotMetadata) error
	ListByScope(ctx context.Context, query SnapshotListQuery) (SnapshotListPage, error)
}
