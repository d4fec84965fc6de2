package port

import (
	"context"
	"time"
)

// SnapshotObject описывает архивный объект heatmap в хранилище.
type SnapshotObject struct {
	Key          string
	URL          string
	SizeBytes    int64
	LastModified time.Time
}

// SnapshotStorage определяет интерфейс объектного хранилища снимков heatmap.
type SnapshotStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// GetObjectURL возвращает URL для чтения (presigned или публичный).
	GetObjectURL(ctx context.Context, key string) (string, error)

	// ListObjects возвращает объекты с префиксом, не более limit.
	ListObjects(ctx context.Context, prefix string, limit int) ([]SnapshotObject, error)
}
