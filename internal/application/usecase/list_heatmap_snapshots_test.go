package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

func TestListHeatmapSnapshotsUseCase_S3Listing(t *testing.T) {
	storage := &mockSnapshotStorage{
		objectsByPrefix: map[string][]port.SnapshotObject{
			"heatmaps/sockshop/prod/carts/": {
				{
					Key:          "heatmaps/sockshop/prod/carts/2026/02/08/20260208T090400Z_heatmap.png",
					URL:          "https://example.com/1",
					LastModified: time.Date(2026, 2, 8, 9, 9, 0, 0, time.UTC),
				},
				{
					Key:          "heatmaps/sockshop/prod/carts/2026/02/08/20260208T090500Z_heatmap.svg",
					URL:          "https://example.com/2",
					LastModified: time.Date(2026, 2, 8, 9, 10, 0, 0, time.UTC),
				},
			},
		},
	}

	uc := NewListHeatmapSnapshotsUseCase(storage, nil, ListHeatmapSnapshotsConfig{
		KeyPrefix:    "heatmaps",
		DefaultLimit: 24,
		MaxLimit:     100,
	}, logger.New("error"))

	scope := mustScope(t, "sockshop", "prod", "carts")
	res, err := uc.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if storage.lastPrefix != "heatmaps/sockshop/prod/carts/" || storage.lastLimit != 24 {
		t.Fatalf("unexpected listing call: %s %d", storage.lastPrefix, storage.lastLimit)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if res.Items[0].Format != "svg" || res.Items[1].Format != "png" {
		t.Fatalf("expected newest (svg) first, got %s, %s", res.Items[0].Format, res.Items[1].Format)
	}
	if !res.Items[0].CapturedAt.Equal(time.Date(2026, 2, 8, 9, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected captured_at: %s", res.Items[0].CapturedAt)
	}

	filtered, err := uc.Execute(context.Background(), ListHeatmapSnapshotsCommand{
		Scope: scope,
		From:  time.Date(2026, 2, 8, 9, 4, 30, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(filtered.Items) != 1 {
		t.Fatalf("expected time filter to keep 1 item, got %d", len(filtered.Items))
	}

	pngOnly, err := uc.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope, Format: "PNG"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(pngOnly.Items) != 1 || pngOnly.Items[0].Format != "png" {
		t.Fatalf("expected format filter to keep png only, got %+v", pngOnly.Items)
	}

	if _, err := uc.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope, Format: "gif"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestListHeatmapSnapshotsUseCase_MetadataIndex(t *testing.T) {
	storage := &mockSnapshotStorage{}
	meta := &mockSnapshotMetadataRepository{
		page: port.SnapshotListPage{
			Items: []port.SnapshotMetadata{
				{Format: "png", S3Key: "a.png", CapturedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Format: "png", S3Key: "b.png", CapturedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
			},
			NextCursor: "next",
		},
	}
	uc := NewListHeatmapSnapshotsUseCase(storage, meta, ListHeatmapSnapshotsConfig{MaxLimit: 50}, logger.New("error"))

	scope := mustScope(t, "sockshop", "prod", "carts")
	res, err := uc.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope, Limit: 500, Cursor: " c1 "})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if meta.lastQuery.Limit != 50 || meta.lastQuery.Cursor != "c1" || meta.lastQuery.Service != "carts" {
		t.Fatalf("unexpected metadata query: %+v", meta.lastQuery)
	}
	if res.NextCursor != "next" || res.Items[0].S3Key != "b.png" {
		t.Fatalf("unexpected page: %+v", res)
	}
	if res.Items[0].URL != "https://signed.example.com/b.png" {
		t.Fatalf("expected regenerated URL, got %s", res.Items[0].URL)
	}
}

func TestListHeatmapSnapshotsUseCase_IndexFailure(t *testing.T) {
	scope := mustScope(t, "sockshop", "prod", "carts")
	meta := &mockSnapshotMetadataRepository{listErr: errBoom}

	strict := NewListHeatmapSnapshotsUseCase(&mockSnapshotStorage{}, meta, ListHeatmapSnapshotsConfig{}, logger.New("error"))
	if _, err := strict.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope}); !errors.Is(err, errBoom) {
		t.Fatalf("expected index error without fallback, got %v", err)
	}

	storage := &mockSnapshotStorage{}
	fallback := NewListHeatmapSnapshotsUseCase(storage, meta, ListHeatmapSnapshotsConfig{FallbackToS3OnError: true}, logger.New("error"))
	if _, err := fallback.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope}); err != nil {
		t.Fatalf("expected S3 fallback, got %v", err)
	}
	if storage.lastPrefix != "heatmaps/sockshop/prod/carts/" {
		t.Fatalf("fallback used unexpected prefix %s", storage.lastPrefix)
	}

	if _, err := fallback.Execute(context.Background(), ListHeatmapSnapshotsCommand{Scope: scope, Cursor: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected cursor error in S3 mode, got %v", err)
	}

	if _, err := fallback.Execute(context.Background(), ListHeatmapSnapshotsCommand{
		Scope: scope,
		From:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected range validation error, got %v", err)
	}
}
