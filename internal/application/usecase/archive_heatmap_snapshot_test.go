package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockSnapshotStorage struct {
	calls           []putCall
	errAt           map[string]error
	objectsByPrefix map[string][]port.SnapshotObject
	listErr         error
	lastPrefix      string
	lastLimit       int
}

func (m *mockSnapshotStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	for suffix, err := range m.errAt {
		if strings.HasSuffix(key, suffix) {
			return "", err
		}
	}
	return "https://example.com/" + key, nil
}

func (m *mockSnapshotStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (m *mockSnapshotStorage) ListObjects(_ context.Context, prefix string, limit int) ([]port.SnapshotObject, error) {
	m.lastPrefix = prefix
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objectsByPrefix[prefix], nil
}

type mockSnapshotMetadataRepository struct {
	put       []port.SnapshotMetadata
	putErr    error
	page      port.SnapshotListPage
	listErr   error
	lastQuery port.SnapshotListQuery
}

func (m *mockSnapshotMetadataRepository) PutBatch(_ context.Context, records []port.SnapshotMetadata) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.put = append(m.put, records...)
	return nil
}

func (m *mockSnapshotMetadataRepository) ListByScope(_ context.Context, query port.SnapshotListQuery) (port.SnapshotListPage, error) {
	m.lastQuery = query
	if m.listErr != nil {
		return port.SnapshotListPage{}, m.listErr
	}
	return m.page, nil
}

func newArchive(t *testing.T, storage port.SnapshotStorage, meta port.SnapshotMetadataRepository, strict bool) (*ArchiveHeatmapSnapshotUseCase, valueobject.Scope) {
	t.Helper()
	scope := mustScope(t, "sockshop", "prod", "carts")
	repo := &memoryRepository{}
	_ = repo.Save(context.Background(), mustRecord(t, scope, baseTime,
		entity.IndicatorResult{Metric: "score", Result: valueobject.Passed}))

	renderer := NewRenderHeatmapUseCase(
		newGridUseCase(repo, nil),
		map[port.RenderFormat]port.HeatmapRenderer{
			port.FormatPNG: &stubRenderer{contentType: "image/png"},
			port.FormatSVG: &stubRenderer{contentType: "image/svg+xml"},
		},
		nil,
		logger.New("error"),
	)

	uc := NewArchiveHeatmapSnapshotUseCase(renderer, storage, meta, ArchiveHeatmapSnapshotConfig{
		KeyPrefix:           "heatmaps",
		MetadataTTLDays:     7,
		MetadataWriteStrict: strict,
	}, logger.New("error"))
	return uc, scope
}

func TestArchiveHeatmapSnapshotUseCase_Success(t *testing.T) {
	storage := &mockSnapshotStorage{}
	meta := &mockSnapshotMetadataRepository{}
	uc, scope := newArchive(t, storage, meta, false)

	capturedAt := time.Date(2026, 2, 7, 12, 34, 56, 0, time.UTC)
	res, err := uc.Execute(context.Background(), ArchiveHeatmapSnapshotCommand{
		Scope:      scope,
		Formats:    []port.RenderFormat{port.FormatPNG, port.FormatSVG},
		CapturedAt: capturedAt,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(res.Items) != 2 || len(storage.calls) != 2 {
		t.Fatalf("expected 2 uploads, got %d items / %d calls", len(res.Items), len(storage.calls))
	}
	wantPNG := "heatmaps/sockshop/prod/carts/2026/02/07/20260207T123456Z_heatmap.png"
	if res.Items[0].S3Key != wantPNG {
		t.Fatalf("unexpected key: %s", res.Items[0].S3Key)
	}
	if storage.calls[1].contentType != "image/svg+xml" || !strings.HasSuffix(storage.calls[1].key, "_heatmap.svg") {
		t.Fatalf("unexpected svg upload: %+v", storage.calls[1])
	}
	if res.Rows != 1 || res.Columns != 1 {
		t.Fatalf("unexpected grid size %dx%d", res.Rows, res.Columns)
	}

	if len(meta.put) != 2 {
		t.Fatalf("expected 2 metadata records, got %d", len(meta.put))
	}
	if !meta.put[0].ExpiresAt.Equal(capturedAt.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry: %s", meta.put[0].ExpiresAt)
	}
}

func TestArchiveHeatmapSnapshotUseCase_Validation(t *testing.T) {
	uc, scope := newArchive(t, &mockSnapshotStorage{}, nil, false)

	tests := []struct {
		name    string
		cmd     ArchiveHeatmapSnapshotCommand
		wantErr error
	}{
		{name: "missing scope", cmd: ArchiveHeatmapSnapshotCommand{}, wantErr: valueobject.ErrInvalidScope},
		{name: "html not archivable", cmd: ArchiveHeatmapSnapshotCommand{Scope: scope, Formats: []port.RenderFormat{port.FormatHTML}}, wantErr: ErrUnsupportedFormat},
		{name: "duplicate format", cmd: ArchiveHeatmapSnapshotCommand{Scope: scope, Formats: []port.RenderFormat{port.FormatPNG, port.FormatPNG}}, wantErr: ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	noStorage, _ := newArchive(t, nil, nil, false)
	if _, err := noStorage.Execute(context.Background(), ArchiveHeatmapSnapshotCommand{Scope: scope}); !errors.Is(err, ErrStorageNotConfigured) {
		t.Fatalf("expected ErrStorageNotConfigured, got %v", err)
	}
}

func TestArchiveHeatmapSnapshotUseCase_MetadataWriteModes(t *testing.T) {
	lenientMeta := &mockSnapshotMetadataRepository{putErr: errBoom}
	lenient, scope := newArchive(t, &mockSnapshotStorage{}, lenientMeta, false)
	if _, err := lenient.Execute(context.Background(), ArchiveHeatmapSnapshotCommand{Scope: scope}); err != nil {
		t.Fatalf("lenient mode must ignore index errors, got %v", err)
	}

	strictMeta := &mockSnapshotMetadataRepository{putErr: errBoom}
	strict, _ := newArchive(t, &mockSnapshotStorage{}, strictMeta, true)
	if _, err := strict.Execute(context.Background(), ArchiveHeatmapSnapshotCommand{Scope: scope}); !errors.Is(err, errBoom) {
		t.Fatalf("strict mode must surface index errors, got %v", err)
	}
}

func TestArchiveHeatmapSnapshotUseCase_UploadError(t *testing.T) {
	storage := &mockSnapshotStorage{errAt: map[string]error{".png": errBoom}}
	uc, scope := newArchive(t, storage, nil, false)

	_, err := uc.Execute(context.Background(), ArchiveHeatmapSnapshotCommand{Scope: scope})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected upload error, got %v", err)
	}
}
