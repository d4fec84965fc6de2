package usecase

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type ListHeatmapSnapshotsCommand struct {
	Scope  valueobject.Scope
	Format string
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

type HeatmapSnapshotListItem struct {
	Format       string
	S3Key        string
	URL          string
	CapturedAt   time.Time
	LastModified time.Time
}

type ListHeatmapSnapshotsResult struct {
	Items      []HeatmapSnapshotListItem
	NextCursor string
}

type ListHeatmapSnapshotsConfig struct {
	KeyPrefix           string
	DefaultLimit        int
	MaxLimit            int
	FallbackToS3OnError bool
}

// ListHeatmapSnapshotsUseCase возвращает архивные снимки сервиса
type ListHeatmapSnapshotsUseCase struct {
	storage            port.SnapshotStorage
	metadataRepository port.SnapshotMetadataRepository
	config             ListHeatmapSnapshotsConfig
	logger             *logger.Logger
}

func NewListHeatmapSnapshotsUseCase(
	storage port.SnapshotStorage,
	metadataRepository port.SnapshotMetadataRepository,
	config ListHeatmapSnapshotsConfig,
	log *logger.Logger,
) *ListHeatmapSnapshotsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 24
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListHeatmapSnapshotsUseCase{
		storage:            storage,
		metadataRepository: metadataRepository,
		config:             config,
		logger:             log,
	}
}

func (uc *ListHeatmapSnapshotsUseCase) Execute(
	ctx context.Context,
	cmd ListHeatmapSnapshotsCommand,
) (*ListHeatmapSnapshotsResult, error) {
	if cmd.Scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	if !cmd.From.IsZero() && !cmd.To.IsZero() && cmd.From.After(cmd.To) {
		return nil, fmt.Errorf("%w: from must be less than or equal to to", ErrInvalidInput)
	}

	format := strings.ToLower(strings.TrimSpace(cmd.Format))
	if format != "" {
		if _, ok := archiveFormats[port.RenderFormat(format)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
	}

	query := port.SnapshotListQuery{
		Project: cmd.Scope.Project(),
		Stage:   cmd.Scope.Stage(),
		Service: cmd.Scope.Service(),
		Format:  format,
		Limit:   limit,
		Cursor:  strings.TrimSpace(cmd.Cursor),
		From:    cmd.From.UTC(),
		To:      cmd.To.UTC(),
	}

	if uc.metadataRepository != nil {
		page, err := uc.metadataRepository.ListByScope(ctx, query)
		if err == nil {
			return uc.mapMetadataPage(ctx, page), nil
		}

		if !uc.config.FallbackToS3OnError {
			return nil, fmt.Errorf("failed to list snapshots via metadata index: %w", err)
		}

		uc.logger.Warn("Snapshot metadata index is unavailable, using S3 fallback",
			"scope", cmd.Scope.Key(),
			"error", err.Error(),
		)
	}

	return uc.listFromS3(ctx, cmd.Scope, query)
}

func (uc *ListHeatmapSnapshotsUseCase) mapMetadataPage(
	ctx context.Context,
	page port.SnapshotListPage,
) *ListHeatmapSnapshotsResult {
	items := make([]HeatmapSnapshotListItem, 0, len(page.Items))
	for _, record := range page.Items {
		url := record.URL
		if uc.storage != nil {
			if generatedURL, err := uc.storage.GetObjectURL(ctx, record.S3Key); err == nil {
				url = generatedURL
			}
		}

		items = append(items, HeatmapSnapshotListItem{
			Format:       record.Format,
			S3Key:        record.S3Key,
			URL:          url,
			CapturedAt:   record.CapturedAt.UTC(),
			LastModified: record.CapturedAt.UTC(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CapturedAt.After(items[j].CapturedAt)
	})

	return &ListHeatmapSnapshotsResult{
		Items:      items,
		NextCursor: page.NextCursor,
	}
}

func (uc *ListHeatmapSnapshotsUseCase) listFromS3(
	ctx context.Context,
	scope valueobject.Scope,
	query port.SnapshotListQuery,
) (*ListHeatmapSnapshotsResult, error) {
	if uc.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if query.Cursor != "" {
		return nil, fmt.Errorf("%w: cursor pagination requires snapshot metadata index", ErrInvalidInput)
	}

	prefix := fmt.Sprintf("%s/%s/", snapshotPrefix(uc.config.KeyPrefix), scope.Path())
	objects, err := uc.storage.ListObjects(ctx, prefix, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	filtered := make([]HeatmapSnapshotListItem, 0, len(objects))
	for _, object := range objects {
		item := HeatmapSnapshotListItem{
			Format:       inferSnapshotFormat(object.Key),
			S3Key:        object.Key,
			URL:          object.URL,
			CapturedAt:   inferCapturedAt(object.Key),
			LastModified: object.LastModified.UTC(),
		}

		if query.Format != "" && item.Format != query.Format {
			continue
		}
		if !query.From.IsZero() && item.CapturedAt.Before(query.From) {
			continue
		}
		if !query.To.IsZero() && item.CapturedAt.After(query.To) {
			continue
		}

		filtered = append(filtered, item)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].LastModified.After(filtered[j].LastModified)
	})

	if len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
	}

	return &ListHeatmapSnapshotsResult{
		Items:      filtered,
		NextCursor: "",
	}, nil
}

// inferSnapshotFormat разбирает <ts>_heatmap.<ext>
func inferSnapshotFormat(key string) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(key)), ".")
	for _, known := range archiveFormats {
		if ext == known {
			return ext
		}
	}
	return "unknown"
}

func inferCapturedAt(key string) time.Time {
	filename := path.Base(strings.TrimSpace(key))
	if filename == "" || filename == "." {
		return time.Time{}
	}

	underscore := strings.IndexRune(filename, '_')
	if underscore <= 0 {
		return time.Time{}
	}

	capturedAt, err := time.Parse(snapshotTimestampLayout, filename[:underscore])
	if err != nil {
		return time.Time{}
	}
	return capturedAt.UTC()
}
