package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

const snapshotTimestampLayout = "20060102T150405Z"

var archiveFormats = map[port.RenderFormat]string{
	port.FormatPNG: "png",
	port.FormatSVG: "svg",
}

type ArchiveHeatmapSnapshotCommand struct {
	Scope      valueobject.Scope
	Limit      int
	Formats    []port.RenderFormat
	CapturedAt time.Time
}

type ArchivedSnapshotItem struct {
	Format string
	S3Key  string
	URL    string
	Size   int
}

type ArchiveHeatmapSnapshotResult struct {
	SavedAt time.Time
	Rows    int
	Columns int
	Items   []ArchivedSnapshotItem
}

type ArchiveHeatmapSnapshotConfig struct {
	KeyPrefix           string
	MetadataTTLDays     int
	MetadataWriteStrict bool
	Canonical           bool
}

// ArchiveHeatmapSnapshotUseCase рендерит heatmap и сохраняет снимок в S3 с индексом в DynamoDB
type ArchiveHeatmapSnapshotUseCase struct {
	renderer           *RenderHeatmapUseCase
	storage            port.SnapshotStorage
	metadataRepository port.SnapshotMetadataRepository
	config             ArchiveHeatmapSnapshotConfig
	logger             *logger.Logger
}

func NewArchiveHeatmapSnapshotUseCase(
	renderer *RenderHeatmapUseCase,
	storage port.SnapshotStorage,
	metadataRepository port.SnapshotMetadataRepository,
	config ArchiveHeatmapSnapshotConfig,
	log *logger.Logger,
) *ArchiveHeatmapSnapshotUseCase {
	return &ArchiveHeatmapSnapshotUseCase{
		renderer:           renderer,
		storage:            storage,
		metadataRepository: metadataRepository,
		config:             config,
		logger:             log,
	}
}

func (uc *ArchiveHeatmapSnapshotUseCase) Execute(
	ctx context.Context,
	cmd ArchiveHeatmapSnapshotCommand,
) (*ArchiveHeatmapSnapshotResult, error) {
	if uc.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if cmd.Scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}

	formats := cmd.Formats
	if len(formats) == 0 {
		formats = []port.RenderFormat{port.FormatPNG}
	}
	seen := make(map[port.RenderFormat]struct{}, len(formats))
	for _, f := range formats {
		if _, ok := archiveFormats[f]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("%w: duplicate format %s", ErrInvalidInput, f)
		}
		seen[f] = struct{}{}
	}

	capturedAt := cmd.CapturedAt.UTC()
	if cmd.CapturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	query := GridQuery{Scope: cmd.Scope, Limit: cmd.Limit, Canonical: uc.config.Canonical}
	result := &ArchiveHeatmapSnapshotResult{Items: make([]ArchivedSnapshotItem, 0, len(formats))}
	metadata := make([]port.SnapshotMetadata, 0, len(formats))

	for _, format := range formats {
		rendered, err := uc.renderer.Execute(ctx, query, format, nil)
		if err != nil {
			return nil, err
		}
		result.Rows = len(rendered.Grid.RowKeys)
		result.Columns = len(rendered.Grid.ColKeys)

		key := uc.buildS3Key(cmd.Scope, capturedAt, archiveFormats[format])
		url, err := uc.storage.PutObject(ctx, key, rendered.ContentType, rendered.Body)
		if err != nil {
			uc.logger.Error("Failed to upload heatmap snapshot", err,
				"scope", cmd.Scope.Key(),
				"format", string(format),
			)
			return nil, fmt.Errorf("failed to upload %s snapshot: %w", format, err)
		}

		result.Items = append(result.Items, ArchivedSnapshotItem{
			Format: string(format),
			S3Key:  key,
			URL:    url,
			Size:   len(rendered.Body),
		})
		metadata = append(metadata, port.SnapshotMetadata{
			Project:     cmd.Scope.Project(),
			Stage:       cmd.Scope.Stage(),
			Service:     cmd.Scope.Service(),
			Format:      string(format),
			S3Key:       key,
			URL:         url,
			ContentType: rendered.ContentType,
			SizeBytes:   int64(len(rendered.Body)),
			Rows:        result.Rows,
			Columns:     result.Columns,
			CapturedAt:  capturedAt,
			ExpiresAt:   uc.expiresAt(capturedAt),
		})
	}

	if err := uc.indexMetadata(ctx, cmd.Scope, metadata); err != nil {
		return nil, err
	}

	result.SavedAt = time.Now().UTC()
	uc.logger.Info("Heatmap snapshot archived",
		"scope", cmd.Scope.Key(),
		"items", len(result.Items),
		"rows", result.Rows,
		"columns", result.Columns)

	return result, nil
}

func (uc *ArchiveHeatmapSnapshotUseCase) indexMetadata(
	ctx context.Context,
	scope valueobject.Scope,
	records []port.SnapshotMetadata,
) error {
	if uc.metadataRepository == nil {
		return nil
	}

	err := uc.metadataRepository.PutBatch(ctx, records)
	if err == nil {
		return nil
	}

	if uc.config.MetadataWriteStrict {
		return fmt.Errorf("failed to index snapshot metadata: %w", err)
	}

	uc.logger.Warn("Snapshot metadata index write failed, objects are still listable via S3",
		"scope", scope.Key(),
		"error", err.Error(),
	)
	return nil
}

func (uc *ArchiveHeatmapSnapshotUseCase) expiresAt(capturedAt time.Time) time.Time {
	if uc.config.MetadataTTLDays <= 0 {
		return time.Time{}
	}
	return capturedAt.Add(time.Duration(uc.config.MetadataTTLDays) * 24 * time.Hour)
}

func (uc *ArchiveHeatmapSnapshotUseCase) buildS3Key(scope valueobject.Scope, capturedAt time.Time, ext string) string {
	timestamp := capturedAt.Format(snapshotTimestampLayout)
	datePrefix := capturedAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s/%s_heatmap.%s", snapshotPrefix(uc.config.KeyPrefix), scope.Path(), datePrefix, timestamp, ext)
}

func snapshotPrefix(configured string) string {
	prefix := strings.Trim(configured, "/")
	if prefix == "" {
		prefix = "heatmaps"
	}
	return prefix
}
