package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type SnapshotAPIHandler struct {
	archiveUC       *usecase.ArchiveHeatmapSnapshotUseCase
	listUC          *usecase.ListHeatmapSnapshotsUseCase
	logger          *logger.Logger
	maxPayloadBytes int64
}

type snapshotRequest struct {
	Project    string    `json:"project"`
	Stage      string    `json:"stage"`
	Service    string    `json:"service"`
	Limit      int       `json:"limit"`
	Formats    []string  `json:"formats"`
	CapturedAt time.Time `json:"captured_at"`
}

type snapshotResponse struct {
	SavedAt time.Time              `json:"saved_at"`
	Rows    int                    `json:"rows"`
	Columns int                    `json:"columns"`
	Items   []snapshotResponseItem `json:"items"`
}

type snapshotResponseItem struct {
	Format string `json:"format"`
	S3Key  string `json:"s3_key"`
	URL    string `json:"url"`
	Size   int    `json:"size"`
}

type snapshotListResponse struct {
	Items      []snapshotListItem `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type snapshotListItem struct {
	Format       string    `json:"format"`
	S3Key        string    `json:"s3_key"`
	URL          string    `json:"url"`
	CapturedAt   time.Time `json:"captured_at"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

func NewSnapshotAPIHandler(
	archiveUC *usecase.ArchiveHeatmapSnapshotUseCase,
	listUC *usecase.ListHeatmapSnapshotsUseCase,
	maxPayloadBytes int64,
	log *logger.Logger,
) *SnapshotAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 64 * 1024
	}

	return &SnapshotAPIHandler{
		archiveUC:       archiveUC,
		listUC:          listUC,
		logger:          log,
		maxPayloadBytes: maxPayloadBytes,
	}
}

// HandleSnapshots: POST архивирует heatmap, GET возвращает список архивных снимков
func (h *SnapshotAPIHandler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ArchiveSnapshot(w, r)
	case http.MethodGet:
		h.ListSnapshots(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SnapshotAPIHandler) ArchiveSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	defer r.Body.Close()

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	scope, err := valueobject.NewScope(req.Project, req.Stage, req.Service)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	formats := make([]port.RenderFormat, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, port.RenderFormat(strings.ToLower(strings.TrimSpace(f))))
	}

	result, err := h.archiveUC.Execute(r.Context(), usecase.ArchiveHeatmapSnapshotCommand{
		Scope:      scope,
		Limit:      req.Limit,
		Formats:    formats,
		CapturedAt: req.CapturedAt,
	})
	if err != nil {
		h.writeSnapshotError(w, "Failed to archive heatmap snapshot", err, "scope", scope.Key())
		return
	}

	items := make([]snapshotResponseItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, snapshotResponseItem{
			Format: item.Format,
			S3Key:  item.S3Key,
			URL:    item.URL,
			Size:   item.Size,
		})
	}

	middleware.WriteJSON(w, http.StatusCreated, snapshotResponse{
		SavedAt: result.SavedAt,
		Rows:    result.Rows,
		Columns: result.Columns,
		Items:   items,
	})
}

func (h *SnapshotAPIHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope, err := parseScope(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := usecase.ListHeatmapSnapshotsCommand{
		Scope:  scope,
		Format: q.Get("format"),
		Cursor: q.Get("cursor"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		cmd.Limit = limit
	}
	if cmd.From, err = parseOptionalTime(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "from must be RFC3339")
		return
	}
	if cmd.To, err = parseOptionalTime(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "to must be RFC3339")
		return
	}

	result, err := h.listUC.Execute(r.Context(), cmd)
	if err != nil {
		h.writeSnapshotError(w, "Failed to list heatmap snapshots", err, "scope", scope.Key())
		return
	}

	items := make([]snapshotListItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, snapshotListItem{
			Format:       item.Format,
			S3Key:        item.S3Key,
			URL:          item.URL,
			CapturedAt:   item.CapturedAt,
			LastModified: item.LastModified,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, snapshotListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func (h *SnapshotAPIHandler) writeSnapshotError(w http.ResponseWriter, msg string, err error, args ...interface{}) {
	switch {
	case errors.Is(err, usecase.ErrStorageNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case usecase.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, err, args...)
		writeError(w, http.StatusBadGateway, msg)
	}
}

func parseOptionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
