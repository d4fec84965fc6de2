package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// EvaluationAPIHandler обрабатывает API запросы heatmap-сетки
type EvaluationAPIHandler struct {
	buildGridUC      *usecase.BuildEvaluationGridUseCase
	renderHeatmapUC  *usecase.RenderHeatmapUseCase
	ingestUC         *usecase.IngestEvaluationUseCase
	defaultCanonical bool
	maxIngestBytes   int64
	logger           *logger.Logger
}

// cellResponse - ответ на запрос подсказки ячейки
type cellResponse struct {
	Row     string `json:"row"`
	Col     string `json:"col"`
	Result  string `json:"result"`
	Color   string `json:"color"`
	Tooltip string `json:"tooltip"`
}

// ingestResponse - ответ на прием оценки
type ingestResponse struct {
	Evaluation *dto.EvaluationSummaryDTO `json:"evaluation"`
	Duplicate  bool                      `json:"duplicate"`
	Grid       *dto.GridDTO              `json:"grid,omitempty"`
}

// NewEvaluationAPIHandler создает новый handler
func NewEvaluationAPIHandler(
	buildGridUC *usecase.BuildEvaluationGridUseCase,
	renderHeatmapUC *usecase.RenderHeatmapUseCase,
	ingestUC *usecase.IngestEvaluationUseCase,
	defaultCanonical bool,
	maxIngestBytes int64,
	logger *logger.Logger,
) *EvaluationAPIHandler {
	if maxIngestBytes <= 0 {
		maxIngestBytes = 1024 * 1024
	}
	return &EvaluationAPIHandler{
		buildGridUC:      buildGridUC,
		renderHeatmapUC:  renderHeatmapUC,
		ingestUC:         ingestUC,
		defaultCanonical: defaultCanonical,
		maxIngestBytes:   maxIngestBytes,
		logger:           logger,
	}
}

// GetGrid возвращает сетку сервиса в JSON
func (h *EvaluationAPIHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query, err := parseGridQuery(r.URL.Query(), h.defaultCanonical)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	selection, err := parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grid, err := h.buildGridUC.Execute(r.Context(), query)
	if err != nil {
		h.writeUseCaseError(w, "Failed to build evaluation grid", err)
		return
	}
	grid.Select(selection)

	middleware.WriteJSON(w, http.StatusOK, grid)
}

// GetCell возвращает подсказку для ячейки row/col; 404, если ячейки нет
func (h *EvaluationAPIHandler) GetCell(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	row, col := q.Get("row"), q.Get("col")
	if row == "" || col == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters: row, col")
		return
	}

	query, err := parseGridQuery(q, h.defaultCanonical)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grid, err := h.buildGridUC.Execute(r.Context(), query)
	if err != nil {
		h.writeUseCaseError(w, "Failed to build evaluation grid", err)
		return
	}

	for _, cell := range grid.Cells {
		if cell.Row == row && cell.Col == col {
			middleware.WriteJSON(w, http.StatusOK, cellResponse{
				Row:     cell.Row,
				Col:     cell.Col,
				Result:  cell.Result,
				Color:   cell.Color,
				Tooltip: cell.Tooltip,
			})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Cell not found")
}

// Heatmap возвращает handler, рендерящий сетку в заданном формате
func (h *EvaluationAPIHandler) Heatmap(format port.RenderFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query, err := parseGridQuery(r.URL.Query(), h.defaultCanonical)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		selection, err := parseSelection(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		rendered, err := h.renderHeatmapUC.Execute(r.Context(), query, format, selection)
		if err != nil {
			h.writeUseCaseError(w, "Failed to render heatmap", err)
			return
		}

		w.Header().Set("Content-Type", rendered.ContentType)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rendered.Body)
	}
}

// Ingest принимает событие завершения оценки
func (h *EvaluationAPIHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxIngestBytes)
	defer r.Body.Close()

	var event dto.EvaluationEventDTO
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ingestUC.Execute(r.Context(), &event)
	if err != nil {
		h.writeUseCaseError(w, "Failed to ingest evaluation", err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	middleware.WriteJSON(w, status, ingestResponse{
		Evaluation: result.Evaluation,
		Duplicate:  result.Duplicate,
		Grid:       result.Grid,
	})
}

func (h *EvaluationAPIHandler) writeUseCaseError(w http.ResponseWriter, msg string, err error) {
	if usecase.IsValidationError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(msg, err)
	writeError(w, http.StatusInternalServerError, msg)
}
