package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/view"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// DashboardHandler обрабатывает запросы к странице heatmap
type DashboardHandler struct {
	renderHeatmapUC  *usecase.RenderHeatmapUseCase
	defaultCanonical bool
	logger           *logger.Logger
}

// NewDashboardHandler создает новый handler
func NewDashboardHandler(
	renderHeatmapUC *usecase.RenderHeatmapUseCase,
	defaultCanonical bool,
	logger *logger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		renderHeatmapUC:  renderHeatmapUC,
		defaultCanonical: defaultCanonical,
		logger:           logger,
	}
}

// ShowDashboard отображает heatmap выбранного сервиса
func (h *DashboardHandler) ShowDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	page := view.DashboardPage{
		Project:   q.Get("project"),
		Stage:     q.Get("stage"),
		Service:   q.Get("service"),
		Canonical: h.defaultCanonical,
	}

	status := http.StatusOK
	var heatmap templ.Component

	if page.Project != "" || page.Stage != "" || page.Service != "" {
		query, err := parseGridQuery(q, h.defaultCanonical)
		if err == nil {
			page.Limit = query.Limit
			page.Canonical = query.Canonical
		}
		selection, selErr := parseSelection(q)
		if err == nil {
			err = selErr
		}

		if err != nil {
			page.Error = err.Error()
			status = http.StatusBadRequest
		} else {
			page.HasScope = true
			rendered, err := h.renderHeatmapUC.Execute(r.Context(), query, port.FormatHTML, selection)
			switch {
			case err == nil:
				heatmap = templ.Raw(string(rendered.Body))
			case usecase.IsValidationError(err):
				page.Error = err.Error()
				status = http.StatusBadRequest
			default:
				h.logger.Error("Failed to render heatmap page", err, "scope", query.Scope.Key())
				page.Error = "Failed to load evaluations"
				status = http.StatusInternalServerError
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := view.Dashboard(page, heatmap).Render(r.Context(), w); err != nil {
		h.logger.Error("Failed to render dashboard", err)
	}
}
