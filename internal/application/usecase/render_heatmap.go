package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// RenderedHeatmap - результат рендеринга
type RenderedHeatmap struct {
	Body        []byte
	ContentType string
	Grid        *dto.GridDTO
}

// RenderHeatmapUseCase строит сетку и передает ее выбранному рендереру
type RenderHeatmapUseCase struct {
	grids     *BuildEvaluationGridUseCase
	renderers map[port.RenderFormat]port.HeatmapRenderer
	observer  port.GridObserver
	logger    *logger.Logger
}

// NewRenderHeatmapUseCase создает новый use case
func NewRenderHeatmapUseCase(
	grids *BuildEvaluationGridUseCase,
	renderers map[port.RenderFormat]port.HeatmapRenderer,
	observer port.GridObserver,
	logger *logger.Logger,
) *RenderHeatmapUseCase {
	if observer == nil {
		observer = port.NopGridObserver{}
	}
	return &RenderHeatmapUseCase{
		grids:     grids,
		renderers: renderers,
		observer:  observer,
		logger:    logger,
	}
}

// Supports сообщает, зарегистрирован ли рендерер для формата
func (uc *RenderHeatmapUseCase) Supports(format port.RenderFormat) bool {
	_, ok := uc.renderers[format]
	return ok
}

// Execute рендерит сетку сервиса. selection - выделенная вызывающим ячейка (может быть nil).
func (uc *RenderHeatmapUseCase) Execute(
	ctx context.Context,
	query GridQuery,
	format port.RenderFormat,
	selection *service.CellKey,
) (*RenderedHeatmap, error) {
	renderer, ok := uc.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	gridDTO, err := uc.grids.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	gridDTO.Select(selection)

	grid, err := gridDTO.ToGrid()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to restore grid: %w", ErrHistoryUnbuildable, err)
	}

	started := time.Now()
	body, err := renderer.Render(ctx, grid, service.ColorFor, selection)
	uc.observer.ObserveRender(string(format), len(body), time.Since(started), err)
	if err != nil {
		uc.logger.Error("Failed to render heatmap", err,
			"scope", query.Scope.Key(),
			"format", string(format))
		return nil, fmt.Errorf("failed to render %s heatmap: %w", format, err)
	}

	return &RenderedHeatmap{
		Body:        body,
		ContentType: renderer.ContentType(),
		Grid:        gridDTO,
	}, nil
}
