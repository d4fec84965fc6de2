package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

func TestRenderHeatmapUseCase_PassesSelectionAndPalette(t *testing.T) {
	scope := mustScope(t, "sockshop", "dev", "carts")
	repo := &memoryRepository{}
	_ = repo.Save(context.Background(), mustRecord(t, scope, baseTime,
		entity.IndicatorResult{Metric: "score", Result: valueobject.Passed},
		entity.IndicatorResult{Metric: "p95", Result: valueobject.Failed},
	))

	png := &stubRenderer{contentType: "image/png"}
	uc := NewRenderHeatmapUseCase(
		newGridUseCase(repo, nil),
		map[port.RenderFormat]port.HeatmapRenderer{port.FormatPNG: png},
		nil,
		logger.New("error"),
	)

	col := baseTime.Format(time.RFC3339)
	selection := &service.CellKey{RowKey: "p95", ColKey: col}
	out, err := uc.Execute(context.Background(), GridQuery{Scope: scope}, port.FormatPNG, selection)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if out.ContentType != "image/png" {
		t.Fatalf("unexpected content type %s", out.ContentType)
	}
	if string(out.Body) != "#7dc540#dc172a" {
		t.Fatalf("renderer did not receive palette colors: %s", out.Body)
	}
	if len(png.calls) != 1 || png.calls[0].selection != selection {
		t.Fatalf("selection was not passed through")
	}
	if out.Grid.Selected == nil || out.Grid.Selected.Row != "p95" {
		t.Fatalf("expected selected cell in grid DTO, got %+v", out.Grid.Selected)
	}
}

func TestRenderHeatmapUseCase_Errors(t *testing.T) {
	scope := mustScope(t, "sockshop", "dev", "carts")
	failing := &stubRenderer{contentType: "image/svg+xml", err: errBoom}
	uc := NewRenderHeatmapUseCase(
		newGridUseCase(&memoryRepository{}, nil),
		map[port.RenderFormat]port.HeatmapRenderer{port.FormatSVG: failing},
		nil,
		logger.New("error"),
	)

	if _, err := uc.Execute(context.Background(), GridQuery{Scope: scope}, port.FormatPNG, nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if uc.Supports(port.FormatPNG) || !uc.Supports(port.FormatSVG) {
		t.Fatalf("unexpected Supports() result")
	}
	if _, err := uc.Execute(context.Background(), GridQuery{Scope: scope}, port.FormatSVG, nil); !errors.Is(err, errBoom) {
		t.Fatalf("expected renderer error, got %v", err)
	}
}
