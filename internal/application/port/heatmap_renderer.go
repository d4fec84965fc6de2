package port

import (
	"context"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
)

// RenderFormat определяет формат вывода heatmap.
type RenderFormat string

const (
	FormatPNG      RenderFormat = "png"
	FormatSVG      RenderFormat = "svg"
	FormatHTML     RenderFormat = "html"
	FormatTerminal RenderFormat = "terminal"
)

// HeatmapRenderer рисует сетку. Цвет ячейки берется только из colorFor,
// подсказка - из service.DescribeCell. Выделение принадлежит вызывающему:
// selection == nil означает отсутствие выделенной ячейки.
type HeatmapRenderer interface {
	Render(ctx context.Context, grid service.Grid, colorFor service.ColorFunc, selection *service.CellKey) ([]byte, error)

	// ContentType возвращает MIME-тип результата
	ContentType() string
}
