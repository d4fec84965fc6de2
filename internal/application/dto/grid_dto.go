package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// GridDTO представляет heatmap-сетку для передачи клиентам (JSON API, WebSocket, кеш)
type GridDTO struct {
	Project     string           `json:"project"`
	Stage       string           `json:"stage"`
	Service     string           `json:"service"`
	RowKeys     []string         `json:"row_keys"`
	ColKeys     []string         `json:"col_keys"`
	Cells       []GridCellDTO    `json:"cells"`
	Legend      []LegendEntryDTO `json:"legend"`
	Counts      map[string]int   `json:"counts"`
	Selected    *CellKeyDTO      `json:"selected,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// GridCellDTO - ячейка сетки с готовым цветом и подсказкой
type GridCellDTO struct {
	Row      string `json:"row"`
	Col      string `json:"col"`
	Result   string `json:"result"`
	Value    int    `json:"value"` // 0 - failed, 1 - warning, 2 - passed
	Color    string `json:"color"`
	Tooltip  string `json:"tooltip"`
	Selected bool   `json:"selected,omitempty"`
}

// LegendEntryDTO - элемент легенды
type LegendEntryDTO struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// CellKeyDTO - адрес выделенной ячейки
type CellKeyDTO struct {
	Row string `json:"row"`
	Col string `json:"col"`
}

// NewGridDTO конвертирует доменную сетку в DTO.
// Цвет каждой ячейки берется из colorFor; selection может быть nil.
func NewGridDTO(
	scope valueobject.Scope,
	grid service.Grid,
	colorFor service.ColorFunc,
	selection *service.CellKey,
) (*GridDTO, error) {
	out := &GridDTO{
		Project:     scope.Project(),
		Stage:       scope.Stage(),
		Service:     scope.Service(),
		RowKeys:     append([]string{}, grid.RowKeys...),
		ColKeys:     append([]string{}, grid.ColKeys...),
		Cells:       make([]GridCellDTO, 0, len(grid.Cells)),
		Legend:      make([]LegendEntryDTO, 0, 3),
		Counts:      make(map[string]int, 3),
		GeneratedAt: time.Now().UTC(),
	}

	for _, cell := range grid.Cells {
		color, err := colorFor(cell.Result)
		if err != nil {
			return nil, fmt.Errorf("cell %s/%s: %w", cell.RowKey, cell.ColKey, err)
		}

		out.Cells = append(out.Cells, GridCellDTO{
			Row:     cell.RowKey,
			Col:     cell.ColKey,
			Result:  cell.Result.WireValue(),
			Value:   int(cell.Result),
			Color:   color.Hex(),
			Tooltip: service.DescribeCell(cell),
		})
	}

	for _, entry := range service.Legend() {
		color, err := colorFor(entry.Result)
		if err != nil {
			return nil, err
		}
		out.Legend = append(out.Legend, LegendEntryDTO{
			Label: entry.Label,
			Value: int(entry.Result),
			Color: color.Hex(),
		})
	}

	for rc, n := range grid.Counts() {
		out.Counts[rc.WireValue()] = n
	}

	out.Select(selection)
	return out, nil
}

// Clone возвращает независимую копию сетки: Select на копии не меняет оригинал
func (g *GridDTO) Clone() *GridDTO {
	if g == nil {
		return nil
	}
	out := *g
	out.RowKeys = cloneSlice(g.RowKeys)
	out.ColKeys = cloneSlice(g.ColKeys)
	out.Cells = cloneSlice(g.Cells)
	out.Legend = cloneSlice(g.Legend)
	out.Counts = make(map[string]int, len(g.Counts))
	for k, v := range g.Counts {
		out.Counts[k] = v
	}
	if g.Selected != nil {
		selected := *g.Selected
		out.Selected = &selected
	}
	return &out
}

// Select отмечает выделенную ячейку. Возвращает false, если ячейки нет в сетке.
// Выделение не сохраняется в кеше: каждый запрос передает свое.
func (g *GridDTO) Select(selection *service.CellKey) bool {
	g.Selected = nil
	found := false
	for i := range g.Cells {
		g.Cells[i].Selected = selection != nil &&
			g.Cells[i].Row == selection.RowKey && g.Cells[i].Col == selection.ColKey
		if g.Cells[i].Selected {
			found = true
		}
	}
	if found {
		g.Selected = &CellKeyDTO{Row: selection.RowKey, Col: selection.ColKey}
	}
	return found
}

// ToGrid восстанавливает доменную сетку (например, из кеша) для рендереров
func (g *GridDTO) ToGrid() (service.Grid, error) {
	grid := service.EmptyGrid()
	grid.RowKeys = append(grid.RowKeys, g.RowKeys...)
	grid.ColKeys = append(grid.ColKeys, g.ColKeys...)

	for _, c := range g.Cells {
		rc := valueobject.ResultCategory(c.Value)
		if err := rc.Validate(); err != nil {
			return service.EmptyGrid(), fmt.Errorf("cell %s/%s: %w", c.Row, c.Col, err)
		}
		grid.Cells = append(grid.Cells, service.GridCell{
			RowKey: c.Row,
			ColKey: c.Col,
			Result: rc,
		})
	}
	return grid, nil
}

// Scope возвращает сервис сетки
func (g *GridDTO) Scope() (valueobject.Scope, error) {
	return valueobject.NewScope(g.Project, g.Stage, g.Service)
}

// cloneSlice сохраняет различие nil и пустого среза (null и [] в JSON)
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
