package render

import "github.com/dreschagin/evaluation-dashboard/internal/domain/service"

// cellIndex maps (row, col) to the cell for row-major iteration over RowKeys x ColKeys.
type cellIndex map[service.CellKey]service.GridCell

func indexCells(grid service.Grid) cellIndex {
	idx := make(cellIndex, len(grid.Cells))
	for _, c := range grid.Cells {
		idx[c.Key()] = c
	}
	return idx
}

func (idx cellIndex) at(row, col string) (service.GridCell, bool) {
	c, ok := idx[service.CellKey{RowKey: row, ColKey: col}]
	return c, ok
}

func isSelected(selection *service.CellKey, row, col string) bool {
	return selection != nil && selection.RowKey == row && selection.ColKey == col
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
