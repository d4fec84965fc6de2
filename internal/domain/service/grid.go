package service

import "github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"

// CellKey адресует ячейку heatmap по строке (метрика) и колонке (временная метка)
type CellKey struct {
	RowKey string
	ColKey string
}

// GridCell - одна ячейка heatmap
type GridCell struct {
	RowKey string
	ColKey string
	Result valueobject.ResultCategory
}

// Key возвращает адрес ячейки
func (c GridCell) Key() CellKey {
	return CellKey{RowKey: c.RowKey, ColKey: c.ColKey}
}

// Grid - нормализованная двумерная сетка результатов (view-model)
// Пересобирается целиком на каждый снимок истории
type Grid struct {
	Cells   []GridCell
	RowKeys []string
	ColKeys []string
}

// EmptyGrid возвращает пустую сетку с непустыми (не nil) срезами
func EmptyGrid() Grid {
	return Grid{
		Cells:   []GridCell{},
		RowKeys: []string{},
		ColKeys: []string{},
	}
}

// IsEmpty сообщает, что в сетке нет ячеек
func (g Grid) IsEmpty() bool {
	return len(g.Cells) == 0
}

// Lookup находит ячейку по ключу
func (g Grid) Lookup(key CellKey) (GridCell, bool) {
	for _, c := range g.Cells {
		if c.RowKey == key.RowKey && c.ColKey == key.ColKey {
			return c, true
		}
	}
	return GridCell{}, false
}

// Counts возвращает количество ячеек по каждой категории (для легенды)
func (g Grid) Counts() map[valueobject.ResultCategory]int {
	counts := make(map[valueobject.ResultCategory]int, 3)
	for _, rc := range valueobject.AllResultCategories() {
		counts[rc] = 0
	}
	for _, c := range g.Cells {
		counts[c.Result]++
	}
	return counts
}
