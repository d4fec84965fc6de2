package service

import (
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
)

// DefaultTimeLayout - формат метки колонки, если у записи нет явной метки
const DefaultTimeLayout = time.RFC3339

// GridBuilder строит heatmap-сетку из истории оценок (Domain Service)
// Чистая функция от входа: не хранит состояние между вызовами
type GridBuilder struct {
	canonicalRows []string
	timeLayout    string
	validator     *EvaluationValidator
}

// NewGridBuilder создает GridBuilder.
// canonicalRows задает фиксированный порядок известных метрик; неизвестные идут следом.
func NewGridBuilder(timeLayout string, canonicalRows ...string) *GridBuilder {
	if timeLayout == "" {
		timeLayout = DefaultTimeLayout
	}

	rows := make([]string, 0, len(canonicalRows))
	seen := make(map[string]struct{}, len(canonicalRows))
	for _, r := range canonicalRows {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		rows = append(rows, r)
	}

	return &GridBuilder{
		canonicalRows: rows,
		timeLayout:    timeLayout,
		validator:     NewEvaluationValidator(),
	}
}

// WithoutCanonicalOrder возвращает копию builder'а с порядком строк по первому появлению
func (b *GridBuilder) WithoutCanonicalOrder() *GridBuilder {
	return &GridBuilder{
		timeLayout: b.timeLayout,
		validator:  b.validator,
	}
}

// CanonicalRows возвращает канонический порядок строк
func (b *GridBuilder) CanonicalRows() []string {
	out := make([]string, len(b.canonicalRows))
	copy(out, b.canonicalRows)
	return out
}

// Build строит сетку. Вход считается хронологическим: колонки идут в порядке первого появления.
// Ошибка в любой записи прерывает построение целиком, частичная сетка не возвращается.
func (b *GridBuilder) Build(records []*entity.EvaluationRecord) (Grid, error) {
	grid := EmptyGrid()
	if len(records) == 0 {
		return grid, nil
	}

	seenRows := make(map[string]struct{})
	seenCols := make(map[string]struct{})
	seenCells := make(map[CellKey]struct{})
	var rows []string

	for i, record := range records {
		if err := b.validator.Validate(record); err != nil {
			return EmptyGrid(), recordError(i, record, err)
		}

		col := record.Label(b.timeLayout)
		if _, ok := seenCols[col]; !ok {
			seenCols[col] = struct{}{}
			grid.ColKeys = append(grid.ColKeys, col)
		}

		for _, r := range record.Results() {
			key := CellKey{RowKey: r.Metric, ColKey: col}
			if _, dup := seenCells[key]; dup {
				return EmptyGrid(), recordError(i, record,
					fmt.Errorf("%w: row %q, col %q", ErrDuplicateCell, key.RowKey, key.ColKey))
			}
			seenCells[key] = struct{}{}

			if _, ok := seenRows[r.Metric]; !ok {
				seenRows[r.Metric] = struct{}{}
				rows = append(rows, r.Metric)
			}

			grid.Cells = append(grid.Cells, GridCell{
				RowKey: r.Metric,
				ColKey: col,
				Result: r.Result,
			})
		}
	}

	grid.RowKeys = b.orderRows(rows, seenRows)
	return grid, nil
}

// orderRows ставит канонические строки первыми (только если они встречались)
func (b *GridBuilder) orderRows(firstSeen []string, seen map[string]struct{}) []string {
	ordered := make([]string, 0, len(firstSeen))
	if len(b.canonicalRows) == 0 {
		return append(ordered, firstSeen...)
	}

	placed := make(map[string]struct{}, len(b.canonicalRows))
	for _, r := range b.canonicalRows {
		if _, ok := seen[r]; ok {
			ordered = append(ordered, r)
			placed[r] = struct{}{}
		}
	}
	for _, r := range firstSeen {
		if _, ok := placed[r]; !ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

func recordError(index int, record *entity.EvaluationRecord, err error) error {
	re := &RecordError{Index: index, Err: err}
	if record != nil {
		re.RecordID = record.ID()
	}
	return re
}
