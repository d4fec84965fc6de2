package usecase

import (
	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// resultDatums строит счетчики результатов одной оценки:
// EvaluationScore и по одному IndicatorResult<Category> на каждую категорию
func resultDatums(summary *dto.EvaluationSummaryDTO, results []entity.IndicatorResult) []port.MetricDatum {
	dims := map[string]string{
		"Project": summary.Project,
		"Stage":   summary.Stage,
		"Service": summary.Service,
	}

	counts := make(map[valueobject.ResultCategory]int, 3)
	for _, r := range results {
		counts[r.Result]++
	}

	data := make([]port.MetricDatum, 0, 4)
	data = append(data, port.MetricDatum{
		Name:       "EvaluationScore",
		Value:      summary.Score,
		Unit:       "%",
		Dimensions: dims,
		Timestamp:  summary.EvaluatedAt,
	})

	for _, rc := range valueobject.AllResultCategories() {
		data = append(data, port.MetricDatum{
			Name:       "IndicatorResult" + rc.String(),
			Value:      float64(counts[rc]),
			Unit:       "count",
			Dimensions: dims,
			Timestamp:  summary.EvaluatedAt,
		})
	}

	return data
}
