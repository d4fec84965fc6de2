package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// EvaluationEventDTO представляет событие завершения оценки (evaluation.finished)
// Используется в HTTP ingest, NATS подписке и файлах истории heatmapctl
type EvaluationEventDTO struct {
	ID    string            `json:"id" yaml:"id"`
	Time  time.Time         `json:"time" yaml:"time"`
	Type  string            `json:"type,omitempty" yaml:"type,omitempty"`
	Label string            `json:"label,omitempty" yaml:"label,omitempty"`
	Data  EvaluationDataDTO `json:"data" yaml:"data"`
}

// EvaluationDataDTO - полезная нагрузка события
type EvaluationDataDTO struct {
	Project    string            `json:"project" yaml:"project"`
	Stage      string            `json:"stage" yaml:"stage"`
	Service    string            `json:"service" yaml:"service"`
	Result     string            `json:"result,omitempty" yaml:"result,omitempty"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Evaluation EvaluationDTO     `json:"evaluation" yaml:"evaluation"`
}

// EvaluationDTO содержит общий результат и результаты индикаторов
type EvaluationDTO struct {
	Score            float64              `json:"score" yaml:"score"`
	Result           string               `json:"result" yaml:"result"`
	IndicatorResults []IndicatorResultDTO `json:"indicatorResults" yaml:"indicatorResults"`
}

// IndicatorResultDTO - результат одного SLI
type IndicatorResultDTO struct {
	DisplayName string      `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Score       float64     `json:"score" yaml:"score"`
	Status      string      `json:"status" yaml:"status"`
	Value       SLIValueDTO `json:"value" yaml:"value"`
}

// SLIValueDTO - измеренное значение SLI
type SLIValueDTO struct {
	Metric  string  `json:"metric" yaml:"metric"`
	Value   float64 `json:"value" yaml:"value"`
	Success bool    `json:"success" yaml:"success"`
	Message string  `json:"message,omitempty" yaml:"message,omitempty"`
}

// ToEntity конвертирует событие в доменную запись.
// Общий результат оценки становится строкой "score", индикаторы идут следом.
func (e *EvaluationEventDTO) ToEntity() (*entity.EvaluationRecord, error) {
	scope, err := valueobject.NewScope(e.Data.Project, e.Data.Stage, e.Data.Service)
	if err != nil {
		return nil, err
	}

	overallRaw := e.Data.Evaluation.Result
	if overallRaw == "" {
		overallRaw = e.Data.Result
	}
	overall, err := valueobject.ParseResultCategory(overallRaw)
	if err != nil {
		return nil, fmt.Errorf("evaluation result: %w", err)
	}

	results := make([]entity.IndicatorResult, 0, len(e.Data.Evaluation.IndicatorResults)+1)
	results = append(results, entity.IndicatorResult{
		Metric: entity.ScoreMetric,
		Value:  e.Data.Evaluation.Score,
		Result: overall,
	})

	for i, ir := range e.Data.Evaluation.IndicatorResults {
		row := strings.TrimSpace(ir.DisplayName)
		if row == "" {
			row = strings.TrimSpace(ir.Value.Metric)
		}
		if row == "" {
			return nil, fmt.Errorf("%w: indicator %d has no metric name", entity.ErrInvalidRecord, i)
		}

		category, err := valueobject.ParseResultCategory(ir.Status)
		if err != nil {
			return nil, fmt.Errorf("indicator %q: %w", row, err)
		}

		results = append(results, entity.IndicatorResult{
			Metric: row,
			Value:  ir.Value.Value,
			Result: category,
		})
	}

	return entity.NewEvaluationRecordWithID(e.ID, scope, e.Time, e.Label, e.Data.Evaluation.Score, results)
}

// EventsToEntities конвертирует историю событий, сохраняя порядок.
// Ошибка содержит индекс события.
func EventsToEntities(events []EvaluationEventDTO) ([]*entity.EvaluationRecord, error) {
	records := make([]*entity.EvaluationRecord, 0, len(events))
	for i := range events {
		record, err := events[i].ToEntity()
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, events[i].ID, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// EvaluationSummaryDTO - краткая информация о принятой оценке (WebSocket, NATS)
type EvaluationSummaryDTO struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Stage       string    `json:"stage"`
	Service     string    `json:"service"`
	Result      string    `json:"result"`
	Score       float64   `json:"score"`
	Indicators  int       `json:"indicators"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// NewEvaluationSummaryDTO создает сводку по записи
func NewEvaluationSummaryDTO(record *entity.EvaluationRecord) *EvaluationSummaryDTO {
	summary := &EvaluationSummaryDTO{
		ID:          record.ID(),
		Project:     record.Scope().Project(),
		Stage:       record.Scope().Stage(),
		Service:     record.Scope().Service(),
		Score:       record.Score(),
		Indicators:  len(record.Results()),
		EvaluatedAt: record.EvaluatedAt(),
	}
	if overall, ok := record.OverallResult(); ok {
		summary.Result = overall.WireValue()
	}
	return summary
}
