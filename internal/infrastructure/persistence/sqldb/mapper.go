package sqldb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// EvaluationDBModel представляет оценку в БД
type EvaluationDBModel struct {
	ID          string
	Project     string
	Stage       string
	Service     string
	EvaluatedAt int64 // unix millis
	BucketLabel string
	Score       float64
	Results     []byte // JSON
	CreatedAt   int64
}

type resultDBModel struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Result string  `json:"result"`
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(record *entity.EvaluationRecord) (*EvaluationDBModel, error) {
	results := record.Results()
	models := make([]resultDBModel, 0, len(results))
	for _, r := range results {
		models = append(models, resultDBModel{
			Metric: r.Metric,
			Value:  r.Value,
			Result: r.Result.WireValue(),
		})
	}

	raw, err := json.Marshal(models)
	if err != nil {
		return nil, err
	}

	scope := record.Scope()
	return &EvaluationDBModel{
		ID:          record.ID(),
		Project:     scope.Project(),
		Stage:       scope.Stage(),
		Service:     scope.Service(),
		EvaluatedAt: record.EvaluatedAt().UnixMilli(),
		BucketLabel: record.BucketLabel(),
		Score:       record.Score(),
		Results:     raw,
		CreatedAt:   record.CreatedAt().UnixMilli(),
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *EvaluationDBModel) (*entity.EvaluationRecord, error) {
	scope, err := valueobject.NewScope(model.Project, model.Stage, model.Service)
	if err != nil {
		return nil, fmt.Errorf("evaluation %s: %w", model.ID, err)
	}

	var stored []resultDBModel
	if err := json.Unmarshal(model.Results, &stored); err != nil {
		return nil, fmt.Errorf("evaluation %s: decode results: %w", model.ID, err)
	}

	results := make([]entity.IndicatorResult, 0, len(stored))
	for _, r := range stored {
		category, err := valueobject.ParseResultCategory(r.Result)
		if err != nil {
			return nil, fmt.Errorf("evaluation %s: %w", model.ID, err)
		}
		results = append(results, entity.IndicatorResult{
			Metric: r.Metric,
			Value:  r.Value,
			Result: category,
		})
	}

	return entity.ReconstructEvaluation(
		model.ID,
		scope,
		time.UnixMilli(model.EvaluatedAt),
		model.BucketLabel,
		model.Score,
		results,
		time.UnixMilli(model.CreatedAt),
	), nil
}

// ScanEvaluationRow сканирует строку из БД в DB Model
func ScanEvaluationRow(row interface {
	Scan(dest ...interface{}) error
}) (*EvaluationDBModel, error) {
	var model EvaluationDBModel
	err := row.Scan(
		&model.ID,
		&model.Project,
		&model.Stage,
		&model.Service,
		&model.EvaluatedAt,
		&model.BucketLabel,
		&model.Score,
		&model.Results,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}
