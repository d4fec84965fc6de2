package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/google/uuid"
)

// ErrInvalidRecord возвращается для записи оценки без результатов, с пустым или повторяющимся именем метрики
var ErrInvalidRecord = errors.New("invalid evaluation record")

// IndicatorResult - результат одной метрики (SLI) внутри оценки
type IndicatorResult struct {
	Metric string
	Value  float64
	Result valueobject.ResultCategory
}

// Validate проверяет результат метрики
func (r IndicatorResult) Validate() error {
	if strings.TrimSpace(r.Metric) == "" {
		return fmt.Errorf("%w: empty metric name", ErrInvalidRecord)
	}
	return r.Result.Validate()
}

// EvaluationRecord представляет одну оценку quality gate (Aggregate Root)
// Иммутабельна после создания
type EvaluationRecord struct {
	id          string
	scope       valueobject.Scope
	evaluatedAt time.Time
	bucketLabel string
	score       float64
	results     []IndicatorResult
	createdAt   time.Time
}

// NewEvaluationRecord создает новую запись оценки (Factory Method)
func NewEvaluationRecord(
	scope valueobject.Scope,
	evaluatedAt time.Time,
	bucketLabel string,
	score float64,
	results []IndicatorResult,
) (*EvaluationRecord, error) {
	return NewEvaluationRecordWithID("", scope, evaluatedAt, bucketLabel, score, results)
}

// NewEvaluationRecordWithID создает запись с идентификатором из события.
// Пустой id заменяется сгенерированным UUID.
func NewEvaluationRecordWithID(
	id string,
	scope valueobject.Scope,
	evaluatedAt time.Time,
	bucketLabel string,
	score float64,
	results []IndicatorResult,
) (*EvaluationRecord, error) {
	if scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}

	if evaluatedAt.IsZero() {
		return nil, fmt.Errorf("%w: evaluation time is zero", ErrInvalidRecord)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no metric results", ErrInvalidRecord)
	}

	// Одна метрика - одна ячейка колонки
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.Metric]; dup {
			return nil, fmt.Errorf("%w: duplicate metric %q", ErrInvalidRecord, r.Metric)
		}
		seen[r.Metric] = struct{}{}
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.New().String()
	}

	return &EvaluationRecord{
		id:          id,
		scope:       scope,
		evaluatedAt: evaluatedAt.UTC(),
		bucketLabel: strings.TrimSpace(bucketLabel),
		score:       score,
		results:     copyResults(results),
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructEvaluation восстанавливает запись из хранилища (для Repository)
// Валидация не выполняется: хранилище считается источником истины
func ReconstructEvaluation(
	id string,
	scope valueobject.Scope,
	evaluatedAt time.Time,
	bucketLabel string,
	score float64,
	results []IndicatorResult,
	createdAt time.Time,
) *EvaluationRecord {
	return &EvaluationRecord{
		id:          id,
		scope:       scope,
		evaluatedAt: evaluatedAt.UTC(),
		bucketLabel: bucketLabel,
		score:       score,
		results:     copyResults(results),
		createdAt:   createdAt.UTC(),
	}
}

// ID возвращает идентификатор оценки
func (e *EvaluationRecord) ID() string {
	return e.id
}

// Scope возвращает project/stage/service
func (e *EvaluationRecord) Scope() valueobject.Scope {
	return e.scope
}

// EvaluatedAt возвращает время оценки
func (e *EvaluationRecord) EvaluatedAt() time.Time {
	return e.evaluatedAt
}

// BucketLabel возвращает явную метку колонки (может быть пустой)
func (e *EvaluationRecord) BucketLabel() string {
	return e.bucketLabel
}

// Score возвращает общий балл оценки
func (e *EvaluationRecord) Score() float64 {
	return e.score
}

// Results возвращает результаты метрик в исходном порядке
func (e *EvaluationRecord) Results() []IndicatorResult {
	// Возвращаем копию для иммутабельности
	return copyResults(e.results)
}

// CreatedAt возвращает время создания записи
func (e *EvaluationRecord) CreatedAt() time.Time {
	return e.createdAt
}

// Domain Methods (бизнес-логика)

// OverallResult возвращает общий результат оценки (метрика score), если он есть
func (e *EvaluationRecord) OverallResult() (valueobject.ResultCategory, bool) {
	for _, r := range e.results {
		if r.Metric == ScoreMetric {
			return r.Result, true
		}
	}
	return 0, false
}

// Label возвращает метку колонки: явную, либо время оценки в заданном формате
func (e *EvaluationRecord) Label(layout string) string {
	if e.bucketLabel != "" {
		return e.bucketLabel
	}
	return e.evaluatedAt.UTC().Format(layout)
}

// ScoreMetric - имя строки с общим результатом оценки
const ScoreMetric = "score"

func copyResults(in []IndicatorResult) []IndicatorResult {
	if in == nil {
		return nil
	}
	out := make([]IndicatorResult, len(in))
	copy(out, in)
	return out
}
