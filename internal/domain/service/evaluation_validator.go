package service

import (
	"errors"
	"fmt"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
)

// RecordError указывает на запись истории, из-за которой сетка не может быть построена
type RecordError struct {
	Index    int
	RecordID string
	Err      error
}

func (e *RecordError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ErrDuplicateCell возвращается, если две метрики попадают в одну ячейку (row, col)
var ErrDuplicateCell = errors.New("duplicate grid cell")

// EvaluationValidator проверяет записи истории перед построением сетки (Domain Service)
type EvaluationValidator struct{}

// NewEvaluationValidator создает новый EvaluationValidator
func NewEvaluationValidator() *EvaluationValidator {
	return &EvaluationValidator{}
}

// Validate выполняет полную валидацию записи
// Неизвестные категории не приводятся к одной из трех: это ошибка
func (v *EvaluationValidator) Validate(record *entity.EvaluationRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", entity.ErrInvalidRecord)
	}

	results := record.Results()
	if len(results) == 0 {
		return fmt.Errorf("%w: no metric results", entity.ErrInvalidRecord)
	}

	for _, r := range results {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	return nil
}
