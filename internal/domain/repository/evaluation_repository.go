package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

var (
	// ErrNotFound возвращается, если оценка не найдена
	ErrNotFound = errors.New("evaluation not found")

	// ErrAlreadyExists возвращается при повторном сохранении оценки с тем же id
	ErrAlreadyExists = errors.New("evaluation already exists")
)

// HistoryQuery описывает выборку истории оценок одного сервиса
type HistoryQuery struct {
	Scope     valueobject.Scope
	TimeRange valueobject.TimeRange // нулевой диапазон - без ограничения по времени
	Limit     int                   // последние N оценок; 0 - без ограничения
}

// EvaluationRepository определяет интерфейс для работы с хранилищем оценок (Port)
// Реализация будет в Infrastructure слое
type EvaluationRepository interface {
	// Save сохраняет одну оценку вместе с результатами метрик; повтор id - ErrAlreadyExists
	Save(ctx context.Context, record *entity.EvaluationRecord) error

	// SaveBatch сохраняет несколько оценок одной транзакцией
	SaveBatch(ctx context.Context, records []*entity.EvaluationRecord) error

	// FindByID находит оценку по идентификатору
	FindByID(ctx context.Context, id string) (*entity.EvaluationRecord, error)

	// FindHistory возвращает последние оценки в хронологическом (возрастающем) порядке
	FindHistory(ctx context.Context, query HistoryQuery) ([]*entity.EvaluationRecord, error)

	// ListScopes возвращает все сервисы, для которых есть оценки
	ListScopes(ctx context.Context) ([]valueobject.Scope, error)

	// Count возвращает количество оценок сервиса
	Count(ctx context.Context, scope valueobject.Scope) (int64, error)
}
