package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/repository"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// IngestEvaluationConfig - настройки публикации событий
type IngestEvaluationConfig struct {
	UpdatesSubject string // префикс subject, к нему добавляется project.stage.service
	Canonical      bool
}

// IngestResult - результат приема оценки
type IngestResult struct {
	Evaluation *dto.EvaluationSummaryDTO
	Grid       *dto.GridDTO
	Duplicate  bool
}

// GridUpdatedEvent публикуется в NATS после пересборки сетки
type GridUpdatedEvent struct {
	Evaluation *dto.EvaluationSummaryDTO `json:"evaluation"`
	Rows       int                       `json:"rows"`
	Columns    int                       `json:"columns"`
	Counts     map[string]int            `json:"counts"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// IngestEvaluationUseCase координирует прием, сохранение и рассылку новой оценки
type IngestEvaluationUseCase struct {
	repository       repository.EvaluationRepository
	grids            *BuildEvaluationGridUseCase
	notifier         port.NotificationService
	eventPublisher   port.EventPublisher
	metricsPublisher port.MetricsPublisher
	observer         port.GridObserver
	config           IngestEvaluationConfig
	logger           *logger.Logger

	// mu сериализует проверку колонки и сохранение в пределах процесса
	mu sync.Mutex
}

// NewIngestEvaluationUseCase создает новый use case.
// notifier, eventPublisher, metricsPublisher и observer могут быть nil.
func NewIngestEvaluationUseCase(
	repository repository.EvaluationRepository,
	grids *BuildEvaluationGridUseCase,
	notifier port.NotificationService,
	eventPublisher port.EventPublisher,
	metricsPublisher port.MetricsPublisher,
	observer port.GridObserver,
	config IngestEvaluationConfig,
	logger *logger.Logger,
) *IngestEvaluationUseCase {
	if config.UpdatesSubject == "" {
		config.UpdatesSubject = "evaluations.grid.updated"
	}
	if observer == nil {
		observer = port.NopGridObserver{}
	}
	return &IngestEvaluationUseCase{
		repository:       repository,
		grids:            grids,
		notifier:         notifier,
		eventPublisher:   eventPublisher,
		metricsPublisher: metricsPublisher,
		observer:         observer,
		config:           config,
		logger:           logger,
	}
}

// Execute принимает одно событие оценки
func (uc *IngestEvaluationUseCase) Execute(ctx context.Context, event *dto.EvaluationEventDTO) (*IngestResult, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: empty event", ErrInvalidInput)
	}

	// 1. Конвертируем в Domain Entity (невалидные данные не приводятся к категориям)
	record, err := event.ToEntity()
	if err != nil {
		uc.observer.ObserveIngest("invalid", err)
		uc.logger.Warn("Rejected evaluation event", "id", event.ID, "error", err.Error())
		return nil, err
	}

	summary := dto.NewEvaluationSummaryDTO(record)
	scope := record.Scope()

	// 2. Проверяем, что запись не ломает сетку сервиса, и сохраняем
	if duplicate, err := uc.save(ctx, record); err != nil {
		return nil, err
	} else if duplicate {
		uc.logger.Info("Evaluation already ingested", "id", record.ID(), "scope", scope.Key())
		return &IngestResult{Evaluation: summary, Duplicate: true}, nil
	}
	uc.observer.ObserveIngest(summary.Result, nil)

	// 3. Сбрасываем кеш и пересобираем сетку сервиса
	if err := uc.grids.Invalidate(ctx, scope); err != nil {
		uc.logger.Warn("Grid cache invalidation failed", "scope", scope.Key(), "error", err.Error())
	}

	grid, err := uc.grids.Rebuild(ctx, GridQuery{Scope: scope, Canonical: uc.config.Canonical})
	if err != nil {
		return nil, fmt.Errorf("evaluation saved, grid rebuild failed: %w", err)
	}

	// 4. Рассылаем через WebSocket
	if uc.notifier != nil {
		uc.notifier.BroadcastGrid(grid)
		uc.notifier.BroadcastEvaluation(summary)
		uc.logger.Debug("Grid broadcasted to clients", "client_count", uc.notifier.ClientCount())
	}

	// 5. Публикуем событие в NATS
	if uc.eventPublisher != nil {
		subject := uc.config.UpdatesSubject + "." + scope.Key()
		if err := uc.eventPublisher.PublishEvent(ctx, subject, GridUpdatedEvent{
			Evaluation: summary,
			Rows:       len(grid.RowKeys),
			Columns:    len(grid.ColKeys),
			Counts:     grid.Counts,
			UpdatedAt:  time.Now().UTC(),
		}); err != nil {
			uc.logger.Warn("Failed to publish grid update", "subject", subject, "error", err.Error())
		}
	}

	// 6. Счетчики результатов во внешнюю систему метрик
	if uc.metricsPublisher != nil {
		if err := uc.metricsPublisher.PublishBatch(ctx, resultDatums(summary, record.Results())); err != nil {
			uc.logger.Warn("Failed to publish evaluation metrics", "error", err.Error())
		}
	}

	uc.logger.Info("Evaluation ingested",
		"id", record.ID(),
		"scope", scope.Key(),
		"result", summary.Result,
		"indicators", summary.Indicators)

	return &IngestResult{Evaluation: summary, Grid: grid}, nil
}

func (uc *IngestEvaluationUseCase) save(ctx context.Context, record *entity.EvaluationRecord) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	result := resultLabel(record)
	if err := uc.grids.CheckAppend(ctx, record); err != nil {
		uc.observer.ObserveIngest(result, err)
		if IsValidationError(err) {
			uc.logger.Warn("Rejected conflicting evaluation",
				"id", record.ID(),
				"scope", record.Scope().Key(),
				"error", err.Error())
			return false, err
		}
		uc.logger.Error("Failed to check evaluation history", err, "id", record.ID())
		return false, fmt.Errorf("failed to check evaluation history: %w", err)
	}

	if err := uc.repository.Save(ctx, record); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return true, nil
		}
		uc.observer.ObserveIngest(result, err)
		uc.logger.Error("Failed to save evaluation", err, "id", record.ID())
		return false, fmt.Errorf("failed to save evaluation: %w", err)
	}
	return false, nil
}

func resultLabel(record *entity.EvaluationRecord) string {
	if overall, ok := record.OverallResult(); ok {
		return overall.WireValue()
	}
	return ""
}
