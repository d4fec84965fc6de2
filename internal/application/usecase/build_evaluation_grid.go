package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/repository"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// GridQuery описывает запрос сетки одного сервиса
type GridQuery struct {
	Scope     valueobject.Scope
	Limit     int
	TimeRange valueobject.TimeRange
	Canonical bool
}

// BuildEvaluationGridConfig - лимиты истории
type BuildEvaluationGridConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// BuildEvaluationGridUseCase строит heatmap-сетку по истории оценок с кешированием
type BuildEvaluationGridUseCase struct {
	repository repository.EvaluationRepository
	builder    *service.GridBuilder
	cache      port.Cache
	observer   port.GridObserver
	config     BuildEvaluationGridConfig
	logger     *logger.Logger
}

// NewBuildEvaluationGridUseCase создает новый use case. cache и observer могут быть nil.
func NewBuildEvaluationGridUseCase(
	repository repository.EvaluationRepository,
	builder *service.GridBuilder,
	cache port.Cache,
	observer port.GridObserver,
	config BuildEvaluationGridConfig,
	logger *logger.Logger,
) *BuildEvaluationGridUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 50
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = config.DefaultLimit
	}
	if observer == nil {
		observer = port.NopGridObserver{}
	}
	return &BuildEvaluationGridUseCase{
		repository: repository,
		builder:    builder,
		cache:      cache,
		observer:   observer,
		config:     config,
		logger:     logger,
	}
}

// Execute возвращает сетку сервиса. Пустая история дает пустую сетку, не ошибку.
func (uc *BuildEvaluationGridUseCase) Execute(ctx context.Context, query GridQuery) (*dto.GridDTO, error) {
	if query.Scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}
	query.Limit = uc.normalizeLimit(query.Limit)

	started := time.Now()

	// Если кеш не настроен, используем стандартный путь
	if uc.cache == nil {
		grid, err := uc.executeWithoutCache(ctx, query)
		uc.observe(query, grid, false, started, err)
		return grid, err
	}

	cacheKey := redis.GenerateCacheKey(query.Scope.Key(), cacheVariant(query))

	var cached dto.GridDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for evaluation grid",
			"scope", query.Scope.Key(),
			"cells", len(cached.Cells))
		uc.observe(query, &cached, true, started, nil)
		return &cached, nil
	} else if !errors.Is(err, port.ErrCacheMiss) {
		uc.logger.Warn("Grid cache unavailable, falling back to repository",
			"scope", query.Scope.Key(),
			"error", err.Error())
	}

	grid, err := uc.executeWithoutCache(ctx, query)
	uc.observe(query, grid, false, started, err)
	if err != nil {
		return nil, err
	}

	// Сохраняем в кеш (асинхронно, не блокируем ответ).
	// Горутина сериализует свою копию: вызывающий может сразу вызвать Select.
	cachedGrid := grid.Clone()
	cachedGrid.Select(nil)
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, cachedGrid); err != nil {
			uc.logger.Warn("Failed to cache evaluation grid", "key", cacheKey, "error", err.Error())
		}
	}()

	return grid, nil
}

// Rebuild пересобирает сетку из репозитория в обход кеша и синхронно обновляет кеш
func (uc *BuildEvaluationGridUseCase) Rebuild(ctx context.Context, query GridQuery) (*dto.GridDTO, error) {
	if query.Scope.IsZero() {
		return nil, valueobject.ErrInvalidScope
	}
	query.Limit = uc.normalizeLimit(query.Limit)

	started := time.Now()
	grid, err := uc.executeWithoutCache(ctx, query)
	uc.observe(query, grid, false, started, err)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		cacheKey := redis.GenerateCacheKey(query.Scope.Key(), cacheVariant(query))
		if err := uc.cache.Set(ctx, cacheKey, grid); err != nil {
			uc.logger.Warn("Failed to cache evaluation grid", "key", cacheKey, "error", err.Error())
		}
	}

	return grid, nil
}

// Invalidate удаляет все закешированные сетки сервиса
func (uc *BuildEvaluationGridUseCase) Invalidate(ctx context.Context, scope valueobject.Scope) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.DeletePattern(ctx, redis.ScopePattern(scope.Key())); err != nil {
		return fmt.Errorf("failed to invalidate grid cache: %w", err)
	}
	return nil
}

// Records возвращает историю, по которой строится сетка (используется CLI и тестами)
func (uc *BuildEvaluationGridUseCase) Records(ctx context.Context, query GridQuery) ([]*entity.EvaluationRecord, error) {
	records, err := uc.repository.FindHistory(ctx, repository.HistoryQuery{
		Scope:     query.Scope,
		TimeRange: query.TimeRange,
		Limit:     uc.normalizeLimit(query.Limit),
	})
	if err != nil {
		uc.logger.Error("Failed to fetch evaluation history", err, "scope", query.Scope.Key())
		return nil, fmt.Errorf("failed to fetch evaluation history: %w", err)
	}
	return records, nil
}

// CheckAppend проверяет, что запись встанет в сетку сервиса рядом с сохраненной историей.
// Конфликт с историей (занятая ячейка) - ошибка входных данных. Запись с тем же id
// не учитывается: повторную доставку обрабатывает репозиторий.
func (uc *BuildEvaluationGridUseCase) CheckAppend(ctx context.Context, record *entity.EvaluationRecord) error {
	history, err := uc.Records(ctx, GridQuery{Scope: record.Scope(), Limit: uc.config.MaxLimit})
	if err != nil {
		return err
	}

	records := make([]*entity.EvaluationRecord, 0, len(history)+1)
	for _, r := range history {
		if r.ID() != record.ID() {
			records = append(records, r)
		}
	}
	records = append(records, record)

	if _, err := uc.builder.Build(records); err != nil {
		var recErr *service.RecordError
		if errors.As(err, &recErr) && recErr.Index == len(records)-1 {
			return fmt.Errorf("%w: evaluation conflicts with stored history: %w", ErrInvalidInput, err)
		}
		return fmt.Errorf("%w: %w", ErrHistoryUnbuildable, err)
	}
	return nil
}

func (uc *BuildEvaluationGridUseCase) executeWithoutCache(ctx context.Context, query GridQuery) (*dto.GridDTO, error) {
	records, err := uc.Records(ctx, query)
	if err != nil {
		return nil, err
	}

	builder := uc.builder
	if !query.Canonical {
		builder = builder.WithoutCanonicalOrder()
	}

	grid, err := builder.Build(records)
	if err != nil {
		uc.logger.Error("Failed to build evaluation grid", err, "scope", query.Scope.Key())
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnbuildable, err)
	}

	out, err := dto.NewGridDTO(query.Scope, grid, service.ColorFor, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to map evaluation grid: %w", err)
	}

	uc.logger.Debug("Evaluation grid built",
		"scope", query.Scope.Key(),
		"records", len(records),
		"rows", len(out.RowKeys),
		"cols", len(out.ColKeys))

	return out, nil
}

func (uc *BuildEvaluationGridUseCase) normalizeLimit(limit int) int {
	if limit <= 0 {
		return uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		return uc.config.MaxLimit
	}
	return limit
}

func (uc *BuildEvaluationGridUseCase) observe(query GridQuery, grid *dto.GridDTO, cached bool, started time.Time, err error) {
	cells := 0
	if grid != nil {
		cells = len(grid.Cells)
	}
	uc.observer.ObserveGridBuild(query.Scope.Key(), cells, cached, time.Since(started), err)
}

func cacheVariant(query GridQuery) string {
	variant := "n" + strconv.Itoa(query.Limit)
	if query.Canonical {
		variant += ":c"
	}
	if !query.TimeRange.IsZero() {
		variant += fmt.Sprintf(":%d-%d", query.TimeRange.Start().Unix(), query.TimeRange.End().Unix())
	}
	return variant
}
