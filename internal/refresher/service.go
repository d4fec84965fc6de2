package refresher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// ErrAllScopesFailed возвращается, если ни одну сетку не удалось пересобрать
var ErrAllScopesFailed = errors.New("all scopes failed to refresh")

// GridRebuilder пересобирает сетку в обход кеша и прогревает кеш
type GridRebuilder interface {
	Rebuild(ctx context.Context, query usecase.GridQuery) (*dto.GridDTO, error)
}

// ScopeLister перечисляет сервисы, для которых есть оценки
type ScopeLister interface {
	ListScopes(ctx context.Context) ([]valueobject.Scope, error)
}

type Service struct {
	grids     GridRebuilder
	lister    ScopeLister
	notifier  port.NotificationService
	scopes    []valueobject.Scope
	canonical bool
}

// NewService создает сервис обновления. Пустой scopes означает "все сервисы из репозитория".
// notifier может быть nil.
func NewService(
	grids GridRebuilder,
	lister ScopeLister,
	notifier port.NotificationService,
	scopes []valueobject.Scope,
	canonical bool,
) *Service {
	return &Service{
		grids:     grids,
		lister:    lister,
		notifier:  notifier,
		scopes:    append([]valueobject.Scope(nil), scopes...),
		canonical: canonical,
	}
}

// RefreshAll пересобирает сетки всех сервисов и рассылает их подписчикам
func (s *Service) RefreshAll(ctx context.Context) (*CycleSummary, error) {
	scopes, err := s.targetScopes(ctx)
	if err != nil {
		return nil, err
	}

	summary := &CycleSummary{
		GeneratedAt: time.Now(),
		ScopesTotal: len(scopes),
		Scopes:      make([]ScopeStatus, 0, len(scopes)),
	}

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		started := time.Now()
		status := ScopeStatus{Scope: scope.Key()}

		grid, err := s.grids.Rebuild(ctx, usecase.GridQuery{Scope: scope, Canonical: s.canonical})
		status.Duration = time.Since(started)
		if err != nil {
			status.Error = err.Error()
			summary.FailedCount++
			summary.Scopes = append(summary.Scopes, status)
			continue
		}

		status.Rows = len(grid.RowKeys)
		status.Columns = len(grid.ColKeys)
		status.Cells = len(grid.Cells)
		status.Counts = grid.Counts
		summary.RefreshedCount++
		if status.Cells == 0 {
			summary.EmptyCount++
		}
		summary.Scopes = append(summary.Scopes, status)

		if s.notifier != nil {
			s.notifier.BroadcastGrid(grid)
		}
	}

	if summary.ScopesTotal > 0 && summary.RefreshedCount == 0 {
		return summary, ErrAllScopesFailed
	}

	return summary, nil
}

func (s *Service) targetScopes(ctx context.Context) ([]valueobject.Scope, error) {
	if len(s.scopes) > 0 {
		return s.scopes, nil
	}
	if s.lister == nil {
		return nil, nil
	}
	scopes, err := s.lister.ListScopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return scopes, nil
}
