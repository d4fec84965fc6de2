package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	lastSummary *CycleSummary
}

func NewRunner(service *Service, log *logger.Logger, interval, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		service:   service,
		log:       log,
		interval:  interval,
		timeout:   timeout,
		startedAt: time.Now(),
	}
}

// Start запускает первый цикл сразу, затем по тикеру до отмены ctx
func (r *Runner) Start(ctx context.Context) {
	_, _ = r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunOnce already stores error state and logs context.
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) RunOnce(ctx context.Context) (*CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	summary, err := r.service.RefreshAll(runCtx)
	runAt := time.Now()

	if err != nil {
		wrappedErr := fmt.Errorf("refresh cycle failed: %w", err)
		r.update(runAt, summary, wrappedErr)
		r.log.Error("Grid refresh cycle failed", wrappedErr)
		return summary, wrappedErr
	}

	r.update(runAt, summary, nil)

	if summary.ScopesTotal == 0 {
		r.log.Warn("Grid refresh cycle completed without scopes")
		return summary, nil
	}

	r.log.Info(
		"Grid refresh cycle completed",
		"scopes_total", summary.ScopesTotal,
		"refreshed", summary.RefreshedCount,
		"failed", summary.FailedCount,
		"empty", summary.EmptyCount,
	)

	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
	}

	if r.lastSummary != nil {
		copiedSummary := *r.lastSummary
		copiedSummary.Scopes = append([]ScopeStatus(nil), r.lastSummary.Scopes...)
		snapshot.LastSummary = &copiedSummary
	}

	return snapshot
}

// Ready возвращает ошибку, пока не было успешного свежего цикла
func (r *Runner) Ready() error {
	snapshot := r.Snapshot()
	switch {
	case snapshot.LastRunAt.IsZero():
		return errors.New("no refresh cycle yet")
	case time.Since(snapshot.LastRunAt) > snapshot.Interval*3:
		return errors.New("stale refresh cycle")
	case snapshot.LastError != "":
		return errors.New("last refresh cycle failed")
	}
	return nil
}

func (r *Runner) update(runAt time.Time, summary *CycleSummary, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	if err != nil {
		r.lastError = err.Error()
	} else {
		r.lastError = ""
	}
	if summary != nil {
		r.lastSummary = summary
	}
}
