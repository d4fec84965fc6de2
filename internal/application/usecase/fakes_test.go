package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/repository"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type memoryRepository struct {
	mu      sync.Mutex
	records []*entity.EvaluationRecord
	saveErr error
	findErr error
}

func (m *memoryRepository) Save(_ context.Context, record *entity.EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, r := range m.records {
		if r.ID() == record.ID() {
			return repository.ErrAlreadyExists
		}
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRepository) SaveBatch(ctx context.Context, records []*entity.EvaluationRecord) error {
	for _, r := range records {
		if err := m.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (*entity.EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRepository) FindHistory(_ context.Context, q repository.HistoryQuery) ([]*entity.EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]*entity.EvaluationRecord, 0)
	for _, r := range m.records {
		if r.Scope() != q.Scope {
			continue
		}
		if !q.TimeRange.IsZero() && !q.TimeRange.Contains(r.EvaluatedAt()) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EvaluatedAt().Before(out[j].EvaluatedAt()) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (m *memoryRepository) ListScopes(_ context.Context) ([]valueobject.Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[valueobject.Scope]bool)
	var out []valueobject.Scope
	for _, r := range m.records {
		if !seen[r.Scope()] {
			seen[r.Scope()] = true
			out = append(out, r.Scope())
		}
	}
	return out, nil
}

func (m *memoryRepository) Count(_ context.Context, scope valueobject.Scope) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.Scope() == scope {
			n++
		}
	}
	return n, nil
}

type memoryCache struct {
	mu       sync.Mutex
	items    map[string][]byte
	getErr   error
	deleted  []string
	setCalls int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	data, ok := c.items[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	c.setCalls++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }
func (c *memoryCache) Close() error               { return nil }

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// waitFor polls cond until it holds; cache writes happen in a goroutine.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

// avoidMinuteBoundary keeps cache keys (minute buckets) stable for the duration of a test.
func avoidMinuteBoundary(t *testing.T) {
	t.Helper()
	now := time.Now()
	if next := now.Truncate(time.Minute).Add(time.Minute); next.Sub(now) < 3*time.Second {
		time.Sleep(next.Sub(now) + 50*time.Millisecond)
	}
}

type recordingNotifier struct {
	grids       []*dto.GridDTO
	evaluations []*dto.EvaluationSummaryDTO
}

func (n *recordingNotifier) BroadcastGrid(grid *dto.GridDTO) { n.grids = append(n.grids, grid) }
func (n *recordingNotifier) BroadcastEvaluation(s *dto.EvaluationSummaryDTO) {
	n.evaluations = append(n.evaluations, s)
}
func (n *recordingNotifier) ClientCount() int { return 1 }

type publishedEvent struct {
	subject string
	event   interface{}
}

type recordingEventPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	p.events = append(p.events, publishedEvent{subject: subject, event: event})
	return p.err
}

func (p *recordingEventPublisher) Close() error { return nil }

type recordingMetricsPublisher struct {
	data []port.MetricDatum
}

func (p *recordingMetricsPublisher) PublishBatch(_ context.Context, data []port.MetricDatum) error {
	p.data = append(p.data, data...)
	return nil
}

func (p *recordingMetricsPublisher) PublishSingle(_ context.Context, d port.MetricDatum) error {
	p.data = append(p.data, d)
	return nil
}

func (p *recordingMetricsPublisher) Flush(context.Context) error { return nil }

type renderCall struct {
	grid      service.Grid
	selection *service.CellKey
}

type stubRenderer struct {
	contentType string
	calls       []renderCall
	err         error
}

func (r *stubRenderer) Render(_ context.Context, grid service.Grid, colorFor service.ColorFunc, selection *service.CellKey) ([]byte, error) {
	r.calls = append(r.calls, renderCall{grid: grid, selection: selection})
	if r.err != nil {
		return nil, r.err
	}
	out := []byte{}
	for _, c := range grid.Cells {
		color, err := colorFor(c.Result)
		if err != nil {
			return nil, err
		}
		out = append(out, []byte(color.Hex())...)
	}
	return out, nil
}

func (r *stubRenderer) ContentType() string { return r.contentType }

var errBoom = errors.New("boom")

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func mustScope(t *testing.T, project, stage, svc string) valueobject.Scope {
	t.Helper()
	scope, err := valueobject.NewScope(project, stage, svc)
	if err != nil {
		t.Fatalf("NewScope() error = %v", err)
	}
	return scope
}

func mustRecord(t *testing.T, scope valueobject.Scope, at time.Time, results ...entity.IndicatorResult) *entity.EvaluationRecord {
	t.Helper()
	rec, err := entity.NewEvaluationRecord(scope, at, "", 0, results)
	if err != nil {
		t.Fatalf("NewEvaluationRecord() error = %v", err)
	}
	return rec
}

func newGridUseCase(repo repository.EvaluationRepository, cache port.Cache) *BuildEvaluationGridUseCase {
	return NewBuildEvaluationGridUseCase(
		repo,
		service.NewGridBuilder("", "score", "response time p95"),
		cache,
		nil,
		BuildEvaluationGridConfig{DefaultLimit: 10, MaxLimit: 20},
		logger.New("error"),
	)
}

func sampleEvent(id string, at time.Time, overall, p95 string) *dto.EvaluationEventDTO {
	return &dto.EvaluationEventDTO{
		ID:   id,
		Time: at,
		Data: dto.EvaluationDataDTO{
			Project: "sockshop",
			Stage:   "hardening",
			Service: "carts",
			Evaluation: dto.EvaluationDTO{
				Score:  80,
				Result: overall,
				IndicatorResults: []dto.IndicatorResultDTO{
					{DisplayName: "response time p95", Status: p95, Value: dto.SLIValueDTO{Metric: "rt_p95", Value: 230}},
				},
			},
		},
	}
}
