package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	wsInfra "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/persistence/sqldb"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/render"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/internal/refresher"
	"github.com/dreschagin/evaluation-dashboard/pkg/config"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	testToken       = "test-token"
	testIngestToken = "pipeline-token"
)

type memorySnapshotStorage struct {
	mu      sync.RWMutex
	objects map[string]storedSnapshot
}

type storedSnapshot struct {
	contentType  string
	data         []byte
	lastModified time.Time
}

func newMemorySnapshotStorage() *memorySnapshotStorage {
	return &memorySnapshotStorage{
		objects: make(map[string]storedSnapshot),
	}
}

func (s *memorySnapshotStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedSnapshot{
		contentType:  contentType,
		data:         append([]byte(nil), body...),
		lastModified: time.Now().UTC(),
	}
	return "https://storage.local/" + key, nil
}

func (s *memorySnapshotStorage) ListObjects(_ context.Context, prefix string, limit int) ([]port.SnapshotObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]port.SnapshotObject, 0, len(s.objects))
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		items = append(items, port.SnapshotObject{
			Key:          key,
			SizeBytes:    int64(len(obj.data)),
			LastModified: obj.lastModified,
			URL:          "https://storage.local/" + key,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key > items[j].Key
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *memorySnapshotStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", http.ErrMissingFile
	}
	return "https://storage.local/" + key, nil
}

type testEnv struct {
	server  *httptest.Server
	storage *memorySnapshotStorage
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	return newTestServerWithIngestToken(t, "")
}

// newTestServerWithIngestToken builds the server; a non-empty ingestToken restricts writes to it.
func newTestServerWithIngestToken(t *testing.T, ingestToken string) *testEnv {
	t.Helper()

	log := logger.NewWithWriter("error", io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := sqldb.NewEvaluationRepository(db, sqldb.DriverSQLite)

	hub := wsInfra.NewHub(log)
	go hub.Run(ctx)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry, hub.ClientCount)

	builder := service.NewGridBuilder(time.RFC3339, "score", "response time p95")
	gridUC := usecase.NewBuildEvaluationGridUseCase(repo, builder, nil, m, usecase.BuildEvaluationGridConfig{
		DefaultLimit: 50,
		MaxLimit:     200,
	}, log)
	renderUC := usecase.NewRenderHeatmapUseCase(gridUC, map[port.RenderFormat]port.HeatmapRenderer{
		port.FormatPNG:  render.NewPNGRenderer(),
		port.FormatSVG:  render.NewSVGRenderer(),
		port.FormatHTML: render.NewHTMLRenderer(),
	}, m, log)
	ingestUC := usecase.NewIngestEvaluationUseCase(repo, gridUC, hub, nil, nil, m, usecase.IngestEvaluationConfig{
		UpdatesSubject: "evaluations.grid.updated",
		Canonical:      true,
	}, log)

	storage := newMemorySnapshotStorage()
	archiveUC := usecase.NewArchiveHeatmapSnapshotUseCase(renderUC, storage, nil, usecase.ArchiveHeatmapSnapshotConfig{
		KeyPrefix: "heatmaps",
		Canonical: true,
	}, log)
	listUC := usecase.NewListHeatmapSnapshotsUseCase(storage, nil, usecase.ListHeatmapSnapshotsConfig{
		KeyPrefix:    "heatmaps",
		DefaultLimit: 20,
		MaxLimit:     50,
	}, log)

	runner := refresher.NewRunner(refresher.NewService(gridUC, repo, hub, nil, true), log, time.Minute, 5*time.Second)

	authConfig := middleware.AuthConfig{Enabled: true, BearerToken: testToken, IngestToken: ingestToken}
	router := NewRouter(
		handler.NewDashboardHandler(renderUC, true, log),
		handler.NewWebSocketHandler(hub, []string{"http://localhost:8080"}, authConfig, log),
		handler.NewEvaluationAPIHandler(gridUC, renderUC, ingestUC, true, 1024*1024, log),
		handler.NewSnapshotAPIHandler(archiveUC, listUC, 64*1024, log),
		handler.NewAuthAPIHandler(authConfig, log),
		handler.NewHealthHandler(map[string]handler.ReadinessCheck{"database": repo.Ping}),
		RouterOptions{
			RefresherHandler: refresher.NewHandler(runner),
			Metrics:          m,
			MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			WriteLimiter:     middleware.NewPerMinuteRateLimiter(1000),
		},
		config.SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			AuthEnabled:    true,
			AuthToken:      testToken,
			IngestToken:    ingestToken,
		},
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return &testEnv{server: server, storage: storage}
}

func evaluationEvent(id string, at time.Time, result string, indicators map[string]string) string {
	type value struct {
		Metric string  `json:"metric"`
		Value  float64 `json:"value"`
	}
	type indicator struct {
		DisplayName string `json:"displayName"`
		Status      string `json:"status"`
		Value       value  `json:"value"`
	}

	names := make([]string, 0, len(indicators))
	for name := range indicators {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]indicator, 0, len(names))
	for _, name := range names {
		list = append(list, indicator{DisplayName: name, Status: indicators[name], Value: value{Metric: name, Value: 1}})
	}

	payload := map[string]any{
		"id":   id,
		"time": at.Format(time.RFC3339Nano),
		"data": map[string]any{
			"project": "sockshop",
			"stage":   "prod",
			"service": "carts",
			"evaluation": map[string]any{
				"score":            90,
				"result":           result,
				"indicatorResults": list,
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testToken}
}

func scopeQuery(extra map[string]string) string {
	q := url.Values{}
	q.Set("project", "sockshop")
	q.Set("stage", "prod")
	q.Set("service", "carts")
	for k, v := range extra {
		q.Set(k, v)
	}
	return q.Encode()
}

func TestE2EHealthEndpoints(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}

	resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/metrics", nil, nil)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "evaldash_http_requests_total") {
		t.Fatal("expected http request counter in /metrics output")
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestE2EAuthFlow(t *testing.T) {
	env := newTestServer(t)
	client := env.server.Client()

	statusResp := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/auth/status", nil, nil)
	var statusPayload map[string]interface{}
	if err := json.NewDecoder(statusResp.Body).Decode(&statusPayload); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	statusResp.Body.Close()
	if statusPayload["auth_enabled"] != true || statusPayload["authenticated"] != false {
		t.Fatalf("unexpected auth status: %v", statusPayload)
	}

	loginResp := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/auth/login", bytes.NewBufferString(`{"token":"bad-token"}`), nil)
	loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid login, got %d", loginResp.StatusCode)
	}

	loginResp = doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/auth/login", bytes.NewBufferString(`{"token":"`+testToken+`"}`), nil)
	loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK || len(loginResp.Cookies()) == 0 {
		t.Fatalf("expected 200 with auth cookie, got %d", loginResp.StatusCode)
	}

	gridURL := env.server.URL + "/api/v1/evaluations/grid?" + scopeQuery(nil)
	resp := doRequest(t, client, http.MethodGet, gridURL, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, gridURL, nil)
	for _, cookie := range loginResp.Cookies() {
		req.AddCookie(cookie)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("authorized grid request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", resp.StatusCode)
	}

	var grid dto.GridDTO
	if err := json.NewDecoder(resp.Body).Decode(&grid); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	if grid.Cells == nil || len(grid.Cells) != 0 || len(grid.RowKeys) != 0 {
		t.Fatalf("expected empty grid for empty history, got %+v", grid)
	}
}

func TestE2EIngestAndRenderGrid(t *testing.T) {
	env := newTestServer(t)
	client := env.server.Client()
	base := time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC)

	events := []string{
		evaluationEvent("e1", base, "pass", map[string]string{"response time p95": "pass", "error rate": "warning"}),
		evaluationEvent("e2", base.Add(time.Hour), "warning", map[string]string{"response time p95": "fail"}),
	}
	for _, event := range events {
		resp := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(event), authHeaders())
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201 for ingest, got %d", resp.StatusCode)
		}
	}

	dup := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(events[0]), authHeaders())
	var dupPayload struct {
		Duplicate bool `json:"duplicate"`
	}
	_ = json.NewDecoder(dup.Body).Decode(&dupPayload)
	dup.Body.Close()
	if dup.StatusCode != http.StatusOK || !dupPayload.Duplicate {
		t.Fatalf("expected 200 duplicate, got %d %+v", dup.StatusCode, dupPayload)
	}

	invalid := evaluationEvent("e3", base.Add(2*time.Hour), "info", nil)
	bad := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(invalid), authHeaders())
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown result, got %d", bad.StatusCode)
	}

	// A second evaluation within the same second maps to an existing column.
	sameSecond := evaluationEvent("e4", base.Add(400*time.Millisecond), "fail", nil)
	conflict := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(sameSecond), authHeaders())
	conflict.Body.Close()
	if conflict.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for conflicting column, got %d", conflict.StatusCode)
	}

	col1 := base.Format(time.RFC3339)
	col2 := base.Add(time.Hour).Format(time.RFC3339)

	resp := doRequest(t, client, http.MethodGet,
		env.server.URL+"/api/v1/evaluations/grid?"+scopeQuery(map[string]string{"selected": "score|" + col2}), nil, authHeaders())
	var grid dto.GridDTO
	if err := json.NewDecoder(resp.Body).Decode(&grid); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	resp.Body.Close()

	wantRows := []string{"score", "response time p95", "error rate"}
	if strings.Join(grid.RowKeys, ",") != strings.Join(wantRows, ",") {
		t.Fatalf("row keys = %v, want %v", grid.RowKeys, wantRows)
	}
	if strings.Join(grid.ColKeys, ",") != col1+","+col2 {
		t.Fatalf("col keys = %v", grid.ColKeys)
	}
	if len(grid.Cells) != 5 {
		t.Fatalf("cells = %d, want 5", len(grid.Cells))
	}
	if grid.Selected == nil || grid.Selected.Row != "score" || grid.Selected.Col != col2 {
		t.Fatalf("expected selection to be echoed, got %+v", grid.Selected)
	}

	cellResp := doRequest(t, client, http.MethodGet,
		env.server.URL+"/api/v1/evaluations/grid/cell?"+scopeQuery(map[string]string{"row": "response time p95", "col": col2}), nil, authHeaders())
	var cell struct {
		Tooltip string `json:"tooltip"`
		Color   string `json:"color"`
	}
	_ = json.NewDecoder(cellResp.Body).Decode(&cell)
	cellResp.Body.Close()
	if cellResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for cell, got %d", cellResp.StatusCode)
	}
	if cell.Tooltip != "metric: response time p95, time: "+col2+", result: Failed" || cell.Color != "#dc172a" {
		t.Fatalf("unexpected cell: %+v", cell)
	}

	missing := doRequest(t, client, http.MethodGet,
		env.server.URL+"/api/v1/evaluations/grid/cell?"+scopeQuery(map[string]string{"row": "error rate", "col": col2}), nil, authHeaders())
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing cell, got %d", missing.StatusCode)
	}

	png := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/evaluations/heatmap.png?"+scopeQuery(nil), nil, authHeaders())
	pngBody, _ := io.ReadAll(png.Body)
	png.Body.Close()
	if png.StatusCode != http.StatusOK || png.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(pngBody, []byte("\x89PNG")) {
		t.Fatalf("unexpected png response: %d %s", png.StatusCode, png.Header.Get("Content-Type"))
	}

	svg := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/evaluations/heatmap.svg?"+scopeQuery(nil), nil, authHeaders())
	svgBody, _ := io.ReadAll(svg.Body)
	svg.Body.Close()
	if svg.StatusCode != http.StatusOK || !bytes.Contains(svgBody, []byte("<svg")) {
		t.Fatalf("unexpected svg response: %d", svg.StatusCode)
	}

	page := doRequest(t, client, http.MethodGet, env.server.URL+"/?"+scopeQuery(map[string]string{"selected": "score|" + col1}), nil, authHeaders())
	pageBody, _ := io.ReadAll(page.Body)
	page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for dashboard, got %d", page.StatusCode)
	}
	for _, want := range []string{
		`title="metric: error rate, time: ` + col1 + `, result: Warning"`,
		`cell cell-pass selected`,
	} {
		if !strings.Contains(string(pageBody), want) {
			t.Fatalf("expected %q in dashboard page", want)
		}
	}

	badSel := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/evaluations/heatmap.png?"+scopeQuery(map[string]string{"selected": "score"}), nil, authHeaders())
	badSel.Body.Close()
	if badSel.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed selection, got %d", badSel.StatusCode)
	}
}

func TestE2ESnapshotEndpoints(t *testing.T) {
	env := newTestServer(t)
	client := env.server.Client()

	ingest := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations",
		bytes.NewBufferString(evaluationEvent("e1", time.Now().UTC().Add(-time.Hour), "pass", nil)), authHeaders())
	ingest.Body.Close()

	unauthorized := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations/snapshots", bytes.NewBufferString(`{}`), nil)
	unauthorized.Body.Close()
	if unauthorized.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", unauthorized.StatusCode)
	}

	body := `{"project":"sockshop","stage":"prod","service":"carts","formats":["png","svg"],"captured_at":"2026-02-07T12:34:56Z"}`
	resp := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations/snapshots", bytes.NewBufferString(body), authHeaders())
	var saved struct {
		Items []struct {
			Format string `json:"format"`
			S3Key  string `json:"s3_key"`
		} `json:"items"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&saved)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || len(saved.Items) != 2 {
		t.Fatalf("expected 201 with 2 items, got %d %+v", resp.StatusCode, saved)
	}
	if saved.Items[0].S3Key != "heatmaps/sockshop/prod/carts/2026/02/07/20260207T123456Z_heatmap.png" {
		t.Fatalf("unexpected key: %s", saved.Items[0].S3Key)
	}

	html := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations/snapshots",
		bytes.NewBufferString(`{"project":"sockshop","stage":"prod","service":"carts","formats":["html"]}`), authHeaders())
	html.Body.Close()
	if html.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for html archive, got %d", html.StatusCode)
	}

	list := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/evaluations/snapshots?"+scopeQuery(map[string]string{"format": "svg"}), nil, authHeaders())
	var listed struct {
		Items []struct {
			Format string `json:"format"`
		} `json:"items"`
	}
	_ = json.NewDecoder(list.Body).Decode(&listed)
	list.Body.Close()
	if list.StatusCode != http.StatusOK || len(listed.Items) != 1 || listed.Items[0].Format != "svg" {
		t.Fatalf("unexpected list response: %d %+v", list.StatusCode, listed)
	}
}

func TestE2ERefresherEndpoints(t *testing.T) {
	env := newTestServer(t)
	client := env.server.Client()

	ingest := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations",
		bytes.NewBufferString(evaluationEvent("e1", time.Now().UTC().Add(-time.Hour), "pass", nil)), authHeaders())
	ingest.Body.Close()

	run := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/refresher/run", nil, authHeaders())
	var summary refresher.CycleSummary
	_ = json.NewDecoder(run.Body).Decode(&summary)
	run.Body.Close()
	if run.StatusCode != http.StatusOK || summary.RefreshedCount != 1 {
		t.Fatalf("unexpected run response: %d %+v", run.StatusCode, summary)
	}
	if len(summary.Scopes) != 1 || summary.Scopes[0].Scope != "sockshop.prod.carts" {
		t.Fatalf("unexpected scopes: %+v", summary.Scopes)
	}

	status := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/refresher/status", nil, authHeaders())
	status.Body.Close()
	if status.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for refresher status, got %d", status.StatusCode)
	}
}

func TestE2EIngestTokenScope(t *testing.T) {
	env := newTestServerWithIngestToken(t, testIngestToken)
	client := env.server.Client()
	event := evaluationEvent("e1", time.Now().UTC().Add(-time.Hour), "pass", nil)
	ingestHeaders := map[string]string{"Authorization": "Bearer " + testIngestToken}

	dashboardWrite := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(event), authHeaders())
	dashboardWrite.Body.Close()
	if dashboardWrite.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for dashboard token write, got %d", dashboardWrite.StatusCode)
	}

	pipelineWrite := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/evaluations", bytes.NewBufferString(event), ingestHeaders)
	pipelineWrite.Body.Close()
	if pipelineWrite.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for ingest token write, got %d", pipelineWrite.StatusCode)
	}

	read := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/evaluations/grid?"+scopeQuery(nil), nil, authHeaders())
	read.Body.Close()
	if read.StatusCode != http.StatusOK {
		t.Fatalf("expected dashboard token to read, got %d", read.StatusCode)
	}

	login := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/auth/login", bytes.NewBufferString(`{"token":"`+testIngestToken+`"}`), nil)
	login.Body.Close()
	if login.StatusCode != http.StatusForbidden || len(login.Cookies()) != 0 {
		t.Fatalf("ingest token must not open a session, got %d", login.StatusCode)
	}

	status := doRequest(t, client, http.MethodGet, env.server.URL+"/api/v1/auth/status", nil, ingestHeaders)
	var payload map[string]interface{}
	_ = json.NewDecoder(status.Body).Decode(&payload)
	status.Body.Close()
	if payload["access"] != "write" || payload["ingest_token_required"] != true {
		t.Fatalf("unexpected auth status: %v", payload)
	}
}

func doRequest(t *testing.T, client *http.Client, method, url string, body *bytes.Buffer, headers map[string]string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body.Bytes())
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
