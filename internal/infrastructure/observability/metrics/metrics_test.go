package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGridBuild(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)

	m.ObserveGridBuild("sockshop.prod.carts", 12, false, 5*time.Millisecond, nil)
	m.ObserveGridBuild("sockshop.prod.carts", 12, true, time.Millisecond, nil)
	m.ObserveGridBuild("sockshop.prod.carts", 0, false, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.GridBuildsTotal.WithLabelValues("repository", "ok")); got != 1 {
		t.Errorf("repository/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GridBuildsTotal.WithLabelValues("cache", "ok")); got != 1 {
		t.Errorf("cache/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GridBuildsTotal.WithLabelValues("repository", "error")); got != 1 {
		t.Errorf("repository/error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GridCells); got != 12 {
		t.Errorf("grid cells = %v, want 12", got)
	}
}

func TestObserveIngestAndRender(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)

	m.ObserveIngest("pass", nil)
	m.ObserveIngest("", errors.New("invalid"))
	m.ObserveRender("png", 2048, time.Millisecond, nil)
	m.ObserveRender("svg", 0, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.IngestedTotal.WithLabelValues("pass", "ok")); got != 1 {
		t.Errorf("pass/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IngestedTotal.WithLabelValues("unknown", "error")); got != 1 {
		t.Errorf("unknown/error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RendersTotal.WithLabelValues("png", "ok")); got != 1 {
		t.Errorf("png/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RendersTotal.WithLabelValues("svg", "error")); got != 1 {
		t.Errorf("svg/error = %v, want 1", got)
	}
}

func TestWebSocketClientsGauge(t *testing.T) {
	clients := 3
	m := New(prometheus.NewRegistry(), func() int { return clients })

	if got := testutil.ToFloat64(m.WebSocketClients); got != 3 {
		t.Errorf("clients = %v, want 3", got)
	}
	clients = 5
	if got := testutil.ToFloat64(m.WebSocketClients); got != 5 {
		t.Errorf("clients = %v, want 5", got)
	}
}

func TestMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/v1/evaluations/grid", "/api/v1/evaluations/grid", "/missing"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/evaluations/grid", "GET", "200")); got != 2 {
		t.Errorf("grid requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("other", "GET", "404")); got != 1 {
		t.Errorf("other requests = %v, want 1", got)
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/":                               "/",
		"/ws":                             "/ws",
		"/metrics":                        "/metrics",
		"/static/css/app.css":             "/static/*",
		"/api/v1/evaluations":             "/api/v1/evaluations",
		"/api/v1/evaluations/heatmap.png": "/api/v1/evaluations/heatmap.png",
		"/api/v1/refresher/status":        "/api/v1/refresher/*",
		"/api/v1/auth/login":              "/api/v1/auth/*",
		"/api/v1/unknown":                 "/api/v1/*",
		"/wp-admin":                       "other",
	}

	for path, want := range tests {
		if got := normalizeRoute(path); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", path, got, want)
		}
	}
}
