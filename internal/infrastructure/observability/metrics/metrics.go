package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors used by the dashboard.
// It implements port.GridObserver.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	GridBuildsTotal    *prometheus.CounterVec
	GridBuildDuration  prometheus.Histogram
	GridCells          prometheus.Gauge
	IngestedTotal      *prometheus.CounterVec
	RendersTotal       *prometheus.CounterVec
	RenderBytes        *prometheus.HistogramVec
	RateLimitDropped   prometheus.Counter
	WebSocketClients   prometheus.GaugeFunc
}

func New(registry prometheus.Registerer, clientCount func() int) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaldash_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaldash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		GridBuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaldash_grid_builds_total",
			Help: "Total number of evaluation grid builds by source and outcome.",
		}, []string{"source", "outcome"}),
		GridBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaldash_grid_build_duration_seconds",
			Help:    "Evaluation grid build duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GridCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evaldash_grid_cells",
			Help: "Number of cells in the last built grid.",
		}),
		IngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaldash_evaluations_ingested_total",
			Help: "Total number of ingested evaluations by overall result.",
		}, []string{"result", "outcome"}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaldash_heatmap_renders_total",
			Help: "Total number of heatmap renders by format and outcome.",
		}, []string{"format", "outcome"}),
		RenderBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaldash_heatmap_render_bytes",
			Help:    "Size of rendered heatmaps in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"format"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaldash_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
	}

	collectors := []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDurationSec,
		m.GridBuildsTotal,
		m.GridBuildDuration,
		m.GridCells,
		m.IngestedTotal,
		m.RendersTotal,
		m.RenderBytes,
		m.RateLimitDropped,
	}

	if clientCount != nil {
		m.WebSocketClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "evaldash_websocket_clients",
			Help: "Number of connected WebSocket clients.",
		}, func() float64 { return float64(clientCount()) })
		collectors = append(collectors, m.WebSocketClients)
	}

	registry.MustRegister(collectors...)

	return m
}

// ObserveGridBuild records one grid build. Scope is not used as a label to bound cardinality.
func (m *Metrics) ObserveGridBuild(_ string, cells int, cached bool, duration time.Duration, err error) {
	source := "repository"
	if cached {
		source = "cache"
	}
	m.GridBuildsTotal.WithLabelValues(source, outcome(err)).Inc()
	if err != nil {
		return
	}
	m.GridBuildDuration.Observe(duration.Seconds())
	m.GridCells.Set(float64(cells))
}

func (m *Metrics) ObserveIngest(result string, err error) {
	if result == "" {
		result = "unknown"
	}
	m.IngestedTotal.WithLabelValues(result, outcome(err)).Inc()
}

func (m *Metrics) ObserveRender(format string, bytes int, _ time.Duration, err error) {
	m.RendersTotal.WithLabelValues(format, outcome(err)).Inc()
	if err == nil {
		m.RenderBytes.WithLabelValues(format).Observe(float64(bytes))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/" || path == "/ws" || path == "/healthz" || path == "/readyz" || path == "/metrics":
		return path
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case strings.HasPrefix(path, "/api/v1/evaluations/"):
		return path
	case path == "/api/v1/evaluations":
		return path
	case strings.HasPrefix(path, "/api/v1/refresher/"):
		return "/api/v1/refresher/*"
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return "/api/v1/auth/*"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
