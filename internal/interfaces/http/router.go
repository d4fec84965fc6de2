package http

import (
	"io/fs"
	"net/http"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/internal/refresher"
	"github.com/dreschagin/evaluation-dashboard/pkg/config"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux                  *http.ServeMux
	dashboardHandler     *handler.DashboardHandler
	websocketHandler     *handler.WebSocketHandler
	evaluationAPIHandler *handler.EvaluationAPIHandler
	snapshotAPIHandler   *handler.SnapshotAPIHandler
	authAPIHandler       *handler.AuthAPIHandler
	healthHandler        *handler.HealthHandler
	refresherHandler     *refresher.Handler
	metrics              *metrics.Metrics
	metricsHandler       http.Handler
	writeLimiter         *middleware.IPRateLimiter
	security             config.SecurityConfig
	logger               *logger.Logger
}

// RouterOptions - необязательные части роутера (nil отключает)
type RouterOptions struct {
	RefresherHandler *refresher.Handler
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	WriteLimiter     *middleware.IPRateLimiter
}

// NewRouter создает новый router
func NewRouter(
	dashboardHandler *handler.DashboardHandler,
	websocketHandler *handler.WebSocketHandler,
	evaluationAPIHandler *handler.EvaluationAPIHandler,
	snapshotAPIHandler *handler.SnapshotAPIHandler,
	authAPIHandler *handler.AuthAPIHandler,
	healthHandler *handler.HealthHandler,
	opts RouterOptions,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                  http.NewServeMux(),
		dashboardHandler:     dashboardHandler,
		websocketHandler:     websocketHandler,
		evaluationAPIHandler: evaluationAPIHandler,
		snapshotAPIHandler:   snapshotAPIHandler,
		authAPIHandler:       authAPIHandler,
		healthHandler:        healthHandler,
		refresherHandler:     opts.RefresherHandler,
		metrics:              opts.Metrics,
		metricsHandler:       opts.MetricsHandler,
		writeLimiter:         opts.WriteLimiter,
		security:             security,
		logger:               logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Static assets are embedded into the binary.
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("failed to initialize embedded static assets: " + err.Error())
	}
	rt.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Probes and metrics are unauthenticated.
	rt.mux.HandleFunc("/healthz", rt.healthHandler.Healthz)
	rt.mux.HandleFunc("/readyz", rt.healthHandler.Readyz)
	if rt.metricsHandler != nil {
		rt.mux.Handle("/metrics", rt.metricsHandler)
	}

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
		IngestToken: rt.security.IngestToken,
	}, rt.logger)

	var onDrop func()
	if rt.metrics != nil {
		onDrop = rt.metrics.RateLimitDropped.Inc
	}
	limited := middleware.RateLimit(rt.writeLimiter, onDrop)

	// Dashboard
	rt.mux.Handle("/", authMiddleware(http.HandlerFunc(rt.dashboardHandler.ShowDashboard)))

	// WebSocket (auth проверяется внутри handler, токен может прийти в query)
	rt.mux.HandleFunc("/ws", rt.websocketHandler.HandleConnection)

	// API endpoints
	rt.mux.HandleFunc("/api/v1/auth/login", rt.authAPIHandler.Login)
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.authAPIHandler.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.authAPIHandler.Status)

	rt.mux.Handle("/api/v1/evaluations", authMiddleware(limited(http.HandlerFunc(rt.evaluationAPIHandler.Ingest))))
	rt.mux.Handle("/api/v1/evaluations/grid", authMiddleware(http.HandlerFunc(rt.evaluationAPIHandler.GetGrid)))
	rt.mux.Handle("/api/v1/evaluations/grid/cell", authMiddleware(http.HandlerFunc(rt.evaluationAPIHandler.GetCell)))
	rt.mux.Handle("/api/v1/evaluations/heatmap.png", authMiddleware(rt.evaluationAPIHandler.Heatmap(port.FormatPNG)))
	rt.mux.Handle("/api/v1/evaluations/heatmap.svg", authMiddleware(rt.evaluationAPIHandler.Heatmap(port.FormatSVG)))
	rt.mux.Handle("/api/v1/evaluations/snapshots", authMiddleware(limited(http.HandlerFunc(rt.snapshotAPIHandler.HandleSnapshots))))

	if rt.refresherHandler != nil {
		rt.refresherHandler.Register(rt.mux, authMiddleware)
	}

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	handler = middleware.Logger(rt.logger)(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
