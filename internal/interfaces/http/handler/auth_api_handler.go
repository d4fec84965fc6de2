package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// dashboardSessionTTL - срок жизни cookie дашборда
const dashboardSessionTTL = 12 * time.Hour

// AuthAPIHandler открывает и закрывает сессию дашборда.
// Сессия дает только чтение: токен пайплайнов в cookie не записывается.
type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

type authLoginRequest struct {
	Token string `json:"token"`
}

// authStatusResponse описывает доступ текущего запроса
type authStatusResponse struct {
	AuthEnabled         bool   `json:"auth_enabled"`
	Authenticated       bool   `json:"authenticated"`
	Access              string `json:"access"`
	SessionPresent      bool   `json:"session_present"`
	IngestTokenRequired bool   `json:"ingest_token_required"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, log *logger.Logger) *AuthAPIHandler {
	return &AuthAPIHandler{
		authConfig: authConfig,
		logger:     log,
	}
}

// Login POST /api/v1/auth/login - обменивает токен дашборда на cookie
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authConfig.Enabled {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"auth_enabled": false,
		})
		return
	}

	defer r.Body.Close()
	var req authLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token := strings.TrimSpace(req.Token)
	switch {
	case token != "" && token == strings.TrimSpace(h.authConfig.BearerToken):
	case token != "" && token == strings.TrimSpace(h.authConfig.IngestToken):
		h.logger.Warn("Ingest token used for dashboard login", "remote_addr", r.RemoteAddr)
		http.Error(w, "Ingest token cannot open a dashboard session", http.StatusForbidden)
		return
	default:
		h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	middleware.WriteAuthCookie(w, token, r.TLS != nil, int(dashboardSessionTTL.Seconds()))
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"auth_enabled": true,
		"access":       middleware.AccessRead.String(),
	})
}

// Logout POST /api/v1/auth/logout
func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.ClearAuthCookie(w, r.TLS != nil)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Status GET /api/v1/auth/status
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	access := middleware.Grant(r, h.authConfig)
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{
		AuthEnabled:         h.authConfig.Enabled,
		Authenticated:       access >= middleware.AccessRead,
		Access:              access.String(),
		SessionPresent:      middleware.HasSession(r),
		IngestTokenRequired: h.authConfig.Enabled && strings.TrimSpace(h.authConfig.IngestToken) != "",
	})
}
