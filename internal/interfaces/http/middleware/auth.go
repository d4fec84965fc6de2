package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AuthConfig разделяет доступ на чтение (дашборд) и запись (прием оценок, архивация).
type AuthConfig struct {
	Enabled bool
	// BearerToken открывает дашборд: login, cookie, Bearer, ?token= для WebSocket.
	BearerToken string
	// IngestToken - токен CI/CD пайплайнов. Если задан, запись принимается только с ним.
	IngestToken string
}

const AuthCookieName = "evaldash_auth_token"

// Access - уровень доступа запроса. Запись включает чтение.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "none"
	}
}

// RequiredAccess: безопасные методы читают, остальные пишут
func RequiredAccess(method string) Access {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return AccessRead
	default:
		return AccessWrite
	}
}

// Grant определяет доступ по токену запроса.
// Cookie и query-параметр дают только чтение: запись принимается из заголовка Authorization.
func Grant(r *http.Request, cfg AuthConfig) Access {
	if !cfg.Enabled {
		return AccessWrite
	}

	readToken := strings.TrimSpace(cfg.BearerToken)
	ingestToken := strings.TrimSpace(cfg.IngestToken)

	if header := bearerToken(r); header != "" {
		switch {
		case ingestToken != "" && header == ingestToken:
			return AccessWrite
		case readToken != "" && header == readToken:
			if ingestToken == "" {
				return AccessWrite
			}
			return AccessRead
		}
	}

	if readToken != "" && sessionToken(r) == readToken {
		return AccessRead
	}
	return AccessNone
}

// CheckAccess возвращает ErrUnauthorized без валидного токена и ErrForbidden при недостаточном доступе.
func CheckAccess(r *http.Request, cfg AuthConfig, need Access) error {
	got := Grant(r, cfg)
	switch {
	case got >= need:
		return nil
	case got == AccessNone:
		return ErrUnauthorized
	default:
		return ErrForbidden
	}
}

// Auth защищает endpoint: уровень доступа выводится из HTTP-метода.
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			need := RequiredAccess(r.Method)
			err := CheckAccess(r, cfg, need)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrForbidden):
				log.Warn("Forbidden request",
					"path", r.URL.Path,
					"method", r.Method,
					"need", need.String(),
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Forbidden: ingest token required", http.StatusForbidden)
			default:
				log.Warn("Unauthorized request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="evaluation-dashboard"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			}
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(AuthCookieName); err == nil {
		if value := strings.TrimSpace(c.Value); value != "" {
			return value
		}
	}

	// Для WebSocket браузер не может отправить кастомный Authorization header через new WebSocket().
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// HasSession сообщает, что запрос несет cookie дашборда
func HasSession(r *http.Request) bool {
	c, err := r.Cookie(AuthCookieName)
	return err == nil && strings.TrimSpace(c.Value) != ""
}

func WriteAuthCookie(w http.ResponseWriter, token string, secure bool, maxAgeSeconds int) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAgeSeconds,
	})
}

func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	WriteAuthCookie(w, "", secure, -1)
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
