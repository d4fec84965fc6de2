package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
)

// parseScope читает project/stage/service из query string
func parseScope(q url.Values) (valueobject.Scope, error) {
	return valueobject.NewScope(q.Get("project"), q.Get("stage"), q.Get("service"))
}

// parseGridQuery разбирает параметры сетки: scope, limit, canonical, from/to
func parseGridQuery(q url.Values, defaultCanonical bool) (usecase.GridQuery, error) {
	scope, err := parseScope(q)
	if err != nil {
		return usecase.GridQuery{}, err
	}

	query := usecase.GridQuery{Scope: scope, Canonical: defaultCanonical}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return usecase.GridQuery{}, fmt.Errorf("%w: limit must be a non-negative integer", usecase.ErrInvalidInput)
		}
		query.Limit = limit
	}

	if raw := q.Get("canonical"); raw != "" {
		canonical, err := strconv.ParseBool(raw)
		if err != nil {
			return usecase.GridQuery{}, fmt.Errorf("%w: canonical must be a boolean", usecase.ErrInvalidInput)
		}
		query.Canonical = canonical
	}

	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		timeRange, err := valueobject.ParseTimeRange(from, to)
		if err != nil {
			return usecase.GridQuery{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
		}
		query.TimeRange = timeRange
	}

	return query, nil
}

// parseSelection разбирает selected=row|col. Пустое значение - нет выделения.
func parseSelection(q url.Values) (*service.CellKey, error) {
	raw := q.Get("selected")
	if raw == "" {
		return nil, nil
	}
	row, col, ok := strings.Cut(raw, "|")
	if !ok || row == "" || col == "" {
		return nil, fmt.Errorf("%w: selected must be row|col", usecase.ErrInvalidInput)
	}
	return &service.CellKey{RowKey: row, ColKey: col}, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	middleware.WriteJSON(w, status, map[string]string{"error": message})
}
