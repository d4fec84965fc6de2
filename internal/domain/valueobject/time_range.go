package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// TimeRange ограничивает историю оценок по времени (Value Object)
// Иммутабельный объект
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	return TimeRange{
		start: start.UTC(),
		end:   end.UTC(),
	}, nil
}

// NewTimeRangeFromDuration создает окно от now-duration до now
func NewTimeRangeFromDuration(duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errors.New("duration must be positive")
	}

	now := time.Now().UTC()
	return TimeRange{start: now.Add(-duration), end: now}, nil
}

// ParseTimeRange разбирает границы из параметров запроса (RFC3339).
// Пустая строка означает открытую границу: from = начало эпохи, to = сейчас.
func ParseTimeRange(from, to string) (TimeRange, error) {
	start := time.Unix(0, 0).UTC()
	end := time.Now().UTC()

	if from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return TimeRange{}, fmt.Errorf("invalid from: %w", err)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return TimeRange{}, fmt.Errorf("invalid to: %w", err)
		}
		end = parsed
	}

	return NewTimeRange(start, end)
}

// Start возвращает начальное время
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End возвращает конечное время
func (tr TimeRange) End() time.Time {
	return tr.end
}

// IsZero сообщает, что диапазон не задан
func (tr TimeRange) IsZero() bool {
	return tr.start.IsZero() && tr.end.IsZero()
}

// Duration возвращает длительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Contains проверяет, попадает ли время оценки в диапазон (границы включены)
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && !t.After(tr.end)
}
