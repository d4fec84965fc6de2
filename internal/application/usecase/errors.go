package usecase

import (
	"errors"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

var (
	// ErrUnsupportedFormat возвращается для неизвестного формата рендеринга
	ErrUnsupportedFormat = errors.New("unsupported render format")

	// ErrStorageNotConfigured возвращается, если архив снимков отключен
	ErrStorageNotConfigured = errors.New("snapshot storage is not configured")

	// ErrInvalidInput - ошибка параметров команды
	ErrInvalidInput = errors.New("invalid input")

	// ErrHistoryUnbuildable - сохраненная история сервиса не собирается в сетку.
	// Это ошибка сервера: запрос клиента корректен.
	ErrHistoryUnbuildable = errors.New("stored evaluation history cannot be built")
)

// IsValidationError сообщает, что ошибка вызвана входными данными (HTTP 400).
// Ошибки сохраненной истории сюда не относятся, даже если внутри лежит ошибка записи.
func IsValidationError(err error) bool {
	if err == nil || errors.Is(err, ErrHistoryUnbuildable) {
		return false
	}
	return errors.Is(err, entity.ErrInvalidRecord) ||
		errors.Is(err, valueobject.ErrInvalidCategory) ||
		errors.Is(err, valueobject.ErrInvalidScope) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInvalidInput)
}
