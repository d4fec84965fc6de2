package port

import "github.com/dreschagin/evaluation-dashboard/internal/application/dto"

// NotificationService определяет интерфейс для отправки обновлений heatmap (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// BroadcastGrid отправляет пересобранную сетку всем подписчикам сервиса
	BroadcastGrid(grid *dto.GridDTO)

	// BroadcastEvaluation отправляет краткую информацию о новой оценке
	BroadcastEvaluation(summary *dto.EvaluationSummaryDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
