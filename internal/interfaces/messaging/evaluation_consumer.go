package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

// EvaluationIngester принимает одно событие оценки
type EvaluationIngester interface {
	Execute(ctx context.Context, event *dto.EvaluationEventDTO) (*usecase.IngestResult, error)
}

// EvaluationConsumer принимает события evaluation.finished из брокера
type EvaluationConsumer struct {
	ingester EvaluationIngester
	logger   *logger.Logger
}

// NewEvaluationConsumer создает обработчик событий оценки
func NewEvaluationConsumer(ingester EvaluationIngester, logger *logger.Logger) *EvaluationConsumer {
	return &EvaluationConsumer{
		ingester: ingester,
		logger:   logger,
	}
}

// Handle реализует port.EventHandler
func (c *EvaluationConsumer) Handle(ctx context.Context, subject string, payload []byte) error {
	var event dto.EvaluationEventDTO
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: decode event from %s: %v", usecase.ErrInvalidInput, subject, err)
	}

	result, err := c.ingester.Execute(ctx, &event)
	if err != nil {
		if usecase.IsValidationError(err) {
			// Повторная доставка не исправит невалидное событие
			c.logger.Warn("Dropped invalid evaluation event", "subject", subject, "id", event.ID, "error", err.Error())
			return nil
		}
		return fmt.Errorf("ingest evaluation %s: %w", event.ID, err)
	}

	if result.Duplicate {
		c.logger.Debug("Duplicate evaluation event skipped", "subject", subject, "id", event.ID)
		return nil
	}

	c.logger.Info("Evaluation event ingested",
		"subject", subject,
		"id", result.Evaluation.ID,
		"scope", result.Evaluation.Project+"."+result.Evaluation.Stage+"."+result.Evaluation.Service,
	)
	return nil
}
