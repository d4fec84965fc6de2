package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/entity"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// loadHistory читает файл истории; формат определяется по расширению (.yaml/.yml, иначе JSON)
func loadHistory(path string) ([]dto.EvaluationEventDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var events []dto.EvaluationEventDTO
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("parse yaml history: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("parse json history: %w", err)
		}
	}
	return events, nil
}

// toRecords конвертирует события в записи одного сервиса в хронологическом порядке
func toRecords(events []dto.EvaluationEventDTO) ([]*entity.EvaluationRecord, valueobject.Scope, error) {
	records, err := dto.EventsToEntities(events)
	if err != nil {
		return nil, valueobject.Scope{}, err
	}
	if len(records) == 0 {
		return records, valueobject.Scope{}, nil
	}

	scope := records[0].Scope()
	for _, r := range records[1:] {
		if r.Scope() != scope {
			return nil, valueobject.Scope{}, fmt.Errorf("history mixes scopes %s and %s", scope.Key(), r.Scope().Key())
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EvaluatedAt().Before(records[j].EvaluatedAt())
	})
	return records, scope, nil
}
