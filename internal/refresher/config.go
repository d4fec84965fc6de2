package refresher

import (
	"fmt"
	"strings"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

// ParseScopes разбирает список вида project/stage/service
func ParseScopes(raw []string) ([]valueobject.Scope, error) {
	scopes := make([]valueobject.Scope, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "/")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid refresher scope %q: expected project/stage/service", item)
		}
		scope, err := valueobject.NewScope(parts[0], parts[1], parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid refresher scope %q: %w", item, err)
		}
		if _, ok := seen[scope.Key()]; ok {
			continue
		}
		seen[scope.Key()] = struct{}{}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}
