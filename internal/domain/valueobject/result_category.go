package valueobject

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory возвращается для значения вне трех допустимых категорий
var ErrInvalidCategory = errors.New("invalid result category")

// ResultCategory представляет результат оценки (Value Object)
// Порядок значений используется для бакетизации: Failed < Warning < Passed
type ResultCategory int

const (
	Failed ResultCategory = iota
	Warning
	Passed
)

// ParseResultCategory разбирает значение результата из события оценки
func ParseResultCategory(raw string) (ResultCategory, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fail", "failed":
		return Failed, nil
	case "warning":
		return Warning, nil
	case "pass", "passed":
		return Passed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
}

// Validate проверяет, что значение входит в перечисление
func (rc ResultCategory) Validate() error {
	switch rc {
	case Failed, Warning, Passed:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidCategory, int(rc))
	}
}

// String возвращает имя категории
func (rc ResultCategory) String() string {
	switch rc {
	case Failed:
		return "Failed"
	case Warning:
		return "Warning"
	case Passed:
		return "Passed"
	default:
		return fmt.Sprintf("ResultCategory(%d)", int(rc))
	}
}

// WireValue возвращает значение в формате событий оценки (pass/warning/fail)
func (rc ResultCategory) WireValue() string {
	switch rc {
	case Failed:
		return "fail"
	case Warning:
		return "warning"
	case Passed:
		return "pass"
	default:
		return ""
	}
}

// AllResultCategories возвращает все категории в порядке бакетизации
func AllResultCategories() []ResultCategory {
	return []ResultCategory{Failed, Warning, Passed}
}
