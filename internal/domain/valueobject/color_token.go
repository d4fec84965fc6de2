package valueobject

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidColor возвращается для токена не в формате #rrggbb
var ErrInvalidColor = errors.New("invalid color token")

var colorTokenPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ColorToken представляет цвет ячейки heatmap в hex-формате (#rrggbb)
type ColorToken string

// Hex возвращает hex-представление без изменений
func (c ColorToken) Hex() string {
	return string(c)
}

// Validate проверяет формат токена
func (c ColorToken) Validate() error {
	if !colorTokenPattern.MatchString(string(c)) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, string(c))
	}
	return nil
}
