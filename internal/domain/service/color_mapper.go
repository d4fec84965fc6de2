package service

import "github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"

// Палитра heatmap. Единственное место, где заданы цвета результатов.
// Цвет зависит только от категории, не от значения метрики или порога:
// пороги меняются со временем и перекрасили бы историю задним числом.
const (
	ColorFailed  valueobject.ColorToken = "#dc172a"
	ColorWarning valueobject.ColorToken = "#e6be00"
	ColorPassed  valueobject.ColorToken = "#7dc540"
)

// ColorFunc - сигнатура маппера цвета, передаваемая рендерерам
type ColorFunc func(valueobject.ResultCategory) (valueobject.ColorToken, error)

// ColorFor возвращает цвет ячейки для категории результата
func ColorFor(rc valueobject.ResultCategory) (valueobject.ColorToken, error) {
	switch rc {
	case valueobject.Failed:
		return ColorFailed, nil
	case valueobject.Warning:
		return ColorWarning, nil
	case valueobject.Passed:
		return ColorPassed, nil
	default:
		return "", rc.Validate()
	}
}

// LegendEntry - элемент легенды heatmap
type LegendEntry struct {
	Result valueobject.ResultCategory
	Label  string
	Color  valueobject.ColorToken
}

// Legend возвращает легенду в порядке бакетизации
func Legend() []LegendEntry {
	return []LegendEntry{
		{Result: valueobject.Failed, Label: "failed", Color: ColorFailed},
		{Result: valueobject.Warning, Label: "warning", Color: ColorWarning},
		{Result: valueobject.Passed, Label: "succeeded", Color: ColorPassed},
	}
}

// Palette возвращает цвета всех категорий
func Palette() map[valueobject.ResultCategory]valueobject.ColorToken {
	palette := make(map[valueobject.ResultCategory]valueobject.ColorToken, 3)
	for _, e := range Legend() {
		palette[e.Result] = e.Color
	}
	return palette
}
