package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

var glyphs = map[valueobject.ResultCategory]string{
	valueobject.Failed:  "✗",
	valueobject.Warning: "!",
	valueobject.Passed:  "✓",
}

// TerminalRenderer draws the heatmap as colored text. Every cell carries a glyph
// so the grid stays readable when the output has no color profile.
type TerminalRenderer struct {
	renderer *lipgloss.Renderer
}

// NewTerminalRenderer uses r for color detection; nil means the default stdout renderer.
func NewTerminalRenderer(r *lipgloss.Renderer) *TerminalRenderer {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &TerminalRenderer{renderer: r}
}

func (t *TerminalRenderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (t *TerminalRenderer) Render(
	ctx context.Context,
	grid service.Grid,
	colorFor service.ColorFunc,
	selection *service.CellKey,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	header := t.renderer.NewStyle().Bold(true)

	if grid.IsEmpty() {
		sb.WriteString("no evaluations\n")
	} else {
		labelWidth := 0
		for _, row := range grid.RowKeys {
			labelWidth = maxInt(labelWidth, lipgloss.Width(truncate(row, maxLabelRunes)))
		}
		label := t.renderer.NewStyle().Width(labelWidth + 1)

		sb.WriteString(label.Render(""))
		for i := range grid.ColKeys {
			sb.WriteString(header.Render(fmt.Sprintf("%3d", i+1)))
		}
		sb.WriteString("\n")

		cells := indexCells(grid)
		for _, row := range grid.RowKeys {
			sb.WriteString(label.Render(truncate(row, maxLabelRunes)))
			for _, col := range grid.ColKeys {
				cell, ok := cells.at(row, col)
				if !ok {
					sb.WriteString("  ·")
					continue
				}
				token, err := colorFor(cell.Result)
				if err != nil {
					return nil, fmt.Errorf("cell %s/%s: %w", row, col, err)
				}
				text := " " + glyphs[cell.Result] + " "
				if isSelected(selection, row, col) {
					text = "[" + glyphs[cell.Result] + "]"
				}
				sb.WriteString(t.renderer.NewStyle().
					Background(lipgloss.Color(token.Hex())).
					Foreground(lipgloss.Color("#000000")).
					Render(text))
			}
			sb.WriteString("\n")
		}

		sb.WriteString("\n")
		for i, col := range grid.ColKeys {
			sb.WriteString(fmt.Sprintf("%3d  %s\n", i+1, col))
		}

		if selection != nil {
			if cell, ok := grid.Lookup(*selection); ok {
				sb.WriteString("\n")
				sb.WriteString(header.Render(service.DescribeCell(cell)))
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("\n")
	counts := grid.Counts()
	for i, entry := range service.Legend() {
		token, err := colorFor(entry.Result)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			sb.WriteString("  ")
		}
		swatch := t.renderer.NewStyle().
			Background(lipgloss.Color(token.Hex())).
			Foreground(lipgloss.Color("#000000")).
			Render(" " + glyphs[entry.Result] + " ")
		sb.WriteString(fmt.Sprintf("%s %s (%d)", swatch, entry.Label, counts[entry.Result]))
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}
