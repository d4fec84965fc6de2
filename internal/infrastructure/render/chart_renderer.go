package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultCellWidth  = 56
	defaultCellHeight = 28
	chartPadding      = 16
	labelGap          = 8
	fontSize          = 10.0
	maxLabelRunes     = 24
	legendSwatch      = 12
)

// ChartRenderer draws the heatmap with go-chart's low-level renderer (PNG or SVG).
type ChartRenderer struct {
	provider    chart.RendererProvider
	contentType string
	cellWidth   int
	cellHeight  int
}

// NewPNGRenderer returns a renderer producing PNG images.
func NewPNGRenderer() *ChartRenderer {
	return &ChartRenderer{
		provider:    chart.PNG,
		contentType: "image/png",
		cellWidth:   defaultCellWidth,
		cellHeight:  defaultCellHeight,
	}
}

// NewSVGRenderer returns a renderer producing SVG documents.
func NewSVGRenderer() *ChartRenderer {
	return &ChartRenderer{
		provider:    chart.SVG,
		contentType: "image/svg+xml",
		cellWidth:   defaultCellWidth,
		cellHeight:  defaultCellHeight,
	}
}

func (r *ChartRenderer) ContentType() string {
	return r.contentType
}

func (r *ChartRenderer) Render(
	ctx context.Context,
	grid service.Grid,
	colorFor service.ColorFunc,
	selection *service.CellKey,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// Measure labels on a scratch canvas to size the real one.
	measure, err := r.provider(1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	measure.SetFont(font)
	measure.SetFontSize(fontSize)

	rowLabelWidth, textHeight := 0, 0
	for _, row := range grid.RowKeys {
		box := measure.MeasureText(truncate(row, maxLabelRunes))
		rowLabelWidth = maxInt(rowLabelWidth, box.Width())
		textHeight = maxInt(textHeight, box.Height())
	}
	cellWidth := r.cellWidth
	for _, col := range grid.ColKeys {
		box := measure.MeasureText(truncate(col, maxLabelRunes))
		textHeight = maxInt(textHeight, box.Height())
		cellWidth = maxInt(cellWidth, box.Width()+labelGap)
	}
	if textHeight == 0 {
		textHeight = int(fontSize)
	}

	gridLeft := chartPadding + rowLabelWidth + labelGap
	gridTop := chartPadding + textHeight + labelGap
	gridWidth := len(grid.ColKeys) * cellWidth
	gridHeight := len(grid.RowKeys) * r.cellHeight

	legendTop := gridTop + gridHeight + chartPadding
	width := maxInt(gridLeft+gridWidth+chartPadding, 320)
	height := legendTop + legendSwatch + chartPadding

	canvas, err := r.provider(width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	canvas.SetFont(font)
	canvas.SetFontSize(fontSize)

	fillRect(canvas, 0, 0, width, height, drawing.ColorWhite, drawing.ColorWhite, 0)

	if grid.IsEmpty() {
		canvas.SetFontColor(drawing.ColorBlack)
		canvas.Text("no evaluations", chartPadding, chartPadding+textHeight)
	}

	canvas.SetFontColor(drawing.ColorBlack)
	for i, col := range grid.ColKeys {
		label := truncate(col, maxLabelRunes)
		box := canvas.MeasureText(label)
		x := gridLeft + i*cellWidth + (cellWidth-box.Width())/2
		canvas.Text(label, x, gridTop-labelGap)
	}

	cells := indexCells(grid)
	var selectedBox *[4]int
	for ri, row := range grid.RowKeys {
		y0 := gridTop + ri*r.cellHeight
		label := truncate(row, maxLabelRunes)
		box := canvas.MeasureText(label)
		canvas.SetFontColor(drawing.ColorBlack)
		canvas.Text(label, gridLeft-labelGap-box.Width(), y0+(r.cellHeight+box.Height())/2)

		for ci, col := range grid.ColKeys {
			x0 := gridLeft + ci*cellWidth
			cell, ok := cells.at(row, col)
			if !ok {
				fillRect(canvas, x0, y0, x0+cellWidth, y0+r.cellHeight, drawing.ColorWhite, emptyCellStroke, 1)
				continue
			}
			token, err := colorFor(cell.Result)
			if err != nil {
				return nil, fmt.Errorf("cell %s/%s: %w", row, col, err)
			}
			fill, err := toDrawingColor(token)
			if err != nil {
				return nil, fmt.Errorf("cell %s/%s: %w", row, col, err)
			}
			fillRect(canvas, x0, y0, x0+cellWidth, y0+r.cellHeight, fill, drawing.ColorWhite, 1)
			if isSelected(selection, row, col) {
				selectedBox = &[4]int{x0, y0, x0 + cellWidth, y0 + r.cellHeight}
			}
		}
	}

	// The selection outline goes last so neighbours do not paint over it.
	if selectedBox != nil {
		strokeRect(canvas, selectedBox[0], selectedBox[1], selectedBox[2], selectedBox[3], drawing.ColorBlack, 3)
	}

	x := chartPadding
	for _, entry := range service.Legend() {
		token, err := colorFor(entry.Result)
		if err != nil {
			return nil, err
		}
		swatch, err := toDrawingColor(token)
		if err != nil {
			return nil, fmt.Errorf("legend %s: %w", entry.Label, err)
		}
		fillRect(canvas, x, legendTop, x+legendSwatch, legendTop+legendSwatch, swatch, swatch, 0)
		x += legendSwatch + labelGap/2
		canvas.SetFontColor(drawing.ColorBlack)
		canvas.Text(entry.Label, x, legendTop+legendSwatch)
		x += canvas.MeasureText(entry.Label).Width() + chartPadding
	}

	var buf bytes.Buffer
	if err := canvas.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

var emptyCellStroke = drawing.Color{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

// toDrawingColor rejects malformed tokens instead of painting them black.
func toDrawingColor(token valueobject.ColorToken) (drawing.Color, error) {
	if err := token.Validate(); err != nil {
		return drawing.Color{}, err
	}
	return drawing.ColorFromHex(strings.TrimPrefix(token.Hex(), "#")), nil
}

func rectPath(canvas chart.Renderer, x0, y0, x1, y1 int) {
	canvas.MoveTo(x0, y0)
	canvas.LineTo(x1, y0)
	canvas.LineTo(x1, y1)
	canvas.LineTo(x0, y1)
	canvas.LineTo(x0, y0)
	canvas.Close()
}

func fillRect(canvas chart.Renderer, x0, y0, x1, y1 int, fill, stroke drawing.Color, strokeWidth float64) {
	canvas.SetFillColor(fill)
	canvas.SetStrokeColor(stroke)
	canvas.SetStrokeWidth(strokeWidth)
	rectPath(canvas, x0, y0, x1, y1)
	if strokeWidth > 0 {
		canvas.FillStroke()
		return
	}
	canvas.Fill()
}

func strokeRect(canvas chart.Renderer, x0, y0, x1, y1 int, stroke drawing.Color, strokeWidth float64) {
	canvas.SetStrokeColor(stroke)
	canvas.SetStrokeWidth(strokeWidth)
	rectPath(canvas, x0, y0, x1, y1)
	canvas.Stroke()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
