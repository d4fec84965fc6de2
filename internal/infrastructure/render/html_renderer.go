package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
)

// HTMLRenderer renders the heatmap as an HTML fragment (table + legend).
// Hover text is the cell description; selection is marked with a CSS class.
type HTMLRenderer struct{}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *HTMLRenderer) Render(
	ctx context.Context,
	grid service.Grid,
	colorFor service.ColorFunc,
	selection *service.CellKey,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := HeatmapFragment(grid, colorFor, selection).Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HeatmapFragment returns the heatmap table as a templ component so pages can embed it.
func HeatmapFragment(grid service.Grid, colorFor service.ColorFunc, selection *service.CellKey) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var sb strings.Builder
		sb.WriteString(`<div class="heatmap">`)

		if grid.IsEmpty() {
			sb.WriteString(`<p class="heatmap-empty">No evaluations yet</p>`)
		} else {
			if err := writeTable(&sb, grid, colorFor, selection); err != nil {
				return err
			}
		}

		if err := writeLegend(&sb, grid, colorFor); err != nil {
			return err
		}
		sb.WriteString(`</div>`)

		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func writeTable(sb *strings.Builder, grid service.Grid, colorFor service.ColorFunc, selection *service.CellKey) error {
	cells := indexCells(grid)

	sb.WriteString(`<table class="heatmap-grid"><thead><tr><th></th>`)
	for _, col := range grid.ColKeys {
		sb.WriteString(`<th scope="col">`)
		sb.WriteString(templ.EscapeString(col))
		sb.WriteString(`</th>`)
	}
	sb.WriteString(`</tr></thead><tbody>`)

	for _, row := range grid.RowKeys {
		sb.WriteString(`<tr><th scope="row">`)
		sb.WriteString(templ.EscapeString(row))
		sb.WriteString(`</th>`)

		for _, col := range grid.ColKeys {
			cell, ok := cells.at(row, col)
			if !ok {
				sb.WriteString(`<td class="cell cell-empty"></td>`)
				continue
			}
			token, err := colorFor(cell.Result)
			if err != nil {
				return fmt.Errorf("cell %s/%s: %w", row, col, err)
			}

			class := "cell cell-" + cell.Result.WireValue()
			if isSelected(selection, row, col) {
				class += " selected"
			}
			fmt.Fprintf(sb,
				`<td class="%s" style="background-color: %s" title="%s" data-row="%s" data-col="%s"></td>`,
				class,
				templ.EscapeString(token.Hex()),
				templ.EscapeString(service.DescribeCell(cell)),
				templ.EscapeString(row),
				templ.EscapeString(col),
			)
		}
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)

	if selection != nil {
		if cell, ok := grid.Lookup(*selection); ok {
			sb.WriteString(`<p class="heatmap-selection">`)
			sb.WriteString(templ.EscapeString(service.DescribeCell(cell)))
			sb.WriteString(`</p>`)
		}
	}
	return nil
}

func writeLegend(sb *strings.Builder, grid service.Grid, colorFor service.ColorFunc) error {
	counts := grid.Counts()
	sb.WriteString(`<ul class="heatmap-legend">`)
	for _, entry := range service.Legend() {
		token, err := colorFor(entry.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb,
			`<li><span class="swatch" style="background-color: %s"></span>%s <span class="count">%d</span></li>`,
			templ.EscapeString(token.Hex()),
			templ.EscapeString(entry.Label),
			counts[entry.Result],
		)
	}
	sb.WriteString(`</ul>`)
	return nil
}
