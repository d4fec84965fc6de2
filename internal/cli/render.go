package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/render"
)

type renderOptions struct {
	input      string
	format     string
	output     string
	selected   string
	rows       string
	timeLayout string
	canonical  bool
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a heatmap from an evaluation history file",
		Example: `  # Colored heatmap in the terminal
  heatmapctl render --input history.json

  # PNG with the score cell of one evaluation highlighted
  heatmapctl render -i history.yaml -f png -o heatmap.png --selected "score|2026-04-02T09:30:00Z"

  # Grid JSON in first-seen row order
  heatmapctl render -i history.json -f json --canonical=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "History file (JSON or YAML list of evaluation events)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "terminal", "Output format (terminal, png, svg, json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&opts.selected, "selected", "", "Highlight cell as row|col")
	cmd.Flags().StringVar(&opts.rows, "rows", "score,response time p95", "Canonical row order, comma separated")
	cmd.Flags().StringVar(&opts.timeLayout, "time-layout", time.RFC3339, "Column label layout for unlabeled evaluations")
	cmd.Flags().BoolVar(&opts.canonical, "canonical", true, "Put canonical rows first")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
	selection, err := parseSelected(opts.selected)
	if err != nil {
		return err
	}

	events, err := loadHistory(opts.input)
	if err != nil {
		return err
	}
	records, scope, err := toRecords(events)
	if err != nil {
		return err
	}

	builder := service.NewGridBuilder(opts.timeLayout, splitRows(opts.rows)...)
	if !opts.canonical {
		builder = builder.WithoutCanonicalOrder()
	}
	grid, err := builder.Build(records)
	if err != nil {
		return fmt.Errorf("build grid: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	var body []byte
	switch port.RenderFormat(strings.ToLower(opts.format)) {
	case port.FormatTerminal:
		body, err = render.NewTerminalRenderer(lipgloss.NewRenderer(out)).Render(cmd.Context(), grid, service.ColorFor, selection)
	case port.FormatPNG:
		body, err = render.NewPNGRenderer().Render(cmd.Context(), grid, service.ColorFor, selection)
	case port.FormatSVG:
		body, err = render.NewSVGRenderer().Render(cmd.Context(), grid, service.ColorFor, selection)
	case "json":
		body, err = gridJSON(scope, grid, selection)
	default:
		return fmt.Errorf("unknown format: %s (use: terminal, png, svg, json)", opts.format)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.format, err)
	}

	if _, err := out.Write(body); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if opts.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Heatmap written to %s (%d rows, %d columns)\n", opts.output, len(grid.RowKeys), len(grid.ColKeys))
	}
	return nil
}

func gridJSON(scope valueobject.Scope, grid service.Grid, selection *service.CellKey) ([]byte, error) {
	gridDTO, err := dto.NewGridDTO(scope, grid, service.ColorFor, selection)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(gridDTO, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func parseSelected(raw string) (*service.CellKey, error) {
	if raw == "" {
		return nil, nil
	}
	row, col, ok := strings.Cut(raw, "|")
	if !ok || row == "" || col == "" {
		return nil, fmt.Errorf("--selected must be row|col, got %q", raw)
	}
	return &service.CellKey{RowKey: row, ColKey: col}, nil
}

func splitRows(raw string) []string {
	rows := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			rows = append(rows, part)
		}
	}
	return rows
}
