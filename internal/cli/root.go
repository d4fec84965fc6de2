package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand собирает дерево команд heatmapctl
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "heatmapctl",
		Short: "Render quality-gate evaluation heatmaps offline",
		Long: `heatmapctl builds the evaluation heatmap from an exported history file
and renders it to the terminal, PNG, SVG or grid JSON.

The history file is a JSON or YAML list of evaluation.finished events,
the same payload the dashboard accepts on POST /api/v1/evaluations.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRenderCommand())
	return root
}

// Execute запускает CLI с контекстом, отменяемым по сигналу
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
