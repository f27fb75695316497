package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/output"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	var cursor string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored graph",
		Long: `Load the newest snapshot and print its nodes and datastores.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format
  - JSON: The same projection the editor receives`,
		Example: `  # Show the graph
  dark show

  # Mark a node as the cursor
  dark show --cursor users

  # Output as JSON
  dark show -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			r := cmdCtx.Renderer
			if r.EffectiveMode() != output.ModeJSON {
				r.Header(1, "Graph")
				r.KeyValue("State", cmdCtx.Cfg.State.Driver+" "+cmdCtx.Cfg.State.DSN)
				r.Println("")
			}
			return renderView(r, cmdCtx.Engine.View(cursor))
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "Node to mark as the cursor")

	return cmd
}
