package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/command"
	"github.com/leapstack-labs/dark/pkg/core"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Cursor string
	Args   string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Execute one editor command against the stored graph",
		Long: `Execute one editor command and commit the result, exactly as the
editor's RPC endpoint would. The updated graph is printed on success.`,
		Example: `  # Add a datastore
  dark exec add_datastore --args '{"name":"users","x":40,"y":80}'

  # Add a field to it
  dark exec add_datastore_field --cursor users --args '{"name":"email","type":"Email"}'

  # Print the graph as JSON
  dark exec load_initial_graph -o json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCommandNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "Node the command is issued against")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "Command arguments as a JSON object")

	return cmd
}

func runExec(cmd *cobra.Command, name string, opts *ExecOptions) error {
	req := core.Request{Command: name}
	if cmd.Flags().Changed("cursor") {
		req.Cursor = core.StringPtr(opts.Cursor)
	}
	if err := json.Unmarshal([]byte(opts.Args), &req.Args); err != nil {
		return core.Wrap(core.KindMalformedArgs, err, "--args must be a JSON object")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	view, err := cmdCtx.Engine.Execute(cmd.Context(), req)
	if err != nil {
		if r.EffectiveMode() == output.ModeJSON {
			_ = r.JSON(core.NewErrorResponse(err))
		}
		return err
	}

	if r.EffectiveMode() != output.ModeJSON {
		if snap, ok := cmdCtx.Engine.LastSnapshot(); ok {
			r.Success(fmt.Sprintf("%s committed as snapshot %s", name, snap.ID))
		}
	}
	return renderView(r, view)
}

func completeCommandNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return command.Names(), cobra.ShellCompDirectiveNoFileComp
}
