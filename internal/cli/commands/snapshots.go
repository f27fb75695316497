package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/state"
)

// SnapshotsOptions holds options for the snapshots command.
type SnapshotsOptions struct {
	Prune int
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand() *cobra.Command {
	opts := &SnapshotsOptions{}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List or prune stored snapshots",
		Example: `  # List snapshots, newest first
  dark snapshots

  # Keep only the newest 5
  dark snapshots --prune 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshots(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "Keep only the newest N snapshots")

	return cmd
}

func runSnapshots(cmd *cobra.Command, opts *SnapshotsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	r := cmdCtx.Renderer

	if cmd.Flags().Changed("prune") {
		removed, err := cmdCtx.Engine.Prune(ctx, opts.Prune)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
		if r.EffectiveMode() != output.ModeJSON {
			r.Success(fmt.Sprintf("Removed %d snapshots", removed))
		}
	}

	snaps, err := cmdCtx.Engine.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	return renderSnapshots(r, snaps)
}

func renderSnapshots(r *output.Renderer, snaps []state.SnapshotInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		if snaps == nil {
			snaps = []state.SnapshotInfo{}
		}
		return r.JSON(snaps)
	}

	r.Header(1, "Snapshots")
	if len(snaps) == 0 {
		r.Muted("No snapshots yet")
		return nil
	}

	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		rows[i] = []string{
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(s.Nodes),
			strconv.Itoa(s.Datastores),
		}
	}
	r.Table([]string{"ID", "Created", "Nodes", "Datastores"}, rows)
	return nil
}
