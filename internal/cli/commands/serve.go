package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/config"
	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/internal/ui"
	"github.com/leapstack-labs/dark/internal/ui/features/endpoints"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoBrowser bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Start the graph editor",
		Long: `Start a local web server hosting the graph editor.

The server provides:
- The editor canvas at /admin/ui
- The command RPC endpoint at /admin/api/rpc
- Live updates to every open editor after each commit
- Routes for configured datasource and datasink endpoints`,
		Example: `  # Start on the default port
  dark serve

  # Start on a custom port with a file snapshot
  dark serve --port 3000 --state-driver file --state-dsn graph.yaml

  # Start without auto-opening the browser
  dark serve --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().Bool("watch", true, "Reload the graph when the snapshot file changes (file driver)")
	cmd.Flags().Bool("dev", false, "Serve assets uncached and enable live reload")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	notify := notifier.New()

	cmdCtx, cleanup, err := NewCommandContext(cmd, func(engine.Commit) { notify.Broadcast() })
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg

	var watchPath string
	if cfg.State.Driver == state.DriverFile && cfg.Server.Watch {
		watchPath = cfg.State.DSN
	}

	eps := toEndpoints(cfg.Endpoints)
	server := ui.NewServer(ui.Config{
		Engine:        cmdCtx.Engine,
		Port:          cfg.Server.Port,
		SessionSecret: cfg.Server.SessionSecret,
		WatchPath:     watchPath,
		Dev:           cfg.Server.Dev,
		Endpoints:     eps,
		Runner:        endpoints.NewDatastoreRunner(cmdCtx.Engine, eps),
		Notifier:      notify,
		Logger:        cmdCtx.Logger,
	})

	if cfg.Server.SessionSecret == config.DefaultSessionSecret {
		cmdCtx.Renderer.Warning("using the default session secret; set DARK_SERVER__SESSION_SECRET")
	}

	url := fmt.Sprintf("http://localhost:%d/admin/ui", cfg.Server.Port)
	if !opts.NoBrowser {
		go openBrowser(url)
	}

	cmdCtx.Renderer.Println("Starting editor on " + url)
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// toEndpoints converts validated endpoint config into routes.
func toEndpoints(cfgs []config.EndpointConfig) []endpoints.Endpoint {
	out := make([]endpoints.Endpoint, 0, len(cfgs))
	for _, c := range cfgs {
		role, err := graph.ParseRole(c.Role)
		if err != nil {
			continue
		}
		out = append(out, endpoints.Endpoint{
			Name:      c.Name,
			Role:      role,
			Method:    c.EffectiveMethod(),
			Path:      c.Path,
			Redirect:  c.Redirect,
			Datastore: c.Datastore,
		})
	}
	return out
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
