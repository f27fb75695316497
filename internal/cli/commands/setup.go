package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/config"
	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext opens the configured state store and an engine over it.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, onCommit func(engine.Commit)) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger, onCommit)
	if err != nil {
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close state store", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't touch the state store.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults when commands
// run without the root pre-run (tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		State: config.StateConfig{
			Driver:        config.DefaultDriver,
			DSN:           config.DefaultSQLiteDSN,
			KeepSnapshots: config.DefaultKeepSnapshots,
		},
		Server: config.ServerConfig{
			Port:          config.DefaultPort,
			Watch:         true,
			SessionSecret: config.DefaultSessionSecret,
		},
		Log:          config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		OutputFormat: config.DefaultOutput,
	}
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, onCommit func(engine.Commit)) (*engine.Engine, error) {
	if dir := cfg.StateDir(); cfg.State.Driver != state.DriverPostgres && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store, err := state.Open(ctx, state.Config{
		Driver:        cfg.State.Driver,
		DSN:           cfg.State.DSN,
		KeepSnapshots: cfg.State.KeepSnapshots,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	eng, err := engine.New(ctx, engine.Config{
		Store:    store,
		Logger:   logger,
		OnCommit: onCommit,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return eng, nil
}
