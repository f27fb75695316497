// Package state persists the graph as snapshots.
//
// Every commit writes a complete snapshot and immediately reads it back
// (CommitAndVerify), so state that does not survive serialization is
// caught when it is introduced instead of at the next cold start.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Store persists graph snapshots.
type Store interface {
	// Load returns the graph from the most recent snapshot, or an empty
	// graph when none exists.
	Load(ctx context.Context) (*graph.Graph, error)
	// Save writes g as a new snapshot.
	Save(ctx context.Context, g *graph.Graph) (SnapshotInfo, error)
	// Snapshots lists stored snapshots, newest first.
	Snapshots(ctx context.Context) ([]SnapshotInfo, error)
	// Prune keeps the newest keep snapshots and returns how many were removed.
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Nodes      int       `json:"nodes"`
	Datastores int       `json:"datastores"`
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Config configures a store.
type Config struct {
	// Driver is one of DriverSQLite, DriverPostgres or DriverFile.
	Driver string
	// DSN is a file path for sqlite and file, a connection string for postgres.
	DSN string
	// KeepSnapshots bounds history after each save; 0 keeps everything.
	KeepSnapshots int
	// Fields resolves field types when snapshots are loaded.
	Fields *fields.Registry
	// Logger is optional.
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Fields == nil {
		c.Fields = fields.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// Open opens the store selected by cfg.Driver, running migrations for SQL
// drivers.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg.applyDefaults()

	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, cfg)
	case DriverFile:
		return NewFileStore(cfg)
	default:
		return nil, fmt.Errorf("unknown state driver %q", cfg.Driver)
	}
}

// CommitAndVerify saves g, then reads the snapshot back and checks that it
// matches g. The returned graph is the freshly loaded copy and should
// replace g in memory.
func CommitAndVerify(ctx context.Context, s Store, g *graph.Graph) (*graph.Graph, SnapshotInfo, error) {
	info, err := s.Save(ctx, g)
	if err != nil {
		return nil, info, err
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		return nil, info, core.Wrap(core.KindPersistenceError, err, fmt.Sprintf("read back snapshot %s", info.ID))
	}
	if !loaded.Equal(g) {
		return nil, info, core.Errorf(core.KindPersistenceError, "snapshot %s does not round-trip", info.ID)
	}
	return loaded, info, nil
}
