// Package engine owns the live graph.
// It handles command execution, snapshot commits, and reloads.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/leapstack-labs/dark/internal/command"
	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/frontend"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Engine processes commands one at a time against a single graph.
type Engine struct {
	// mu serializes interpret, project and commit.
	mu sync.Mutex

	graph    *graph.Graph
	last     state.SnapshotInfo
	store    state.Store
	interp   *command.Interpreter
	fields   *fields.Registry
	onCommit func(Commit)

	// Structured logger
	logger *slog.Logger
}

// Commit describes a verified snapshot produced by a command.
type Commit struct {
	// Command is the command that produced the snapshot.
	Command string
	// Snapshot identifies the stored snapshot.
	Snapshot state.SnapshotInfo
	// View is the projection returned to the caller.
	View frontend.View
}

// Config holds engine configuration.
type Config struct {
	// Store persists snapshots (required)
	Store state.Store
	// Fields resolves field types (optional, uses the built-in registry if nil)
	Fields *fields.Registry
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// OnCommit is called after every verified commit (optional)
	OnCommit func(Commit)
}

// New creates an engine holding the graph from the latest snapshot, or an
// empty graph when the store has none.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a snapshot store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg := cfg.Fields
	if reg == nil {
		reg = fields.Default()
	}

	g, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Debug("loaded graph", slog.Int("nodes", g.Len()))

	return &Engine{
		graph:    g,
		store:    cfg.Store,
		interp:   command.NewInterpreter(reg),
		fields:   reg,
		onCommit: cfg.OnCommit,
		logger:   logger,
	}, nil
}

// Execute applies req and returns the projection of the resulting graph.
//
// Mutating commands are committed and verified before Execute returns. If
// the commit fails the in-memory graph keeps the mutation while the store
// still holds the previous snapshot; a restart rolls back to it.
func (e *Engine) Execute(ctx context.Context, req core.Request) (frontend.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("executing command", slog.String("command", req.Command), slog.String("cursor", cursorName(req.Cursor)))

	res, err := e.interp.Apply(e.graph, req)
	if err != nil {
		e.logger.Debug("command failed", slog.String("command", req.Command), slog.String("error", err.Error()))
		return frontend.View{}, err
	}

	view := frontend.Project(res.Graph, res.Cursor)
	if !res.Mutated {
		return view, nil
	}

	if err := e.commit(ctx, req.Command, res.Graph, view); err != nil {
		return frontend.View{}, err
	}
	return view, nil
}

// commit persists g and swaps in the verified copy. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, cmd string, g *graph.Graph, view frontend.View) error {
	verified, info, err := state.CommitAndVerify(ctx, e.store, g)
	if err != nil {
		e.logger.Error("commit failed", slog.String("command", cmd), slog.String("error", err.Error()))
		return err
	}

	e.graph = verified
	e.last = info
	e.logger.Debug("committed snapshot", slog.String("command", cmd), slog.String("snapshot", info.ID))

	if e.onCommit != nil {
		e.onCommit(Commit{Command: cmd, Snapshot: info, View: view})
	}
	return nil
}

// View projects the current graph. A cursor naming a missing node is
// dropped.
func (e *Engine) View(cursor string) frontend.View {
	e.mu.Lock()
	defer e.mu.Unlock()

	var n *graph.Node
	if cursor != "" {
		n, _ = e.graph.GetNode(cursor)
	}
	return frontend.Project(e.graph, n)
}

// Reload replaces the graph with the latest snapshot and reports whether
// it differed from the graph in memory.
func (e *Engine) Reload(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if g.Equal(e.graph) {
		return false, nil
	}

	e.graph = g
	e.logger.Info("reloaded graph from snapshot store", slog.Int("nodes", g.Len()))
	return true, nil
}

// EnsureEndpoint makes sure a datasource or datasink node called name
// exists, creating and committing it when missing. A node of the same name
// with another role is a DuplicateName error.
func (e *Engine) EnsureEndpoint(ctx context.Context, name string, role graph.Role) error {
	if !role.IsEndpoint() {
		return core.Errorf(core.KindMalformedArgs, "role %s is not an endpoint role", role)
	}
	if name == "" {
		return core.Errorf(core.KindMalformedArgs, "endpoint name is empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n, err := e.graph.GetNode(name); err == nil {
		if n.Role != role {
			return core.Errorf(core.KindDuplicateName, "node %q already exists as %s", name, n.Role)
		}
		return nil
	}

	x, y := endpointPosition(role, len(e.graph.NodesWithRole(role)))
	n := graph.NewNode(name, x, y, role)
	if err := e.graph.AddNode(n); err != nil {
		return err
	}

	e.logger.Info("registered endpoint", slog.String("name", name), slog.String("role", role.String()))
	return e.commit(ctx, "register_"+role.String(), e.graph, frontend.Project(e.graph, n))
}

// endpointPosition stacks sources on the left edge of the canvas and sinks
// on the right.
func endpointPosition(role graph.Role, index int) (float64, float64) {
	const (
		sinkX   = 800
		spacing = 80
	)
	x := 0.0
	if role == graph.RoleDatasink {
		x = sinkX
	}
	return x, float64(40 + index*spacing)
}

// InsertText parses values through the fields of the named datastore,
// appends them as one record and commits. Every key must name a field.
func (e *Engine) InsertText(ctx context.Context, datastore string, values map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ds, err := e.graph.GetDatastore(datastore)
	if err != nil {
		return err
	}

	rec := make(fields.Record, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		f, ok := ds.Field(k)
		if !ok {
			return core.Errorf(core.KindMalformedArgs, "datastore %q has no field %q", datastore, k)
		}
		if rec[k], err = e.fields.ParseText(f, values[k]); err != nil {
			return err
		}
	}
	if err := ds.Insert(e.fields, rec); err != nil {
		return err
	}

	e.logger.Debug("inserted record", slog.String("datastore", datastore), slog.Int("values", len(rec)))
	return e.commit(ctx, "insert_record", e.graph, frontend.Project(e.graph, ds.Node()))
}

// Records returns copies of the named datastore's fields and records.
func (e *Engine) Records(datastore string) ([]fields.Field, []fields.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ds, err := e.graph.GetDatastore(datastore)
	if err != nil {
		return nil, nil, err
	}
	return ds.Fields(), ds.Records(), nil
}

// Node returns a copy of the named node's role and position.
func (e *Engine) Node(name string) (graph.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.graph.GetNode(name)
	if err != nil {
		return graph.Node{}, err
	}
	return graph.Node{Name: n.Name, Pos: n.Pos, Role: n.Role}, nil
}

// Fields returns the field registry the engine resolves types with.
func (e *Engine) Fields() *fields.Registry {
	return e.fields
}

// LastSnapshot returns the snapshot written by the most recent commit of
// this engine, if any.
func (e *Engine) LastSnapshot() (state.SnapshotInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.last.ID != ""
}

// Snapshots lists stored snapshots, newest first.
func (e *Engine) Snapshots(ctx context.Context) ([]state.SnapshotInfo, error) {
	return e.store.Snapshots(ctx)
}

// Prune keeps the newest keep snapshots.
func (e *Engine) Prune(ctx context.Context, keep int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Prune(ctx, keep)
}

// Close closes the snapshot store.
func (e *Engine) Close() error {
	return e.store.Close()
}

func cursorName(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}
