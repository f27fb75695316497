package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/command"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/internal/testutil"
	"github.com/leapstack-labs/dark/pkg/core"
)

func newTestStore(t *testing.T) state.Store {
	t.Helper()
	s, err := state.Open(context.Background(), state.Config{
		Driver: state.DriverSQLite,
		DSN:    ":memory:",
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestEngine(t *testing.T, s state.Store, onCommit func(Commit)) *Engine {
	t.Helper()
	e, err := New(context.Background(), Config{
		Store:    s,
		Logger:   testutil.NewTestLogger(t),
		OnCommit: onCommit,
	})
	require.NoError(t, err)
	return e
}

func req(cmd string, cursor *string, args map[string]any) core.Request {
	return core.Request{Cursor: cursor, Command: cmd, Args: args}
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestEngine_Execute_CommitsAndNotifies(t *testing.T) {
	var commits []Commit
	e := newTestEngine(t, newTestStore(t), func(c Commit) { commits = append(commits, c) })
	ctx := context.Background()

	view, err := e.Execute(ctx, req(command.AddDatastore, nil, map[string]any{"name": "users", "x": 10.0, "y": 20.0}))
	require.NoError(t, err)
	require.NotNil(t, view.Cursor)
	assert.Equal(t, "users", *view.Cursor)
	require.Len(t, view.Datastores, 1)
	assert.Empty(t, view.Datastores[0].Fields)

	require.Len(t, commits, 1)
	assert.Equal(t, command.AddDatastore, commits[0].Command)
	assert.NotEmpty(t, commits[0].Snapshot.ID)

	last, ok := e.LastSnapshot()
	require.True(t, ok)
	assert.Equal(t, commits[0].Snapshot.ID, last.ID)
}

func TestEngine_RoundTripLaw(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	ctx := context.Background()

	steps := []core.Request{
		req(command.AddDatastore, nil, map[string]any{"name": "users", "x": 1.0, "y": 2.0}),
		req(command.AddDatastoreField, core.StringPtr("users"), map[string]any{"name": "email", "type": "Email"}),
		req(command.AddDatastoreField, core.StringPtr("users"), map[string]any{"name": "age", "type": "Integer"}),
		req(command.AddFunctionCall, nil, map[string]any{"name": "greet", "x": 50.0, "y": 60.0}),
		req(command.UpdatePosition, nil, map[string]any{"id": "users", "x": -5.5, "y": 7.25}),
	}
	var final []byte
	for _, r := range steps {
		view, err := e.Execute(ctx, r)
		require.NoError(t, err, r.Command)
		final, err = json.Marshal(view.Nodes)
		require.NoError(t, err)
	}

	// A fresh engine over the same store sees the same graph.
	reopened := newTestEngine(t, s, nil)
	reloaded, err := json.Marshal(reopened.View("").Nodes)
	require.NoError(t, err)
	assert.JSONEq(t, string(final), string(reloaded))

	view := reopened.View("users")
	require.NotNil(t, view.Cursor)
	require.Len(t, view.Datastores, 1)
	assert.Equal(t, "email", view.Datastores[0].Fields[0].Name)
	assert.Equal(t, "age", view.Datastores[0].Fields[1].Name)
}

func TestEngine_LoadInitialGraph(t *testing.T) {
	var commits int
	e := newTestEngine(t, newTestStore(t), func(Commit) { commits++ })
	ctx := context.Background()

	_, err := e.Execute(ctx, req(command.AddFunctionCall, nil, map[string]any{"name": "fn", "x": 0.0, "y": 0.0}))
	require.NoError(t, err)

	first, err := e.Execute(ctx, req(command.LoadInitialGraph, core.StringPtr("fn"), nil))
	require.NoError(t, err)
	second, err := e.Execute(ctx, req(command.LoadInitialGraph, nil, nil))
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
	assert.Nil(t, first.Cursor)
	assert.Equal(t, 1, commits, "load_initial_graph does not commit")
}

func TestEngine_FailedCommandDoesNotCommit(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	ctx := context.Background()

	_, err := e.Execute(ctx, req(command.AddFunctionCall, nil, map[string]any{"name": "fn", "x": 0.0, "y": 0.0}))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  core.Request
		kind core.Kind
	}{
		{"unknown command", req("delete_everything", nil, nil), core.KindInvalidCommand},
		{"field on plain node", req(command.AddDatastoreField, core.StringPtr("fn"), map[string]any{"name": "a", "type": "String"}), core.KindNotADatastore},
		{"unknown node", req(command.UpdatePosition, nil, map[string]any{"id": "ghost", "x": 1.0, "y": 1.0}), core.KindUnknownNode},
		{"duplicate name", req(command.AddDatastore, nil, map[string]any{"name": "fn", "x": 1.0, "y": 1.0}), core.KindDuplicateName},
		{"missing args", req(command.AddDatastore, nil, map[string]any{"name": "x"}), core.KindMalformedArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))

			snaps, err := s.Snapshots(ctx)
			require.NoError(t, err)
			assert.Len(t, snaps, 1)
		})
	}
}

// brokenStore accepts saves but cannot read them back.
type brokenStore struct {
	state.Store
}

func (b brokenStore) Load(context.Context) (*graph.Graph, error) {
	return nil, errors.New("checksum mismatch")
}

func TestEngine_PersistenceError(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	e.store = brokenStore{s}

	_, err := e.Execute(context.Background(), req(command.AddFunctionCall, nil, map[string]any{"name": "fn", "x": 0.0, "y": 0.0}))
	require.Error(t, err)
	assert.Equal(t, core.KindPersistenceError, core.KindOf(err))

	// The in-memory graph already holds the mutation.
	_, err = e.Node("fn")
	assert.NoError(t, err)
}

func TestEngine_Reload(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "graph.yaml")
	open := func() state.Store {
		s, err := state.Open(context.Background(), state.Config{Driver: state.DriverFile, DSN: dsn})
		require.NoError(t, err)
		return s
	}
	ctx := context.Background()

	e := newTestEngine(t, open(), nil)
	changed, err := e.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	// Another writer changes the artifact.
	other := newTestEngine(t, open(), nil)
	_, err = other.Execute(ctx, req(command.AddDatastore, nil, map[string]any{"name": "orders", "x": 0.0, "y": 0.0}))
	require.NoError(t, err)

	changed, err = e.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, e.View("").Datastores, 1)
}

func TestEngine_EnsureEndpoint(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	ctx := context.Background()

	require.NoError(t, e.EnsureEndpoint(ctx, "signup", graph.RoleDatasource))
	require.NoError(t, e.EnsureEndpoint(ctx, "signup", graph.RoleDatasource), "idempotent")
	require.NoError(t, e.EnsureEndpoint(ctx, "report", graph.RoleDatasink))

	snaps, err := s.Snapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	n, err := e.Node("report")
	require.NoError(t, err)
	assert.Equal(t, graph.RoleDatasink, n.Role)
	assert.InDelta(t, 800.0, n.Pos.X, 0)

	err = e.EnsureEndpoint(ctx, "signup", graph.RoleDatasink)
	assert.Equal(t, core.KindDuplicateName, core.KindOf(err))

	err = e.EnsureEndpoint(ctx, "plain", graph.RolePlain)
	assert.Equal(t, core.KindMalformedArgs, core.KindOf(err))
}

func TestEngine_PruneAndSnapshots(t *testing.T) {
	e := newTestEngine(t, newTestStore(t), nil)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := e.Execute(ctx, req(command.AddFunctionCall, nil, map[string]any{"name": name, "x": 0.0, "y": 0.0}))
		require.NoError(t, err)
	}

	removed, err := e.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snaps, err := e.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 3, snaps[0].Nodes)
}

func TestEngine_ViewDropsUnknownCursor(t *testing.T) {
	e := newTestEngine(t, newTestStore(t), nil)
	assert.Nil(t, e.View("ghost").Cursor)
}
