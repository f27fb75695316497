package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/testutil"
	"github.com/leapstack-labs/dark/pkg/core"
)

// sampleGraph builds a graph touching every role, field ordering, and
// legacy records that lack later fields.
func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	reg := fields.Default()
	g := graph.New()

	require.NoError(t, g.AddNode(graph.NewNode("fn", 1.5, -2, graph.RolePlain)))
	require.NoError(t, g.AddNode(graph.NewNode("signup", 0, 100, graph.RoleDatasource)))
	require.NoError(t, g.AddNode(graph.NewNode("report", 300, 100, graph.RoleDatasink)))
	require.NoError(t, g.AddDatastore(graph.NewDatastore("empty", 7, 8)))

	users := graph.NewDatastore("users", 10, 20)
	require.NoError(t, users.AddField(fields.Field{Name: "name", Type: "String"}))
	require.NoError(t, users.AddField(fields.Field{Name: "joined", Type: "Date"}))
	require.NoError(t, users.Insert(reg, fields.Record{"name": "ann", "joined": "2024-01-02"}))
	require.NoError(t, users.AddField(fields.Field{Name: "visits", Type: "Integer"}))
	require.NoError(t, users.AddField(fields.Field{Name: "score", Type: "Float"}))
	require.NoError(t, users.AddField(fields.Field{Name: "active", Type: "Boolean"}))
	require.NoError(t, users.Insert(reg, fields.Record{
		"name": "bob", "visits": int64(9007199254740993), "score": 12.0, "active": true,
	}))
	require.NoError(t, g.AddDatastore(users))

	return g
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	sqlStore, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:", Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	fileStore, err := Open(ctx, Config{Driver: DriverFile, DSN: t.TempDir() + "/state/graph.yaml", Logger: logger})
	require.NoError(t, err)

	return map[string]Store{"sqlite": sqlStore, "file": fileStore}
}

func TestStore_LoadEmpty(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			g, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, g.Len())

			snaps, err := s.Snapshots(context.Background())
			require.NoError(t, err)
			assert.Empty(t, snaps)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := sampleGraph(t)

			info, err := s.Save(ctx, g)
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, 5, info.Nodes)
			assert.Equal(t, 2, info.Datastores)

			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			assert.True(t, g.Equal(loaded), "loaded graph must equal saved graph")

			users, err := loaded.GetDatastore("users")
			require.NoError(t, err)
			names := make([]string, 0)
			for _, f := range users.Fields() {
				names = append(names, f.Name)
			}
			assert.Equal(t, []string{"name", "joined", "visits", "score", "active"}, names)

			records := users.Records()
			require.Len(t, records, 2)
			_, legacy := records[0]["visits"]
			assert.False(t, legacy, "legacy records stay without later fields")
			assert.Equal(t, int64(9007199254740993), records[1]["visits"])

			n, err := loaded.GetNode("signup")
			require.NoError(t, err)
			assert.True(t, n.IsDatasource())
		})
	}
}

func TestCommitAndVerify(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := sampleGraph(t)

			verified, info, err := CommitAndVerify(ctx, s, g)
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.NotSame(t, g, verified, "a fresh copy replaces the in-memory graph")
			assert.True(t, g.Equal(verified))

			// Index identity is preserved within the fresh copy.
			n, _ := verified.GetNode("users")
			ds, _ := verified.GetDatastore("users")
			assert.Same(t, n, ds.Node())
		})
	}
}

// lossyStore drops every node on load.
type lossyStore struct {
	Store
}

func (l lossyStore) Load(context.Context) (*graph.Graph, error) {
	return graph.New(), nil
}

func TestCommitAndVerify_DetectsLoss(t *testing.T) {
	s := openStores(t)["sqlite"]

	_, _, err := CommitAndVerify(context.Background(), lossyStore{s}, sampleGraph(t))
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindPersistenceError))
	assert.Contains(t, err.Error(), "does not round-trip")
}

type failingStore struct {
	lossyStore
}

func (failingStore) Save(context.Context, *graph.Graph) (SnapshotInfo, error) {
	return SnapshotInfo{}, core.Wrap(core.KindPersistenceError, errors.New("disk full"), "save snapshot")
}

func TestCommitAndVerify_SaveFails(t *testing.T) {
	verified, _, err := CommitAndVerify(context.Background(), failingStore{}, sampleGraph(t))
	assert.Nil(t, verified)
	assert.True(t, core.IsKind(err, core.KindPersistenceError))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "floppy"})
	assert.Error(t, err)
}
