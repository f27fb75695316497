package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/pkg/core"
)

func TestGraph_AddNodeAndGet(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNode(NewNode("fn", 10, 20, RolePlain)))
	require.NoError(t, g.AddDatastore(NewDatastore("users", 1, 2)))

	assert.Equal(t, 2, g.Len())

	n, err := g.GetNode("fn")
	require.NoError(t, err)
	assert.Equal(t, Position{X: 10, Y: 20}, n.Pos)
	assert.Equal(t, RolePlain, n.Role)

	// A datastore is findable through the generic node index too.
	n, err = g.GetNode("users")
	require.NoError(t, err)
	ds, err := g.GetDatastore("users")
	require.NoError(t, err)
	assert.Same(t, n, ds.Node())
}

func TestGraph_AddNode_Duplicate(t *testing.T) {
	tests := []struct {
		name   string
		first  func(g *Graph) error
		second func(g *Graph) error
	}{
		{
			name:   "node then node",
			first:  func(g *Graph) error { return g.AddNode(NewNode("a", 0, 0, RolePlain)) },
			second: func(g *Graph) error { return g.AddNode(NewNode("a", 1, 1, RolePlain)) },
		},
		{
			name:   "node then datastore",
			first:  func(g *Graph) error { return g.AddNode(NewNode("a", 0, 0, RolePlain)) },
			second: func(g *Graph) error { return g.AddDatastore(NewDatastore("a", 1, 1)) },
		},
		{
			name:   "datastore then node",
			first:  func(g *Graph) error { return g.AddDatastore(NewDatastore("a", 0, 0)) },
			second: func(g *Graph) error { return g.AddNode(NewNode("a", 1, 1, RoleDatasink)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			require.NoError(t, tt.first(g))
			err := tt.second(g)
			require.Error(t, err)
			assert.True(t, core.IsKind(err, core.KindDuplicateName))
			assert.Equal(t, 1, g.Len())

			n, err := g.GetNode("a")
			require.NoError(t, err)
			assert.Equal(t, Position{}, n.Pos, "original node must be kept")
		})
	}
}

func TestGraph_AddNode_DatastoreRoleIndexesDatastore(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NewNode("ds", 0, 0, RoleDatastore)))

	_, err := g.GetDatastore("ds")
	assert.NoError(t, err)
}

func TestGraph_GetDatastore_Errors(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NewNode("fn", 0, 0, RolePlain)))

	_, err := g.GetDatastore("missing")
	assert.True(t, core.IsKind(err, core.KindUnknownNode))

	_, err = g.GetDatastore("fn")
	assert.True(t, core.IsKind(err, core.KindNotADatastore))

	_, err = g.GetNode("missing")
	assert.True(t, core.IsKind(err, core.KindUnknownNode))
}

func TestGraph_Nodes_Sorted(t *testing.T) {
	g := New()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, g.AddNode(NewNode(name, 0, 0, RolePlain)))
	}
	require.NoError(t, g.AddDatastore(NewDatastore("d2", 0, 0)))
	require.NoError(t, g.AddDatastore(NewDatastore("d1", 0, 0)))

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d1", "d2"}, names)

	var dsNames []string
	for _, d := range g.Datastores() {
		dsNames = append(dsNames, d.Name())
	}
	assert.Equal(t, []string{"d1", "d2"}, dsNames)
}

func TestGraph_NodesWithRole(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NewNode("in", 0, 0, RoleDatasource)))
	require.NoError(t, g.AddNode(NewNode("out", 0, 0, RoleDatasink)))
	require.NoError(t, g.AddNode(NewNode("fn", 0, 0, RolePlain)))

	sources := g.NodesWithRole(RoleDatasource)
	require.Len(t, sources, 1)
	assert.True(t, sources[0].IsDatasource())
	assert.False(t, sources[0].IsDatasink())
	assert.Empty(t, g.NodesWithRole(RoleDatastore))
}

func TestGraph_Equal(t *testing.T) {
	build := func() *Graph {
		g := New()
		_ = g.AddNode(NewNode("fn", 1, 2, RolePlain))
		ds := NewDatastore("users", 3, 4)
		_ = ds.AddField(fields.Field{Name: "name", Type: "String"})
		_ = ds.Insert(fields.Default(), fields.Record{"name": "ann"})
		_ = g.AddDatastore(ds)
		return g
	}

	a, b := build(), build()
	assert.True(t, a.Equal(b))

	n, _ := b.GetNode("fn")
	n.Move(9, 9)
	assert.False(t, a.Equal(b), "positions differ")

	c := build()
	ds, _ := c.GetDatastore("users")
	require.NoError(t, ds.AddField(fields.Field{Name: "age", Type: "Integer"}))
	assert.False(t, a.Equal(c), "field lists differ")

	d := build()
	ds, _ = d.GetDatastore("users")
	require.NoError(t, ds.Insert(fields.Default(), fields.Record{"name": "bob"}))
	assert.False(t, a.Equal(d), "records differ")

	assert.True(t, New().Equal(New()))
	assert.False(t, New().Equal(nil))
}

func TestRole_StringAndParse(t *testing.T) {
	for _, r := range []Role{RolePlain, RoleDatastore, RoleDatasource, RoleDatasink} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRole("teleporter")
	assert.Error(t, err)
	assert.Equal(t, "role(9)", Role(9).String())
}

func TestRole_IsEndpoint(t *testing.T) {
	assert.True(t, RoleDatasource.IsEndpoint())
	assert.True(t, RoleDatasink.IsEndpoint())
	assert.False(t, RolePlain.IsEndpoint())
	assert.False(t, RoleDatastore.IsEndpoint())
	assert.Panics(t, func() { Role(42).IsEndpoint() })
}

func TestPosition_Valid(t *testing.T) {
	assert.True(t, Position{X: -1.5, Y: 1e9}.Valid())
	assert.False(t, Position{X: math.NaN()}.Valid())
	assert.False(t, Position{Y: math.Inf(1)}.Valid())
}
