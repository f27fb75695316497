// Package frontend projects graph state into the JSON shape rendered by the
// editor.
package frontend

import (
	"github.com/leapstack-labs/dark/internal/graph"
)

// View is the serialized graph sent to the editor.
type View struct {
	Nodes      []Node      `json:"nodes"`
	Datastores []Datastore `json:"datastores"`
	// Cursor names the node the editor should focus on; null when none.
	Cursor *string `json:"cursor"`
}

// Node is one node on the canvas.
type Node struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Role  string  `json:"role"`
	Class string  `json:"class"`
}

// Datastore is a datastore and its columns.
type Datastore struct {
	ID      string  `json:"id"`
	Fields  []Field `json:"fields"`
	Records int     `json:"records"`
}

// Field is one datastore column.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Project serializes g. Nodes and datastores are ordered by name so equal
// graphs always project identically. cursor may be nil.
func Project(g *graph.Graph, cursor *graph.Node) View {
	v := View{
		Nodes:      make([]Node, 0, g.Len()),
		Datastores: []Datastore{},
	}

	for _, n := range g.Nodes() {
		v.Nodes = append(v.Nodes, Node{
			ID:    n.Name,
			X:     n.Pos.X,
			Y:     n.Pos.Y,
			Role:  n.Role.String(),
			Class: nodeClass(n.Role),
		})
	}

	for _, ds := range g.Datastores() {
		fs := ds.Fields()
		out := Datastore{
			ID:      ds.Name(),
			Fields:  make([]Field, 0, len(fs)),
			Records: len(ds.Records()),
		}
		for _, f := range fs {
			out.Fields = append(out.Fields, Field{Name: f.Name, Type: f.Type})
		}
		v.Datastores = append(v.Datastores, out)
	}

	if cursor != nil {
		name := cursor.Name
		v.Cursor = &name
	}
	return v
}

// nodeClass returns the CSS class for a node role.
func nodeClass(r graph.Role) string {
	switch r {
	case graph.RoleDatastore:
		return "graph-node--datastore"
	case graph.RoleDatasource:
		return "graph-node--source"
	case graph.RoleDatasink:
		return "graph-node--sink"
	default:
		return "graph-node--function"
	}
}
