// Package graph holds the in-memory dataflow graph edited through commands.
//
// A Graph owns every Node keyed by name. Datastores are Nodes too and are
// additionally tracked in a datastore-only index; both indices point at the
// same objects.
package graph

import (
	"reflect"
	"sort"

	"github.com/leapstack-labs/dark/pkg/core"
)

// Graph is the set of nodes being edited.
type Graph struct {
	nodes      map[string]*Node
	datastores map[string]*Datastore
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		datastores: make(map[string]*Datastore),
	}
}

// AddNode registers n. Datastore nodes are also indexed as datastores.
func (g *Graph) AddNode(n *Node) error {
	if ds, ok := n.Datastore(); ok {
		return g.AddDatastore(ds)
	}
	if _, exists := g.nodes[n.Name]; exists {
		return core.Errorf(core.KindDuplicateName, "node %q already exists", n.Name)
	}
	g.nodes[n.Name] = n
	return nil
}

// AddDatastore registers d in both indices.
func (g *Graph) AddDatastore(d *Datastore) error {
	name := d.Name()
	if _, exists := g.nodes[name]; exists {
		return core.Errorf(core.KindDuplicateName, "node %q already exists", name)
	}
	g.nodes[name] = d.Node()
	g.datastores[name] = d
	return nil
}

// GetNode returns the node called name.
func (g *Graph) GetNode(name string) (*Node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, core.Errorf(core.KindUnknownNode, "unknown node %q", name)
	}
	return n, nil
}

// GetDatastore returns the datastore called name.
func (g *Graph) GetDatastore(name string) (*Datastore, error) {
	if _, err := g.GetNode(name); err != nil {
		return nil, err
	}
	ds, ok := g.datastores[name]
	if !ok {
		return nil, core.Errorf(core.KindNotADatastore, "node %q is not a datastore", name)
	}
	return ds, nil
}

// Has reports whether a node called name exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes sorted by name.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Datastores returns all datastores sorted by name.
func (g *Graph) Datastores() []*Datastore {
	out := make([]*Datastore, 0, len(g.datastores))
	for _, d := range g.datastores {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// NodesWithRole returns the nodes of the given role sorted by name.
func (g *Graph) NodesWithRole(role Role) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Equal reports whether g and other hold the same nodes, positions, roles,
// field lists and records.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.nodes) != len(other.nodes) || len(g.datastores) != len(other.datastores) {
		return false
	}
	for name, n := range g.nodes {
		o, ok := other.nodes[name]
		if !ok || n.Pos != o.Pos || n.Role != o.Role {
			return false
		}
	}
	for name, d := range g.datastores {
		o, ok := other.datastores[name]
		if !ok {
			return false
		}
		if len(d.fields) != len(o.fields) {
			return false
		}
		for i := range d.fields {
			if d.fields[i] != o.fields[i] {
				return false
			}
		}
		if len(d.records) != len(o.records) {
			return false
		}
		for i := range d.records {
			if !reflect.DeepEqual(d.records[i], o.records[i]) {
				return false
			}
		}
	}
	return true
}
