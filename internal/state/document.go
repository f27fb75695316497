package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// FormatVersion is written into every snapshot.
const FormatVersion = 1

// Document is the self-describing serialized form of a graph.
// Role and field type tags are stored by name.
type Document struct {
	Version    int            `json:"version" yaml:"version"`
	ID         string         `json:"id" yaml:"id"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
	Nodes      []NodeDoc      `json:"nodes" yaml:"nodes"`
	Datastores []DatastoreDoc `json:"datastores" yaml:"datastores"`
}

// NodeDoc is a serialized node.
type NodeDoc struct {
	Name string  `json:"name" yaml:"name"`
	Role string  `json:"role" yaml:"role"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// DatastoreDoc is the schema and rows of a datastore node.
type DatastoreDoc struct {
	Name    string          `json:"name" yaml:"name"`
	Fields  []fields.Field  `json:"fields" yaml:"fields"`
	Records []fields.Record `json:"records,omitempty" yaml:"records,omitempty"`
}

// Encode converts g into a document.
func Encode(g *graph.Graph) Document {
	doc := Document{Version: FormatVersion}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{
			Name: n.Name,
			Role: n.Role.String(),
			X:    n.Pos.X,
			Y:    n.Pos.Y,
		})
	}
	for _, ds := range g.Datastores() {
		doc.Datastores = append(doc.Datastores, DatastoreDoc{
			Name:    ds.Name(),
			Fields:  ds.Fields(),
			Records: ds.Records(),
		})
	}
	return doc
}

// Decode rebuilds a graph from doc. Field types are resolved through reg
// and record values are normalized again, so anything that does not
// round-trip fails here.
func Decode(doc Document, reg *fields.Registry) (*graph.Graph, error) {
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	schemas := make(map[string]DatastoreDoc, len(doc.Datastores))
	for _, d := range doc.Datastores {
		if _, dup := schemas[d.Name]; dup {
			return nil, fmt.Errorf("datastore %q listed twice", d.Name)
		}
		schemas[d.Name] = d
	}

	g := graph.New()
	for _, nd := range doc.Nodes {
		role, err := graph.ParseRole(nd.Role)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}

		if role != graph.RoleDatastore {
			if err := g.AddNode(graph.NewNode(nd.Name, nd.X, nd.Y, role)); err != nil {
				return nil, err
			}
			continue
		}

		schema, ok := schemas[nd.Name]
		if !ok {
			return nil, fmt.Errorf("datastore node %q has no schema", nd.Name)
		}
		delete(schemas, nd.Name)

		ds, err := decodeDatastore(nd, schema, reg)
		if err != nil {
			return nil, err
		}
		if err := g.AddDatastore(ds); err != nil {
			return nil, err
		}
	}

	if len(schemas) > 0 {
		orphans := make([]string, 0, len(schemas))
		for name := range schemas {
			orphans = append(orphans, name)
		}
		sort.Strings(orphans)
		return nil, fmt.Errorf("schema without datastore node: %v", orphans)
	}
	return g, nil
}

func decodeDatastore(nd NodeDoc, schema DatastoreDoc, reg *fields.Registry) (*graph.Datastore, error) {
	ds := graph.NewDatastore(nd.Name, nd.X, nd.Y)
	for _, f := range schema.Fields {
		ctor, err := reg.Resolve(f.Type)
		if err != nil {
			return nil, fmt.Errorf("datastore %q field %q: %w", nd.Name, f.Name, err)
		}
		if err := ds.AddField(ctor(f.Name)); err != nil {
			return nil, err
		}
	}
	for i, rec := range schema.Records {
		if err := ds.Insert(reg, rec); err != nil {
			return nil, fmt.Errorf("datastore %q record %d: %w", nd.Name, i, err)
		}
	}
	return ds, nil
}

// summarize builds snapshot info for a document.
func summarize(doc Document) SnapshotInfo {
	return SnapshotInfo{
		ID:         doc.ID,
		CreatedAt:  doc.CreatedAt,
		Nodes:      len(doc.Nodes),
		Datastores: len(doc.Datastores),
	}
}

// corrupt classifies a decode failure of a stored snapshot.
func corrupt(id string, err error) error {
	return core.Wrap(core.KindPersistenceError, err, fmt.Sprintf("corrupt snapshot %s", id))
}
