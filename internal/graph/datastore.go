package graph

import (
	"sort"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Datastore is a node that owns an ordered list of fields and stored records.
type Datastore struct {
	node    *Node
	fields  []fields.Field
	records []fields.Record
}

// NewDatastore creates an empty datastore node at (x, y).
func NewDatastore(name string, x, y float64) *Datastore {
	ds := &Datastore{}
	ds.node = &Node{Name: name, Pos: Position{X: x, Y: y}, Role: RoleDatastore, store: ds}
	return ds
}

// Node returns the node view of the datastore.
func (d *Datastore) Node() *Node { return d.node }

// Name returns the datastore name.
func (d *Datastore) Name() string { return d.node.Name }

// Fields returns a copy of the field list in column order.
func (d *Datastore) Fields() []fields.Field {
	out := make([]fields.Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field returns the field with the given name.
func (d *Datastore) Field(name string) (fields.Field, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return fields.Field{}, false
}

// HasField reports whether a field named name exists.
func (d *Datastore) HasField(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// AddField appends f. Field names are unique within a datastore.
func (d *Datastore) AddField(f fields.Field) error {
	if d.HasField(f.Name) {
		return core.Errorf(core.KindDuplicateFieldName, "datastore %q already has field %q", d.Name(), f.Name)
	}
	d.fields = append(d.fields, f)
	return nil
}

// Insert validates rec against the current fields and appends it.
// Every key must name an existing field; fields absent from rec stay absent.
// The record is not stored if any value fails to normalize.
func (d *Datastore) Insert(reg *fields.Registry, rec fields.Record) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stored := make(fields.Record, len(rec))
	for _, k := range keys {
		f, ok := d.Field(k)
		if !ok {
			return core.Errorf(core.KindMalformedArgs, "datastore %q has no field %q", d.Name(), k)
		}
		v, err := reg.Normalize(f, rec[k])
		if err != nil {
			return err
		}
		stored[k] = v
	}
	d.records = append(d.records, stored)
	return nil
}

// Records returns copies of the stored records in insertion order.
func (d *Datastore) Records() []fields.Record {
	out := make([]fields.Record, len(d.records))
	for i, rec := range d.records {
		cp := make(fields.Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
