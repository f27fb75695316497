// Package endpoints exposes datasource and datasink nodes as HTTP routes.
package endpoints

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
)

// ErrNotImplemented is returned by runners that cannot execute a node.
var ErrNotImplemented = errors.New("node execution is not implemented")

// Runner executes endpoint nodes against external data.
type Runner interface {
	// RunOutput produces the response body for a datasink.
	RunOutput(ctx context.Context, node graph.Node) ([]byte, error)
	// RunInput feeds submitted form values into a datasource.
	RunInput(ctx context.Context, node graph.Node, values map[string]string) error
}

// NopRunner rejects every execution with ErrNotImplemented.
type NopRunner struct{}

// RunOutput implements Runner.
func (NopRunner) RunOutput(context.Context, graph.Node) ([]byte, error) {
	return nil, ErrNotImplemented
}

// RunInput implements Runner.
func (NopRunner) RunInput(context.Context, graph.Node, map[string]string) error {
	return ErrNotImplemented
}

// DatastoreRunner backs endpoints with datastores. A datasource appends
// each submission to its datastore as one record; a datasink renders its
// datastore's records as an HTML table. Endpoints without a datastore are
// not implemented.
type DatastoreRunner struct {
	engine  *engine.Engine
	targets map[string]string
}

// NewDatastoreRunner maps each endpoint with a Datastore to that datastore.
func NewDatastoreRunner(eng *engine.Engine, eps []Endpoint) *DatastoreRunner {
	targets := make(map[string]string, len(eps))
	for _, ep := range eps {
		if ep.Datastore != "" {
			targets[ep.Name] = ep.Datastore
		}
	}
	return &DatastoreRunner{engine: eng, targets: targets}
}

// RunOutput implements Runner.
func (r *DatastoreRunner) RunOutput(ctx context.Context, node graph.Node) ([]byte, error) {
	target, ok := r.targets[node.Name]
	if !ok || !node.IsDatasink() {
		return nil, ErrNotImplemented
	}

	cols, rows, err := r.engine.Records(target)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := RecordsTable(target, cols, rows).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}
	return buf.Bytes(), nil
}

// RunInput implements Runner.
func (r *DatastoreRunner) RunInput(ctx context.Context, node graph.Node, values map[string]string) error {
	target, ok := r.targets[node.Name]
	if !ok || !node.IsDatasource() {
		return ErrNotImplemented
	}
	return r.engine.InsertText(ctx, target, values)
}

// cellText formats a record value. Fields added after the record was
// stored are absent and render empty.
func cellText(rec fields.Record, field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
