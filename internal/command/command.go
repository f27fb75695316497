// Package command interprets editor commands against a graph.
//
// The vocabulary is closed: every mutating command is listed in the
// handlers table below. A command either applies completely or leaves the
// graph untouched; handlers validate everything before they mutate.
package command

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Command names.
const (
	AddDatastore      = "add_datastore"
	AddDatastoreField = "add_datastore_field"
	AddFunctionCall   = "add_function_call"
	UpdatePosition    = "update_position"
	LoadInitialGraph  = "load_initial_graph"
)

// Result is the outcome of applying a command.
type Result struct {
	// Graph is the graph after the command.
	Graph *graph.Graph
	// Cursor is the node the caller should focus on, or nil.
	Cursor *graph.Node
	// Mutated is false for read-only commands.
	Mutated bool
}

type handler func(in *Interpreter, g *graph.Graph, cursor *string, args map[string]any) (*graph.Node, error)

var handlers = map[string]struct {
	run     handler
	mutates bool
}{
	AddDatastore:      {run: (*Interpreter).addDatastore, mutates: true},
	AddDatastoreField: {run: (*Interpreter).addDatastoreField, mutates: true},
	AddFunctionCall:   {run: (*Interpreter).addFunctionCall, mutates: true},
	UpdatePosition:    {run: (*Interpreter).updatePosition, mutates: true},
	LoadInitialGraph:  {run: (*Interpreter).loadInitialGraph, mutates: false},
}

// Names returns the recognized command names, sorted.
func Names() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Interpreter applies commands. It holds no graph state of its own.
type Interpreter struct {
	fields *fields.Registry
}

// NewInterpreter creates an interpreter resolving field types through reg.
func NewInterpreter(reg *fields.Registry) *Interpreter {
	if reg == nil {
		reg = fields.Default()
	}
	return &Interpreter{fields: reg}
}

// Apply runs req against g.
// On error g is unchanged.
func (in *Interpreter) Apply(g *graph.Graph, req core.Request) (Result, error) {
	h, ok := handlers[req.Command]
	if !ok {
		return Result{Graph: g}, core.Errorf(core.KindInvalidCommand, "invalid command %q", req.Command)
	}

	cursor, err := h.run(in, g, req.Cursor, req.Args)
	if err != nil {
		return Result{Graph: g}, fmt.Errorf("%s: %w", req.Command, err)
	}

	return Result{Graph: g, Cursor: cursor, Mutated: h.mutates}, nil
}

func (in *Interpreter) addDatastore(g *graph.Graph, _ *string, args map[string]any) (*graph.Node, error) {
	var a placeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	ds := graph.NewDatastore(a.Name, a.X, a.Y)
	if err := g.AddDatastore(ds); err != nil {
		return nil, err
	}
	return ds.Node(), nil
}

func (in *Interpreter) addDatastoreField(g *graph.Graph, cursor *string, args map[string]any) (*graph.Node, error) {
	var a fieldArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Name == "" {
		return nil, core.Errorf(core.KindMalformedArgs, "field name must not be empty")
	}

	if cursor == nil {
		return nil, core.Errorf(core.KindNotADatastore, "no cursor to attach field %q to", a.Name)
	}
	ds, err := g.GetDatastore(*cursor)
	if err != nil {
		if core.IsKind(err, core.KindUnknownNode) {
			return nil, core.Errorf(core.KindNotADatastore, "cursor %q does not name a datastore", *cursor)
		}
		return nil, err
	}

	ctor, err := in.fields.Resolve(a.Type)
	if err != nil {
		return nil, err
	}
	if err := ds.AddField(ctor(a.Name)); err != nil {
		return nil, err
	}
	return ds.Node(), nil
}

func (in *Interpreter) addFunctionCall(g *graph.Graph, _ *string, args map[string]any) (*graph.Node, error) {
	var a placeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	n := graph.NewNode(a.Name, a.X, a.Y, graph.RolePlain)
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (in *Interpreter) updatePosition(g *graph.Graph, _ *string, args map[string]any) (*graph.Node, error) {
	var a moveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if !(graph.Position{X: a.X, Y: a.Y}).Valid() {
		return nil, core.Errorf(core.KindMalformedArgs, "position (%v, %v) is not finite", a.X, a.Y)
	}

	n, err := g.GetNode(a.ID)
	if err != nil {
		return nil, err
	}
	n.Move(a.X, a.Y)
	return n, nil
}

func (in *Interpreter) loadInitialGraph(_ *graph.Graph, _ *string, _ map[string]any) (*graph.Node, error) {
	return nil, nil
}
