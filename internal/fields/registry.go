// Package fields provides the field type registry used when attaching typed
// columns to a datastore.
//
// The registry maps a type name ("Integer", "Date", ...) to a constructor.
// It is populated once at startup and is read-only afterwards, so lookups
// need no locking.
package fields

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/dark/pkg/core"
)

// Field is a named, typed column of a datastore.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Constructor builds a field of a registered type.
type Constructor func(name string) Field

// Record is one stored row: field name to value.
type Record map[string]any

// Kind describes a registered field type.
type Kind struct {
	// Name is the type tag stored with each field.
	Name string
	// Description is shown by `dark fields`.
	Description string
	// Normalize validates v and returns its canonical form.
	// The canonical form must survive a JSON round trip followed by
	// another Normalize unchanged.
	Normalize func(v any) (any, error)
	// Parse converts submitted text into a value Normalize accepts.
	// Nil means the text is passed through as a string.
	Parse func(s string) (any, error)
}

// Registry maps type tags to field kinds.
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. It must only be called during startup.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" {
		return fmt.Errorf("field kind name is required")
	}
	if k.Normalize == nil {
		return fmt.Errorf("field kind %q has no normalizer", k.Name)
	}
	if _, exists := r.kinds[k.Name]; exists {
		return fmt.Errorf("field kind %q already registered", k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(k Kind) {
	if err := r.Register(k); err != nil {
		panic(err)
	}
}

// Resolve returns the constructor for typeName.
func (r *Registry) Resolve(typeName string) (Constructor, error) {
	k, ok := r.kinds[typeName]
	if !ok {
		return nil, core.Errorf(core.KindUnknownFieldType, "unknown field type %q", typeName)
	}
	return func(name string) Field {
		return Field{Name: name, Type: k.Name}
	}, nil
}

// Kind returns the registered kind for typeName.
func (r *Registry) Kind(typeName string) (Kind, bool) {
	k, ok := r.kinds[typeName]
	return k, ok
}

// Kinds returns all registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Normalize validates v against f's type and returns the canonical value.
func (r *Registry) Normalize(f Field, v any) (any, error) {
	k, ok := r.kinds[f.Type]
	if !ok {
		return nil, core.Errorf(core.KindUnknownFieldType, "field %q has unknown type %q", f.Name, f.Type)
	}
	out, err := k.Normalize(v)
	if err != nil {
		return nil, core.Wrap(core.KindMalformedArgs, err, fmt.Sprintf("field %q (%s)", f.Name, f.Type))
	}
	return out, nil
}

// ParseText converts a text value, such as a form submission, through f's
// kind and normalizes the result.
func (r *Registry) ParseText(f Field, s string) (any, error) {
	k, ok := r.kinds[f.Type]
	if !ok {
		return nil, core.Errorf(core.KindUnknownFieldType, "field %q has unknown type %q", f.Name, f.Type)
	}
	var v any = s
	if k.Parse != nil {
		parsed, err := k.Parse(s)
		if err != nil {
			return nil, core.Wrap(core.KindMalformedArgs, err, fmt.Sprintf("field %q (%s)", f.Name, f.Type))
		}
		v = parsed
	}
	return r.Normalize(f, v)
}
