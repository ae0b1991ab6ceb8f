// Package registry holds the catalog of functions the model may invoke.
//
// Definitions are validated once at registration time; arguments are
// validated against the parameter schema on every invocation.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Param describes one parameter in a function's schema.
type Param struct {
	Type        string   `json:"type"` // "string", "number", "integer", "boolean", "array"
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	ItemType    string   `json:"itemType,omitempty"` // element type when Type == "array"
}

// Definition is the declarative description of a callable function.
type Definition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters,omitempty"`
	Required    []string         `json:"required,omitempty"`
}

// Handler executes a function with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Registry maps function names to definitions and handlers. Registration
// happens before first use; invocation is safe for concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	def     Definition
	handler Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a function. The definition is checked once here so
// invocation never sees a malformed schema.
func (r *Registry) Register(def Definition, h Handler) error {
	if def.Name == "" {
		return fmt.Errorf("registry: function name is required")
	}
	if h == nil {
		return fmt.Errorf("registry: function %q has no handler", def.Name)
	}
	for name, p := range def.Parameters {
		switch p.Type {
		case "string", "number", "integer", "boolean", "array":
		default:
			return fmt.Errorf("registry: function %q parameter %q has unsupported type %q", def.Name, name, p.Type)
		}
		if p.Type == "array" && p.ItemType == "" {
			return fmt.Errorf("registry: function %q parameter %q is an array without an item type", def.Name, name)
		}
	}
	for _, req := range def.Required {
		if _, ok := def.Parameters[req]; !ok {
			return fmt.Errorf("registry: function %q requires unknown parameter %q", def.Name, req)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("registry: function %q already registered", def.Name)
	}
	r.entries[def.Name] = entry{def: def, handler: h}
	return nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Get returns the definition for a name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.def, ok
}

// Invoke validates args against the schema and runs the handler.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	if err := validateArgs(e.def, args); err != nil {
		return nil, err
	}
	return e.handler(ctx, args)
}

// validateArgs checks required keys, known keys, primitive types, and
// enum membership.
func validateArgs(def Definition, args map[string]any) error {
	for _, req := range def.Required {
		if _, ok := args[req]; !ok {
			return &ArgumentError{Function: def.Name, Param: req, Reason: "required parameter missing"}
		}
	}
	for key, val := range args {
		p, ok := def.Parameters[key]
		if !ok {
			return &ArgumentError{Function: def.Name, Param: key, Reason: "unknown parameter"}
		}
		if err := checkType(def.Name, key, p, val); err != nil {
			return err
		}
	}
	return nil
}

func checkType(fn, key string, p Param, val any) error {
	switch p.Type {
	case "string":
		s, ok := val.(string)
		if !ok {
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("expected string, got %T", val)}
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				if s == e {
					return nil
				}
			}
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("%q is not one of %v", s, p.Enum)}
		}
	case "number":
		if !isNumber(val) {
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("expected number, got %T", val)}
		}
	case "integer":
		if !isInteger(val) {
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("expected integer, got %T", val)}
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("expected boolean, got %T", val)}
		}
	case "array":
		items, ok := val.([]any)
		if !ok {
			return &ArgumentError{Function: fn, Param: key, Reason: fmt.Sprintf("expected array, got %T", val)}
		}
		elem := Param{Type: p.ItemType}
		for i, item := range items {
			if err := checkType(fn, fmt.Sprintf("%s[%d]", key, i), elem, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNumber(val any) bool {
	switch v := val.(type) {
	case float64, float32, int, int64, int32:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(val any) bool {
	switch v := val.(type) {
	case int, int64, int32:
		return true
	case float64:
		return v == float64(int64(v))
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
