// Package registry indexes node definitions by type identifier. It is
// purely in-memory, read-only after startup, and safe for concurrent
// lookups; registration itself is synchronized.
package registry

import (
	"sync"

	"github.com/nodeflow-run/nodeflow/flowerr"
	"github.com/nodeflow-run/nodeflow/node"
	"go.uber.org/zap"
)

// Registry maps a node type identifier to its definition.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*node.Definition
	logger *zap.Logger
}

// New creates an empty registry. A nil logger defaults to a no-op logger.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		defs:   make(map[string]*node.Definition),
		logger: logger.With(zap.String("component", "registry")),
	}
}

// Register inserts def, failing with a *flowerr.DuplicateTypeError if
// def.Type is already present. Returns the registry so calls can chain.
func (r *Registry) Register(def *node.Definition) (*Registry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		return r, &flowerr.DuplicateTypeError{Type: def.Type}
	}
	r.defs[def.Type] = def
	r.logger.Debug("registered node type", zap.String("type", def.Type))
	return r, nil
}

// RegisterAll registers each definition in order. Atomicity is not
// promised: a duplicate after the first halts registration and returns
// the offending error, leaving earlier registrations in place.
func (r *Registry) RegisterAll(defs []*node.Definition) error {
	for _, def := range defs {
		if _, err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes type, reporting whether it existed.
func (r *Registry) Unregister(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[typ]; !exists {
		return false
	}
	delete(r.defs, typ)
	return true
}

// Has reports whether type is registered.
func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.defs[typ]
	return exists
}

// Size returns the number of registered definitions.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// GetDefinition returns the full definition for type, if registered.
func (r *Registry) GetDefinition(typ string) (*node.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[typ]
	return def, ok
}

// GetMetadata returns type's definition with the executor stripped.
func (r *Registry) GetMetadata(typ string) (node.Metadata, bool) {
	def, ok := r.GetDefinition(typ)
	if !ok {
		return node.Metadata{}, false
	}
	return def.ToMetadata(), true
}

// GetExecutor returns only the executor function for type.
func (r *Registry) GetExecutor(typ string) (node.ExecutorFunc, bool) {
	def, ok := r.GetDefinition(typ)
	if !ok {
		return nil, false
	}
	return def.Executor, true
}

// GetAllDefinitions returns every registered definition.
func (r *Registry) GetAllDefinitions() []*node.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*node.Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	return out
}

// GetAllMetadata returns metadata for every registered definition.
func (r *Registry) GetAllMetadata() []node.Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]node.Metadata, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.ToMetadata())
	}
	return out
}

// GetByCategory returns every definition of the given category.
func (r *Registry) GetByCategory(cat node.Category) []*node.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*node.Definition
	for _, def := range r.defs {
		if def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// GetMetadataByCategory returns metadata for every definition of the
// given category.
func (r *Registry) GetMetadataByCategory(cat node.Category) []node.Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []node.Metadata
	for _, def := range r.defs {
		if def.Category == cat {
			out = append(out, def.ToMetadata())
		}
	}
	return out
}

// ValidateInput validates input against type's input schema.
func (r *Registry) ValidateInput(typ string, input any) (any, error) {
	def, ok := r.GetDefinition(typ)
	if !ok {
		return nil, &flowerr.UnknownTypeError{Type: typ}
	}
	out, err := def.InputSchema.Validate(input)
	if err != nil {
		return nil, &flowerr.ValidationError{Type: typ, Reason: err.Error()}
	}
	return out, nil
}

// ValidateOutput validates output against type's output schema.
func (r *Registry) ValidateOutput(typ string, output any) (any, error) {
	def, ok := r.GetDefinition(typ)
	if !ok {
		return nil, &flowerr.UnknownTypeError{Type: typ}
	}
	out, err := def.OutputSchema.Validate(output)
	if err != nil {
		return nil, &flowerr.ValidationError{Type: typ, Reason: err.Error()}
	}
	return out, nil
}
