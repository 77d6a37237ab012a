// Package flowctx implements the execution context: the per-run variable
// store, its path resolution and template interpolation, and the derived
// per-node view handed to executors.
package flowctx

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
)

// Context is the mutable per-run container of workflow variables. It is
// created at the start of a workflow run and discarded at the end; it
// exclusively owns its variable map.
type Context struct {
	mu        sync.RWMutex
	variables map[string]any
}

// New creates an execution context seeded with the given initial variables.
// A nil seed starts from an empty map.
func New(seed map[string]any) *Context {
	c := &Context{variables: make(map[string]any, len(seed))}
	for k, v := range seed {
		c.variables[k] = v
	}
	return c
}

// Set stores a single variable.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = value
}

// Get returns a variable's value, or Absent if it is not set.
func (c *Context) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	if !ok {
		return Absent
	}
	return v
}

// Has reports whether key is present in the variable map.
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.variables[key]
	return ok
}

// Delete removes a variable, if present.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.variables, key)
}

// Clear empties the variable map.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables = make(map[string]any)
}

// Merge shallow-merges other into the variable map; keys in other win.
func (c *Context) Merge(other map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range other {
		c.variables[k] = v
	}
}

// Snapshot returns a shallow copy of the current variable map.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return shallowCopyMap(c.variables)
}

var pathTokenRe = regexp.MustCompile(`([^.\[\]]+)|\[(\d+)\]`)

// ResolveNestedPath traverses a dot/bracket path over the variable map.
// An empty path returns the whole variable map. Traversal through a
// missing key, an out-of-range index, or a nil yields Absent.
func (c *Context) ResolveNestedPath(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return resolvePath(c.variables, path)
}

func resolvePath(root map[string]any, path string) any {
	if path == "" {
		return shallowCopyMap(root)
	}

	var current any = root
	for _, match := range pathTokenRe.FindAllStringSubmatch(path, -1) {
		if IsAbsent(current) {
			return Absent
		}
		key, idxStr := match[1], match[2]
		if idxStr != "" {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return Absent
			}
			list, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return Absent
			}
			current = list[idx]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return Absent
		}
		v, ok := m[key]
		if !ok {
			return Absent
		}
		current = v
	}
	return current
}

// EvaluateJsonPath evaluates a JSONPath expression (must start with "$")
// against the variable map. A singleton-list result is unwrapped to its
// scalar. Any error yields Absent.
func (c *Context) EvaluateJsonPath(path string) any {
	c.mu.RLock()
	data := shallowCopyMap(c.variables)
	c.mu.RUnlock()

	result, err := jsonpath.Get(path, data)
	if err != nil {
		return Absent
	}
	if list, ok := result.([]any); ok && len(list) == 1 {
		return list[0]
	}
	return result
}

var singleExprRe = regexp.MustCompile(`^\{\{\s*(.+?)\s*\}\}$`)
var exprRe = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

func (c *Context) evaluate(expr string) any {
	if strings.HasPrefix(expr, "$") {
		return c.EvaluateJsonPath(expr)
	}
	return c.ResolveNestedPath(expr)
}

// Interpolate resolves template references in value. Non-string values
// pass through unchanged. A string that is exactly one "{{ expr }}"
// resolves to the raw value, preserving its runtime type; otherwise every
// "{{ expr }}" occurrence is substituted with its value coerced to string.
func (c *Context) Interpolate(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if m := singleExprRe.FindStringSubmatch(s); m != nil {
		return c.evaluate(m[1])
	}
	return exprRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := exprRe.FindStringSubmatch(match)
		return coerceToString(c.evaluate(sub[1]))
	})
}

// InterpolateObject recurses through obj, applying Interpolate to every
// string leaf and leaving non-string leaves and structure untouched.
func (c *Context) InterpolateObject(obj any) any {
	switch v := obj.(type) {
	case string:
		return c.Interpolate(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = c.InterpolateObject(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = c.InterpolateObject(item)
		}
		return out
	default:
		return v
	}
}

// StoreNodeOutput records a node's output under its own id and, when the
// output is a mapping, additionally shallow-merges its keys into the
// top-level variable map so downstream templates may reference either
// "{{nodeId.field}}" or bare "{{field}}". Top-level keys are
// last-writer-wins: when two nodes of the same wave write the same key,
// which value survives depends on completion order and is not defined.
func (c *Context) StoreNodeOutput(nodeID string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[nodeID] = value
	if m, ok := value.(map[string]any); ok {
		for k, v := range m {
			c.variables[k] = v
		}
	}
}

// GetNodeOutput returns the value stored under nodeID, or Absent.
func (c *Context) GetNodeOutput(nodeID string) any {
	return c.Get(nodeID)
}

// NodeContext is the per-node view derived from a Context: a snapshot of
// variables at the moment of derivation, plus a live callback bound to the
// still-mutating Context. userId, credentials, and services are opaque
// pass-through fields the engine never inspects.
type NodeContext struct {
	UserID              string
	CampaignID          string
	WorkflowExecutionID string
	Variables           map[string]any
	ResolveNestedPath   func(path string) any
	Credentials         any
	Services            any
}

// NodeContextOption customizes a derived NodeContext.
type NodeContextOption func(*NodeContext)

// WithCampaignID sets the optional campaign identifier.
func WithCampaignID(id string) NodeContextOption {
	return func(nc *NodeContext) { nc.CampaignID = id }
}

// WithCredentials attaches an opaque credentials bag.
func WithCredentials(creds any) NodeContextOption {
	return func(nc *NodeContext) { nc.Credentials = creds }
}

// WithServices attaches an opaque services bag.
func WithServices(services any) NodeContextOption {
	return func(nc *NodeContext) { nc.Services = services }
}

// ToNodeContext derives a NodeContext bound to this Context. Variables is
// a snapshot taken now; ResolveNestedPath closes over the live Context, so
// later writes are visible to ad-hoc lookups even though they are not
// retroactively visible in the snapshot.
func (c *Context) ToNodeContext(userID, workflowExecutionID string, opts ...NodeContextOption) *NodeContext {
	nc := &NodeContext{
		UserID:              userID,
		WorkflowExecutionID: workflowExecutionID,
		Variables:           c.Snapshot(),
		ResolveNestedPath:   c.ResolveNestedPath,
	}
	for _, opt := range opts {
		opt(nc)
	}
	return nc
}
