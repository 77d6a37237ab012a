// Package node defines the node model: the immutable definition record
// bundling a type identifier, metadata, schemas, and an executor.
package node

import (
	"context"

	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/schema"
)

// Category is purely informational classification of a node definition.
type Category string

const (
	CategoryAction      Category = "action"
	CategoryLogic       Category = "logic"
	CategoryIntegration Category = "integration"
	CategoryTransform   Category = "transform"
)

// Capabilities is the fixed set of advisory boolean flags a definition may
// declare. The engine does not enforce any of them.
type Capabilities struct {
	SupportsEnrichment  bool
	SupportsBulkActions bool
	SupportsApproval    bool
	SupportsRerun       bool
	SupportsCancel      bool
}

// Result is the tagged outcome of running an executor. The json/bson tags
// give it a stable wire shape so a cache backend that serializes values
// (Redis, Mongo) can be decoded straight back into a *Result on a hit.
type Result struct {
	Success bool `json:"success" bson:"success"`
	// Output conforms to the definition's output schema on success.
	Output any `json:"output,omitempty" bson:"output,omitempty"`
	// Error is a human-readable failure reason; set when !Success.
	Error string `json:"error,omitempty" bson:"error,omitempty"`
	// NextNodeID names the chosen branch for conditional routing.
	NextNodeID string `json:"nextNodeId,omitempty" bson:"nextNodeId,omitempty"`
	// NeedsApproval is opaque metadata surfaced upward, not acted on here.
	NeedsApproval any `json:"needsApproval,omitempty" bson:"needsApproval,omitempty"`
	// Notification is an opaque envelope forwarded to observer callbacks.
	Notification any `json:"notification,omitempty" bson:"notification,omitempty"`
}

// ExecutorFunc is the async, side-effecting function attached to a
// definition. It may return a failure result or return a non-nil error;
// the single-node executor treats both identically in its retry loop.
// Implementations must be reentrant: many workflows may share a definition
// concurrently, so an executor must not carry per-call mutable state.
type ExecutorFunc func(ctx context.Context, input any, nodeCtx *flowctx.NodeContext) (*Result, error)

// Definition is the immutable, shared-by-reference description of a node
// type. Create it once at module initialization and register it at most
// once per registry.
type Definition struct {
	Type               string
	Name               string
	Description        string
	Category           Category
	EstimatedDuration  int // seconds, informational
	Capabilities       Capabilities
	InputSchema        schema.Schema
	OutputSchema       schema.Schema
	Executor           ExecutorFunc
}

// Metadata is a Definition with its executor stripped, for callers that
// only need to introspect the catalog.
type Metadata struct {
	Type              string
	Name              string
	Description       string
	Category          Category
	EstimatedDuration int
	Capabilities      Capabilities
	InputSchema       schema.Schema
	OutputSchema      schema.Schema
}

// ToMetadata strips the executor from a definition.
func (d *Definition) ToMetadata() Metadata {
	return Metadata{
		Type:              d.Type,
		Name:              d.Name,
		Description:       d.Description,
		Category:          d.Category,
		EstimatedDuration: d.EstimatedDuration,
		Capabilities:      d.Capabilities,
		InputSchema:       d.InputSchema,
		OutputSchema:      d.OutputSchema,
	}
}

// New builds a Definition from the supplied metadata and schemas. It only
// checks that the required fields are present; structural validity of the
// schemas themselves is the caller's responsibility.
func New(opts Definition) (*Definition, error) {
	if opts.Type == "" {
		return nil, errMissingField("type")
	}
	if opts.Executor == nil {
		return nil, errMissingField("executor")
	}
	if opts.InputSchema == nil {
		return nil, errMissingField("inputSchema")
	}
	if opts.OutputSchema == nil {
		return nil, errMissingField("outputSchema")
	}
	def := opts
	return &def, nil
}

func errMissingField(name string) error {
	return &missingFieldError{field: name}
}

type missingFieldError struct{ field string }

func (e *missingFieldError) Error() string {
	return "node: missing required field " + e.field
}
