// Package flowbuilder provides a fluent API for constructing an
// engine.Workflow in code, as an alternative to authoring the flowdsl
// wire JSON by hand.
package flowbuilder

import (
	"fmt"
	"sort"

	"github.com/nodeflow-run/nodeflow/engine"
	"go.uber.org/zap"
)

// Builder accumulates nodes and edges for one workflow.
type Builder struct {
	id     string
	name   string
	nodes  []engine.NodeSpec
	edges  []engine.Edge
	seen   map[string]bool
	logger *zap.Logger
}

// New starts a builder for a workflow with the given id and name. A nil
// logger defaults to a no-op logger.
func New(id, name string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		id:     id,
		name:   name,
		seen:   make(map[string]bool),
		logger: logger.With(zap.String("component", "flowbuilder")),
	}
}

// AddNode registers a node of the given type and returns a NodeBuilder
// for attaching its configuration and outgoing edges. Calling AddNode
// twice with the same id is a mistake the caller will only discover at
// Build time, matching the rest of this package's validate-at-Build
// design.
func (b *Builder) AddNode(id, typ string) *NodeBuilder {
	spec := engine.NodeSpec{ID: id, Type: typ, Config: make(map[string]any)}
	b.nodes = append(b.nodes, spec)
	b.seen[id] = true
	return &NodeBuilder{parent: b, index: len(b.nodes) - 1}
}

// AddEdge adds an unconditioned edge from one node to another.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.edges = append(b.edges, engine.Edge{Source: from, Target: to})
	return b
}

// AddConditionalEdge adds an edge that is only followed when the source
// node's result selects handle as its NextNodeID.
func (b *Builder) AddConditionalEdge(from, handle, to string) *Builder {
	b.edges = append(b.edges, engine.Edge{Source: from, SourceHandle: handle, Target: to})
	return b
}

// Build validates the accumulated graph and returns the finished
// Workflow. Validation covers dangling edges and cycles; it does not
// require every node be reachable from a single entry point, since a
// workflow here may have multiple independent starting nodes. Wave zero
// is simply every zero-indegree node.
func (b *Builder) Build() (engine.Workflow, error) {
	if b.name == "" {
		return engine.Workflow{}, fmt.Errorf("flowbuilder: workflow name is required")
	}
	if len(b.nodes) == 0 {
		return engine.Workflow{}, fmt.Errorf("flowbuilder: workflow must have at least one node")
	}
	for _, e := range b.edges {
		if !b.seen[e.Source] {
			return engine.Workflow{}, fmt.Errorf("flowbuilder: edge references non-existent source node: %s", e.Source)
		}
		if !b.seen[e.Target] {
			return engine.Workflow{}, fmt.Errorf("flowbuilder: edge references non-existent target node: %s", e.Target)
		}
	}

	wf := engine.Workflow{ID: b.id, Name: b.name, Nodes: b.nodes, Edges: b.edges}

	if _, err := engine.Plan(engine.Graph{NodeIDs: nodeIDs(b.nodes), Edges: b.edges}); err != nil {
		return engine.Workflow{}, fmt.Errorf("flowbuilder: %w", err)
	}

	b.logger.Info("workflow built",
		zap.String("name", b.name),
		zap.Int("nodes", len(b.nodes)),
		zap.Int("edges", len(b.edges)),
	)

	return wf, nil
}

func nodeIDs(nodes []engine.NodeSpec) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	return ids
}

// NodeBuilder configures the node just added to a Builder.
type NodeBuilder struct {
	parent *Builder
	index  int
}

// WithConfig sets one config field on the node.
func (nb *NodeBuilder) WithConfig(key string, value any) *NodeBuilder {
	nb.parent.nodes[nb.index].Config[key] = value
	return nb
}

// WithConfigMap replaces the node's entire config map.
func (nb *NodeBuilder) WithConfigMap(config map[string]any) *NodeBuilder {
	nb.parent.nodes[nb.index].Config = config
	return nb
}

// To adds an unconditioned edge from this node to target and returns to
// the parent builder.
func (nb *NodeBuilder) To(target string) *Builder {
	nb.parent.AddEdge(nb.parent.nodes[nb.index].ID, target)
	return nb.parent
}

// ToOnHandle adds a conditioned edge from this node to target, only
// followed when this node's result selects handle, and returns to the
// parent builder.
func (nb *NodeBuilder) ToOnHandle(handle, target string) *Builder {
	nb.parent.AddConditionalEdge(nb.parent.nodes[nb.index].ID, handle, target)
	return nb.parent
}

// Done returns to the parent builder without adding an edge.
func (nb *NodeBuilder) Done() *Builder {
	return nb.parent
}
