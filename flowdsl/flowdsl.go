// Package flowdsl converts the persisted workflow JSON/YAML representation
// into the engine's in-memory Workflow, and back. The wire shape is kept
// bit-exact for tooling interop (editors, importers); engine.Workflow is
// free to diverge in field names once decoded.
package flowdsl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nodeflow-run/nodeflow/engine"
	"gopkg.in/yaml.v3"
)

// Position is the optional canvas coordinate carried through for editor
// round-tripping. The engine never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeDoc is one node's wire representation.
type NodeDoc struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Position *Position      `json:"position,omitempty" yaml:"position,omitempty"`
	Config   map[string]any `json:"config" yaml:"config"`
}

// EdgeDoc is one edge's wire representation.
type EdgeDoc struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle"`
	Target       string `json:"target" yaml:"target"`
	TargetHandle string `json:"targetHandle" yaml:"targetHandle"`
}

// Document is the persisted, bit-exact workflow shape.
type Document struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeDoc `json:"nodes" yaml:"nodes"`
	Edges       []EdgeDoc `json:"edges" yaml:"edges"`
}

// ToWorkflow converts a Document into an engine.Workflow. config becomes
// each node's input map unchanged; sourceHandle/targetHandle are carried
// through onto engine.Edge since the executor's own branch-skip logic
// reads SourceHandle directly.
func (d *Document) ToWorkflow(id string) (engine.Workflow, error) {
	if err := d.Validate(); err != nil {
		return engine.Workflow{}, err
	}
	nodes := make([]engine.NodeSpec, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, engine.NodeSpec{
			ID:     n.ID,
			Type:   n.Type,
			Config: n.Config,
		})
	}
	edges := make([]engine.Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edges = append(edges, engine.Edge{
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
		})
	}
	return engine.Workflow{
		ID:    id,
		Name:  d.Name,
		Nodes: nodes,
		Edges: edges,
	}, nil
}

// FromWorkflow converts an engine.Workflow back into its persisted form.
// Edge ids are regenerated positionally since engine.Edge does not carry
// one; positions are never populated (the engine has no notion of them).
func FromWorkflow(wf engine.Workflow) *Document {
	doc := &Document{
		Name:  wf.Name,
		Nodes: make([]NodeDoc, 0, len(wf.Nodes)),
		Edges: make([]EdgeDoc, 0, len(wf.Edges)),
	}
	for _, n := range wf.Nodes {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, Type: n.Type, Config: n.Config})
	}
	for i, e := range wf.Edges {
		doc.Edges = append(doc.Edges, EdgeDoc{
			ID:           fmt.Sprintf("e%d", i),
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
		})
	}
	return doc
}

// Validate checks structural integrity: unique node ids, and edges that
// only reference declared nodes.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("flowdsl: workflow name is required")
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("flowdsl: workflow must have at least one node")
	}
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("flowdsl: node id is required")
		}
		if n.Type == "" {
			return fmt.Errorf("flowdsl: node %s: type is required", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("flowdsl: duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range d.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("flowdsl: edge %s: source %q does not exist", e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("flowdsl: edge %s: target %q does not exist", e.ID, e.Target)
		}
	}
	return nil
}

// FromJSON parses and validates a Document from a JSON byte slice.
func FromJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flowdsl: unmarshal json: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FromYAML parses and validates a Document from a YAML byte slice.
func FromYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flowdsl: unmarshal yaml: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadJSONFile reads and parses a Document from a JSON file.
func LoadJSONFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flowdsl: read file: %w", err)
	}
	return FromJSON(data)
}

// LoadYAMLFile reads and parses a Document from a YAML file.
func LoadYAMLFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flowdsl: read file: %w", err)
	}
	return FromYAML(data)
}

// ToJSON serializes the Document to indented JSON.
func (d *Document) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("flowdsl: marshal json: %w", err)
	}
	return b, nil
}

// ToYAML serializes the Document to YAML.
func (d *Document) ToYAML() ([]byte, error) {
	b, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("flowdsl: marshal yaml: %w", err)
	}
	return b, nil
}
