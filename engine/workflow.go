package engine

// NodeSpec is one node's placement within a Workflow: which registered
// type it instantiates and the (pre-interpolation) configuration passed
// to it as input.
type NodeSpec struct {
	ID     string
	Type   string
	Config map[string]any
}

// Workflow is the core in-memory form of a runnable graph: a flat node
// list plus the edges between them. The persisted JSON/YAML wire form is
// converted into this shape by the flowdsl package before being handed
// to Execute.
type Workflow struct {
	ID    string
	Name  string
	Nodes []NodeSpec
	Edges []Edge
}

func (w Workflow) nodeIDs() []string {
	ids := make([]string, len(w.Nodes))
	for i, n := range w.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func (w Workflow) byID() map[string]NodeSpec {
	m := make(map[string]NodeSpec, len(w.Nodes))
	for _, n := range w.Nodes {
		m[n.ID] = n
	}
	return m
}

// RunResult is everything Execute reports about one completed or
// partially-completed run.
type RunResult struct {
	ExecutionID string
	Statuses    map[string]string
	Results     map[string]*NodeOutcome
	Skipped     map[string]bool
	Variables   map[string]any
}

// NodeOutcome pairs a node's result with the error, if any, that
// prevented it from producing one (e.g. an unknown type or a schema
// validation failure raised before the executor ever ran).
type NodeOutcome struct {
	Success bool
	Output  any
	Error   string
}
