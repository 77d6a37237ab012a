package flowdsl

import (
	"testing"

	"github.com/nodeflow-run/nodeflow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "name": "sample",
  "description": "a two node pipeline",
  "nodes": [
    { "id": "a", "type": "double", "config": { "value": 5 } },
    { "id": "b", "type": "double", "config": { "value": "{{a.value}}" } }
  ],
  "edges": [
    { "id": "e0", "source": "a", "sourceHandle": "", "target": "b", "targetHandle": "" }
  ]
}`

func TestFromJSON_RoundTripsToWorkflow(t *testing.T) {
	doc, err := FromJSON([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "sample", doc.Name)
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)

	wf, err := doc.ToWorkflow("wf-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", wf.ID)
	assert.Equal(t, "sample", wf.Name)
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, "double", wf.Nodes[0].Type)
	require.Len(t, wf.Edges, 1)
	assert.Equal(t, "a", wf.Edges[0].Source)
	assert.Equal(t, "b", wf.Edges[0].Target)
}

func TestFromJSON_RejectsDuplicateNodeID(t *testing.T) {
	_, err := FromJSON([]byte(`{
		"name": "bad",
		"nodes": [
			{"id": "a", "type": "double", "config": {}},
			{"id": "a", "type": "double", "config": {}}
		],
		"edges": []
	}`))
	assert.Error(t, err)
}

func TestFromJSON_RejectsDanglingEdge(t *testing.T) {
	_, err := FromJSON([]byte(`{
		"name": "bad",
		"nodes": [{"id": "a", "type": "double", "config": {}}],
		"edges": [{"id": "e0", "source": "a", "target": "missing"}]
	}`))
	assert.Error(t, err)
}

func TestFromYAML(t *testing.T) {
	yamlDoc := `
name: sample
nodes:
  - id: a
    type: double
    config:
      value: 5
edges: []
`
	doc, err := FromYAML([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "sample", doc.Name)
	require.Len(t, doc.Nodes, 1)
}

func TestFromWorkflow_RoundTrips(t *testing.T) {
	wf := engine.Workflow{
		ID:   "wf-1",
		Name: "sample",
		Nodes: []engine.NodeSpec{
			{ID: "a", Type: "double", Config: map[string]any{"value": 5}},
		},
		Edges: []engine.Edge{
			{Source: "a", Target: "b", SourceHandle: "true"},
		},
	}
	doc := FromWorkflow(wf)
	assert.Equal(t, "sample", doc.Name)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "e0", doc.Edges[0].ID)
	assert.Equal(t, "true", doc.Edges[0].SourceHandle)

	b, err := doc.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sourceHandle": "true"`)
}

func TestValidate_RequiresName(t *testing.T) {
	doc := &Document{Nodes: []NodeDoc{{ID: "a", Type: "double"}}}
	assert.Error(t, doc.Validate())
}

func TestValidate_RequiresAtLeastOneNode(t *testing.T) {
	doc := &Document{Name: "empty"}
	assert.Error(t, doc.Validate())
}
