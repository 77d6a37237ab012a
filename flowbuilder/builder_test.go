package flowbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_LinearPipeline(t *testing.T) {
	b := New("wf-1", "pipeline", nil)
	b.AddNode("a", "double").WithConfig("value", 5).To("b")
	b.AddNode("b", "double").WithConfig("value", "{{a.value}}")

	wf, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "wf-1", wf.ID)
	require.Len(t, wf.Nodes, 2)
	require.Len(t, wf.Edges, 1)
	assert.Equal(t, "a", wf.Edges[0].Source)
	assert.Equal(t, "b", wf.Edges[0].Target)
}

func TestBuilder_ConditionalEdges(t *testing.T) {
	b := New("wf-2", "branching", nil)
	b.AddNode("cond", "branch")
	b.AddNode("onTrue", "noop")
	b.AddNode("onFalse", "noop")
	b.AddConditionalEdge("cond", "true", "onTrue")
	b.AddConditionalEdge("cond", "false", "onFalse")

	wf, err := b.Build()
	require.NoError(t, err)
	require.Len(t, wf.Edges, 2)
	assert.Equal(t, "true", wf.Edges[0].SourceHandle)
	assert.Equal(t, "false", wf.Edges[1].SourceHandle)
}

func TestBuilder_RejectsCycle(t *testing.T) {
	b := New("wf-3", "cyclic", nil)
	b.AddNode("a", "double").To("b")
	b.AddNode("b", "double").To("a")

	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilder_RejectsDanglingEdge(t *testing.T) {
	b := New("wf-4", "dangling", nil)
	b.AddNode("a", "double")
	b.AddEdge("a", "missing")

	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilder_RequiresName(t *testing.T) {
	b := New("wf-5", "", nil)
	b.AddNode("a", "double")

	_, err := b.Build()
	assert.Error(t, err)
}
