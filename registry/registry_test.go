package registry

import (
	"context"
	"testing"

	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/flowerr"
	"github.com/nodeflow-run/nodeflow/node"
	"github.com/nodeflow-run/nodeflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition(t *testing.T, typ string) *node.Definition {
	t.Helper()
	def, err := node.New(node.Definition{
		Type:         typ,
		Name:         typ,
		Category:     node.CategoryAction,
		InputSchema:  schema.Object(schema.Field("x", schema.String())),
		OutputSchema: schema.Any(),
		Executor: func(ctx context.Context, input any, nc *flowctx.NodeContext) (*node.Result, error) {
			return &node.Result{Success: true, Output: input}, nil
		},
	})
	require.NoError(t, err)
	return def
}

func TestRegister_DuplicateFails(t *testing.T) {
	r := New(nil)
	def := testDefinition(t, "http.fetch")

	_, err := r.Register(def)
	require.NoError(t, err)

	_, err = r.Register(def)
	require.Error(t, err)
	var dup *flowerr.DuplicateTypeError
	assert.ErrorAs(t, err, &dup)
}

func TestRegisterUnregisterIdempotence(t *testing.T) {
	r := New(nil)
	def := testDefinition(t, "http.fetch")
	_, err := r.Register(def)
	require.NoError(t, err)

	assert.True(t, r.Unregister(def.Type))
	assert.False(t, r.Has(def.Type))
	assert.False(t, r.Unregister(def.Type))
}

func TestValidateInput_UnknownType(t *testing.T) {
	r := New(nil)
	_, err := r.ValidateInput("nope", map[string]any{})
	var unknown *flowerr.UnknownTypeError
	assert.ErrorAs(t, err, &unknown)
}

func TestGetByCategory(t *testing.T) {
	r := New(nil)
	a := testDefinition(t, "a")
	a.Category = node.CategoryLogic
	b := testDefinition(t, "b")
	b.Category = node.CategoryAction

	require.NoError(t, r.RegisterAll([]*node.Definition{a, b}))
	assert.Len(t, r.GetByCategory(node.CategoryLogic), 1)
	assert.Len(t, r.GetByCategory(node.CategoryAction), 1)
	assert.Len(t, r.GetAllMetadata(), 2)
}
