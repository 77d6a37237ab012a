package flowctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDualStorage(t *testing.T) {
	c := New(nil)
	c.StoreNodeOutput("a", map[string]any{"value": "from-A", "n": float64(1)})

	assert.Equal(t, map[string]any{"value": "from-A", "n": float64(1)}, c.GetNodeOutput("a"))
	assert.Equal(t, "from-A", c.Get("value"))
	assert.Equal(t, float64(1), c.Get("n"))
}

func TestStoreNodeOutput_NonMapping(t *testing.T) {
	c := New(nil)
	c.StoreNodeOutput("a", "scalar")
	assert.Equal(t, "scalar", c.GetNodeOutput("a"))
	assert.True(t, IsAbsent(c.Get("scalar")))
}

func TestResolveNestedPath(t *testing.T) {
	c := New(map[string]any{
		"a": map[string]any{
			"b": []any{
				map[string]any{"c": "deep"},
			},
		},
	})

	assert.Equal(t, "deep", c.ResolveNestedPath("a.b[0].c"))
	assert.True(t, IsAbsent(c.ResolveNestedPath("a.b[5].c")))
	assert.True(t, IsAbsent(c.ResolveNestedPath("missing.path")))

	whole := c.ResolveNestedPath("")
	assert.Contains(t, whole, "a")
}

func TestInterpolate_SingleExpressionUnwrapsType(t *testing.T) {
	c := New(map[string]any{"list": []any{float64(1), float64(2)}})
	out := c.Interpolate("{{list}}")
	assert.Equal(t, []any{float64(1), float64(2)}, out)
}

func TestInterpolate_MultiExpressionCoercesToString(t *testing.T) {
	c := New(map[string]any{"x": float64(3), "name": "bob"})
	out := c.Interpolate("hello {{name}}, you have {{x}} items")
	assert.Equal(t, "hello bob, you have 3 items", out)
}

func TestInterpolate_NonStringPassesThrough(t *testing.T) {
	c := New(nil)
	assert.Equal(t, float64(5), c.Interpolate(float64(5)))
}

func TestInterpolateObject_NoOpWithoutTemplates(t *testing.T) {
	c := New(nil)
	obj := map[string]any{"a": float64(1), "b": []any{"x", "y"}}
	out := c.InterpolateObject(obj)
	assert.Equal(t, obj, out)
}

func TestInterpolateObject_Recurses(t *testing.T) {
	c := New(map[string]any{"a": map[string]any{"value": "from-A"}})
	obj := map[string]any{
		"upstream": "{{a.value}}",
		"nested":   map[string]any{"greeting": "hi {{a.value}}"},
	}
	out := c.InterpolateObject(obj).(map[string]any)
	assert.Equal(t, "from-A", out["upstream"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, "hi from-A", nested["greeting"])
}

func TestToNodeContext_SnapshotVsLive(t *testing.T) {
	c := New(map[string]any{"x": float64(1)})
	nc := c.ToNodeContext("user-1", "exec-1")
	require.Equal(t, float64(1), nc.Variables["x"])

	c.Set("x", float64(2))
	assert.Equal(t, float64(1), nc.Variables["x"], "snapshot must not see later writes")
	assert.Equal(t, float64(2), nc.ResolveNestedPath("x"), "live callback must see later writes")
}

func TestJsonPathEvaluation(t *testing.T) {
	c := New(map[string]any{
		"items": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		},
	})
	out := c.EvaluateJsonPath("$.items[0].id")
	assert.Equal(t, "1", out)

	assert.True(t, IsAbsent(c.EvaluateJsonPath("$.nope")))
}
