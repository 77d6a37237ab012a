package flowctx

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDualStorageProperty verifies invariant 9: after storeNodeOutput(id,
// obj) where obj is a mapping, getVariable(id) == obj and every key of obj
// is independently readable from the top-level map.
func TestDualStorageProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	keyGen := gen.RegexMatch(`^[a-zA-Z][a-zA-Z0-9]{0,8}$`)
	// Mapping to interface{} makes MapOf build a map[string]interface{}
	// holding mixed value types, instead of a map typed after whichever
	// generator produced the first element.
	valueGen := gen.OneGenOf(
		gen.AlphaString(),
		gen.Float64Range(-1000, 1000),
		gen.Bool(),
	).Map(func(v interface{}) interface{} { return v })
	objGen := gen.MapOf(keyGen, valueGen)

	properties.Property("storeNodeOutput dual-writes id and top-level keys", prop.ForAll(
		func(id string, obj map[string]interface{}) bool {
			if id == "" {
				return true
			}
			// An output key equal to the node's own id overwrites the
			// id-keyed copy during the merge, so the two halves of the
			// property cannot both hold for such an obj.
			if _, clash := obj[id]; clash {
				return true
			}
			c := New(nil)
			c.StoreNodeOutput(id, obj)

			got := c.GetNodeOutput(id)
			gotMap, ok := got.(map[string]interface{})
			if !ok || len(gotMap) != len(obj) {
				return false
			}
			for k, v := range obj {
				if c.Get(k) != v {
					return false
				}
			}
			return true
		},
		keyGen,
		objGen,
	))

	properties.Property("interpolateObject is a no-op without template markers", prop.ForAll(
		func(a, b string) bool {
			c := New(map[string]interface{}{"unused": "value"})
			obj := map[string]interface{}{"a": a, "b": b}
			out := c.InterpolateObject(obj).(map[string]interface{})
			return out["a"] == a && out["b"] == b
		},
		gen.AlphaString().SuchThat(func(s string) bool { return !containsBraces(s) }),
		gen.AlphaString().SuchThat(func(s string) bool { return !containsBraces(s) }),
	))

	properties.TestingRun(t)
}

func containsBraces(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '{' && s[i+1] == '{' {
			return true
		}
	}
	return false
}
