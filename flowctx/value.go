package flowctx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// absentValue is the sentinel returned when a path does not resolve:
// a missing key, an out-of-range index, or traversal through nil. It is
// distinct from an explicit JSON null, which round-trips as a Go nil.
type absentValue struct{}

// Absent is the distinguished "no such key / path not resolvable" value.
var Absent any = absentValue{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absentValue)
	return ok
}

// isMapping reports whether v is a plain object (map[string]any) as
// opposed to a sequence or scalar. The dual-storage merge in
// storeNodeOutput only fires for mappings.
func isMapping(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// coerceToString stringifies a resolved value for multi-expression
// template substitution, per the coercion rules in the interpolation spec.
func coerceToString(v any) string {
	if v == nil || IsAbsent(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return fmt.Sprintf("%t", t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = coerceToString(item)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// shallowCopyMap duplicates a string-keyed map one level deep, used to
// snapshot variables for a node context without aliasing the live store.
func shallowCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
