package store

import "slices"

// cloneValue copies the mutable value shapes the serializers produce so that
// callers never share backing storage with the store. Scalars and strings are
// immutable and returned as-is.
func cloneValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return slices.Clone(v)
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = cloneValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = cloneValue(elem)
		}
		return out
	default:
		return value
	}
}
