package memory

import "reflect"

// looseEqual compares a stored value against a filter value. Numeric values
// are compared by magnitude so that JSON-decoded filters (float64) still
// match natively-typed fields.
func looseEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == want
	}
	if gf, ok := asFloat(got); ok {
		if wf, wok := asFloat(want); wok {
			return gf == wf
		}
		return false
	}
	return reflect.DeepEqual(got, want)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
