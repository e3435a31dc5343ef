package artifacts

import "math"

// Sanitize coerces a value tree into JSON-safe form: NaN and infinite
// floats become nil, integral floats become ints, and maps/slices are
// walked recursively. Every metric value crosses this boundary before it is
// persisted or returned to a client.
func Sanitize(v any) any {
	switch t := v.(type) {
	case float64:
		return sanitizeFloat(t)
	case float32:
		return sanitizeFloat(float64(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Sanitize(val)
		}
		return out
	case map[string]float64:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sanitizeFloat(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeFloat(val)
		}
		return out
	default:
		return v
	}
}

func sanitizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int64(f)
	}
	return f
}

// SanitizeMetrics flattens a metrics map to JSON-safe values.
func SanitizeMetrics(metrics map[string]float64) map[string]any {
	out := make(map[string]any, len(metrics))
	for k, v := range metrics {
		out[k] = sanitizeFloat(v)
	}
	return out
}
