package modelgraph

// CleanResponse strips null and empty members from a response payload,
// recursively. Deployments that enable the CleanResponse setting apply it to
// the execution result's data map before serialization.
func CleanResponse(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		cv, keep := cleanValue(v)
		if keep {
			out[k] = cv
		}
	}
	return out
}

func cleanValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		m := CleanResponse(val)
		if len(m) == 0 {
			return nil, false
		}
		return m, true
	case []any:
		items := make([]any, 0, len(val))
		for _, it := range val {
			if cv, keep := cleanValue(it); keep {
				items = append(items, cv)
			}
		}
		if len(items) == 0 {
			return nil, false
		}
		return items, true
	default:
		return v, true
	}
}
