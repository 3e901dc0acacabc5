package components

// Props decoded from the registry arrive as JSON values.

func boolProp(props map[string]any, key string) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}

	return false
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}

	return ""
}

// compact drops zero values so that default-valued instances render without
// a registry entry.
func compact(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch t := v.(type) {
		case bool:
			if !t {
				continue
			}
		case string:
			if t == "" {
				continue
			}
		case nil:
			continue
		}
		out[k] = v
	}

	return out
}
