package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Keys that carry form/feed/entry context while a resource is being built.
// They never reach the provider.
var transientKeys = map[string]struct{}{
	"form":            {},
	"feed":            {},
	"entry":           {},
	"submission_data": {},
}

// IsTransientKey reports whether key holds local context rather than resource data.
func IsTransientKey(key string) bool {
	_, ok := transientKeys[key]
	return ok
}

func readString(data map[string]any, key string) (string, bool) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

func readInt(data map[string]any, key string) (int, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		return int(n), true, err
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(v)
		return n, true, err
	default:
		return 0, true, fmt.Errorf("unsupported integer type %T", raw)
	}
}

func readBool(data map[string]any, key string) (bool, bool) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true, true
		default:
			return false, true
		}
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	default:
		return false, true
	}
}

func readMap(data map[string]any, key string) (map[string]any, bool) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	return m, ok
}

func readMaps(data map[string]any, key string) ([]map[string]any, bool) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func putString(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}

func putResource(out map[string]any, key string, r interface{ Serialize() map[string]any }, present bool) {
	if !present {
		return
	}
	if m := r.Serialize(); len(m) > 0 {
		out[key] = m
	}
}

func intField(resource string, data map[string]any, key string, dst *int) error {
	n, ok, err := readInt(data, key)
	if err != nil {
		return invalidField(resource, key, "must be an integer")
	}
	if ok {
		*dst = n
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
