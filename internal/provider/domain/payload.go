package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DebugIDKey is the payload key holding the provider's PayPal-Debug-Id header.
const DebugIDKey = "PayPal-Debug-Id"

// Payload is a decoded provider response body.
type Payload map[string]any

// Lookup walks nested maps and slices. Path elements are map keys
// (string) or slice indexes (int).
func (p Payload) Lookup(path ...any) (any, bool) {
	var current any = map[string]any(p)
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := asMap(current)
			if !ok {
				return nil, false
			}
			current, ok = m[key]
			if !ok {
				return nil, false
			}
		case int:
			items, ok := current.([]any)
			if !ok || key < 0 || key >= len(items) {
				return nil, false
			}
			current = items[key]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

// String returns the value at path rendered as a string, or "".
func (p Payload) String(path ...any) string {
	v, ok := p.Lookup(path...)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Map returns the nested object at path.
func (p Payload) Map(path ...any) Payload {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return Payload(m)
}

// Slice returns the nested objects at path.
func (p Payload) Slice(path ...any) []Payload {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(items))
	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, Payload(m))
		}
	}
	return out
}

// Status returns the upper-cased top-level status field.
func (p Payload) Status() string {
	return strings.ToUpper(strings.TrimSpace(p.String("status")))
}

// DebugID returns the provider debug id recorded on the payload.
func (p Payload) DebugID() string {
	return p.String(DebugIDKey)
}

// Raw exposes the payload as a plain map.
func (p Payload) Raw() map[string]any {
	return map[string]any(p)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
