package device

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is a loosely-typed key/value bag as delivered by the bridge.
//
// Values follow encoding/json decoding rules (numbers are float64), but the
// accessors also accept ints and numeric strings since snapshot records and
// test fixtures are not always decoded from JSON.
type Payload map[string]any

// Has reports whether key is present, regardless of its value.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns the numeric value at key.
func (p Payload) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Int returns the value at key truncated to an int.
func (p Payload) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool returns the truthiness of the value at key. Numbers are true when
// non-zero, matching how the bridge encodes curstate.
func (p Payload) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true", "on":
			return true, true
		case "false", "off", "":
			return false, true
		}
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// String returns the string value at key.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Ints returns a list of integers at key, skipping entries that are not numeric.
func (p Payload) Ints(key string) []int {
	list, ok := p[key].([]any)
	if !ok {
		if ints, ok := p[key].([]int); ok {
			out := make([]int, len(ints))
			copy(out, ints)
			return out
		}
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if f, ok := toFloat(item); ok {
			out = append(out, int(f))
		}
	}
	return out
}

// Info looks up an entry of the payload's info array by code and returns its
// numeric value. Entries whose value is empty or non-numeric are treated as absent.
func (p Payload) Info(code InfoCode) (float64, bool) {
	entries, ok := p["info"].([]any)
	if !ok {
		return 0, false
	}
	want := strconv.Itoa(int(code))
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if infoCode(entry) != want {
			continue
		}
		if f, ok := toFloat(entry["value"]); ok {
			return f, true
		}
	}
	return 0, false
}

// Clone returns an independent copy of the payload. Nested maps and slices
// are copied so that emitted snapshots never share mutable state.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	return Payload(deepCopyMap(p))
}

// Merge returns a new payload holding the union of p and update, with
// update's values winning on shared keys.
func (p Payload) Merge(update Payload) Payload {
	out := p.Clone()
	for k, v := range update {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Payload:
		return Payload(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are safe to copy by value
		return v
	}
}

// infoCode extracts the code of an info entry. The bridge sends it under
// "text" as a string; "code" is accepted as well.
func infoCode(entry map[string]any) string {
	for _, key := range []string{"text", "code"} {
		switch v := entry[key].(type) {
		case string:
			return v
		case float64:
			return strconv.Itoa(int(v))
		case int:
			return strconv.Itoa(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
