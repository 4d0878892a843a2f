// Package codec translates between structured property values and the
// graph store's flat scalar property model. Composite values (a money
// range, a geo point) are never stored nested: they are flattened to a
// fixed set of sibling scalar properties on write and reassembled on
// read. The set of recognized composite kinds is a registry, so new
// kinds are added here without touching the CRUD layer.
package codec

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Kind describes one recognized composite value shape. Detection is
// structural - presence of the required sub-keys - not by a type tag.
type Kind struct {
	Name     string
	Required []string // sub-keys whose presence identifies the shape
	Optional []string // sub-keys carried through when present
}

// registry of composite kinds. Required key sets are disjoint today, so
// detection order does not matter.
var kinds = []Kind{
	{
		Name:     "range",
		Required: []string{"min", "max"},
		Optional: []string{"currency"},
	},
	{
		Name:     "geo",
		Required: []string{"lat", "lng"},
		Optional: []string{"region"},
	},
}

// Kinds returns the registered composite kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) subFields() []string {
	return append(append([]string{}, k.Required...), k.Optional...)
}

// detect reports whether a map value matches this kind: every required
// sub-key present with a numeric value.
func (k Kind) detect(m map[string]any) bool {
	for _, sub := range k.Required {
		v, ok := m[sub]
		if !ok {
			return false
		}
		if !isNumber(v) {
			return false
		}
	}
	return true
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// Encode flattens a structured property map into the store's flat scalar
// model. Nil values are dropped. time.Time becomes an RFC 3339 string.
// Maps matching a registered composite kind are split into sibling
// scalars named <name><SubCapitalized>; any other map is serialized to a
// JSON string. Arrays pass through - the store supports list properties.
func Encode(props map[string]any) map[string]any {
	flat := make(map[string]any, len(props))
	for name, value := range props {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			flat[name] = v.UTC().Format(time.RFC3339Nano)
		case map[string]any:
			if kind, ok := detectKind(v); ok {
				for _, sub := range kind.subFields() {
					if sv, present := v[sub]; present && sv != nil {
						flat[name+capitalize(sub)] = sv
					}
				}
				continue
			}
			// Unrecognized object shape: degrade to an opaque JSON
			// string; Decode parses it back.
			if data, err := json.Marshal(v); err == nil {
				flat[name] = string(data)
			}
		default:
			flat[name] = value
		}
	}
	return flat
}

// Decode is the inverse of Encode: sibling scalar groups are reassembled
// into their composite shape (present if at least one required sibling
// is present), JSON-looking strings are parsed back into structured
// values (falling back to the raw string), and strict RFC 3339 strings
// become time.Time again.
func Decode(flat map[string]any) map[string]any {
	props := make(map[string]any, len(flat))
	consumed := make(map[string]bool, len(flat))

	for _, kind := range kinds {
		for _, base := range compositeBases(flat, kind) {
			composite := make(map[string]any)
			for _, sub := range kind.subFields() {
				key := base + capitalize(sub)
				if v, ok := flat[key]; ok {
					composite[sub] = v
					consumed[key] = true
				}
			}
			props[base] = composite
		}
	}

	for name, value := range flat {
		if consumed[name] {
			continue
		}
		if s, ok := value.(string); ok {
			props[name] = decodeString(s)
			continue
		}
		props[name] = value
	}
	return props
}

// compositeBases finds property base names whose flattened siblings for
// this kind are present (at least one required sub-key).
func compositeBases(flat map[string]any, kind Kind) []string {
	seen := make(map[string]bool)
	var bases []string
	for _, sub := range kind.Required {
		suffix := capitalize(sub)
		for key := range flat {
			base, ok := strings.CutSuffix(key, suffix)
			if !ok || base == "" {
				continue
			}
			if !isNumber(flat[key]) {
				continue
			}
			if !seen[base] {
				seen[base] = true
				bases = append(bases, base)
			}
		}
	}
	return bases
}

func detectKind(m map[string]any) (Kind, bool) {
	for _, kind := range kinds {
		if kind.detect(m) {
			return kind, true
		}
	}
	return Kind{}, false
}

// decodeString turns serialized scalars back into structured values:
// RFC 3339 timestamps become time.Time, JSON objects/arrays are parsed,
// anything else stays a string.
func decodeString(s string) any {
	trimmed := strings.TrimSpace(s)
	if looksLikeTimestamp(trimmed) {
		if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return t
		}
	}
	if looksLikeJSON(trimmed) {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}
	return s
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// looksLikeTimestamp is a cheap structural check before paying for a
// full RFC 3339 parse: "2024-01-02T..." with a timezone marker.
func looksLikeTimestamp(s string) bool {
	if len(s) < 20 {
		return false
	}
	if s[4] != '-' || s[7] != '-' || s[10] != 'T' {
		return false
	}
	for _, i := range []int{0, 1, 2, 3, 5, 6, 8, 9} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return strings.HasSuffix(s, "Z") || strings.ContainsAny(s[10:], "+") ||
		strings.Count(s[10:], "-") > 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
