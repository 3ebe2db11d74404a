package ingest

import "strings"

// RawRecord is an arbitrary-shaped product payload: extraction output, a
// feed row, or an API body. No invariants hold; it may be partially empty.
type RawRecord map[string]interface{}

// FieldMapping maps a canonical field name to a dot-path inside the raw
// record ("price" -> "pricing.current.amount").
type FieldMapping map[string]string

// ApplyFieldMapping copies each mapped value onto its canonical field when
// the dot-path resolves. Every raw field that is not a mapping target passes
// through unchanged, so arbitrary extra attributes survive.
func ApplyFieldMapping(raw RawRecord, mapping FieldMapping) RawRecord {
	if len(mapping) == 0 {
		return raw
	}

	out := make(RawRecord, len(raw)+len(mapping))
	for key, value := range raw {
		out[key] = value
	}
	for canonical, path := range mapping {
		if value, ok := resolvePath(raw, path); ok {
			out[canonical] = value
		}
	}
	return out
}

// resolvePath walks a dot-path through nested maps. The second return is
// false when any segment is missing.
func resolvePath(raw RawRecord, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(raw)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
