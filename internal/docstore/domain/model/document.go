package model

import (
	"strings"
)

// Well-known document fields
const (
	IDField  = "id"
	URIField = "uri"
)

// Document represents a stored item: a mapping of field names to values.
// It must carry a unique string "id" field.
type Document map[string]interface{}

// ID returns the document identifier and whether it is a non-empty string.
func (d Document) ID() (string, bool) {
	id, ok := d[IDField].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Lookup resolves a slash-separated field path such as "/customerId" or "/address/zip".
func (d Document) Lookup(path string) (interface{}, bool) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	var current interface{} = map[string]interface{}(d)
	for _, segment := range segments {
		m, ok := asMap(current)
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

// Clone returns a deep copy of the document. Scalar values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

// SplitPath splits a partition-key path into its field segments.
func SplitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case Document:
		return Document(cloneMap(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return val
	}
}
