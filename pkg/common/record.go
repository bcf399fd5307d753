package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one opaque row as decoded from the backend.
type Record map[string]interface{}

// Get resolves a dot separated path such as "CafeteriaPlace.Place.Name".
// Numeric segments index into lists.
func (r Record) Get(path string) (interface{}, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	var cur interface{} = map[string]interface{}(r)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// String resolves path and formats it, returning "" for missing or nil values.
func (r Record) String(path string) string {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return ""
	}
	return ToString(v)
}

// Set assigns value at path, creating intermediate maps.
func (r Record) Set(path string, value interface{}) {
	parts := strings.Split(path, ".")
	node := map[string]interface{}(r)
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			if rec, isRec := node[part].(Record); isRec {
				next = rec
			} else {
				next = make(map[string]interface{})
				node[part] = next
			}
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToInt64 converts JSON decoded ids (float64, string, json.Number) to int64.
func ToInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	case nil:
		return 0, false
	default:
		i, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprintf("%v", val)), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
}

// SameValue compares two loosely typed values the way form options do:
// 3, 3.0 and "3" are equal.
func SameValue(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ToString(a) == ToString(b)
}
