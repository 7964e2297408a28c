package db

import (
	"encoding/json"
	"reflect"
)

// PayloadContains reports whether doc contains needle under Postgres jsonb
// containment rules. The in-memory store uses it to answer the same queries
// the GIN-backed `payload @> $1` path answers on Postgres.
func PayloadContains(doc, needle json.RawMessage) (bool, error) {
	var d, n interface{}
	if err := json.Unmarshal(doc, &d); err != nil {
		return false, err
	}
	if err := json.Unmarshal(needle, &n); err != nil {
		return false, err
	}

	// Top-level exception: an array contains a bare scalar element.
	if docArr, ok := d.([]interface{}); ok {
		if !isContainer(n) {
			for _, dv := range docArr {
				if reflect.DeepEqual(dv, n) {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return contains(d, n), nil
}

func isContainer(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	}
	return false
}

func contains(doc, needle interface{}) bool {
	switch n := needle.(type) {
	case map[string]interface{}:
		d, ok := doc.(map[string]interface{})
		if !ok {
			return false
		}
		for k, nv := range n {
			dv, present := d[k]
			if !present || !contains(dv, nv) {
				return false
			}
		}
		return true
	case []interface{}:
		d, ok := doc.([]interface{})
		if !ok {
			return false
		}
		for _, nv := range n {
			matched := false
			for _, dv := range d {
				if contains(dv, nv) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	default:
		// Scalars decode to bool, float64, string or nil; equality suffices.
		return reflect.DeepEqual(doc, needle)
	}
}
