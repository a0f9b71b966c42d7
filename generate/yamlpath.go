// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

// Nested-map helpers for pipeline configs. Pipeline configs are
// decoded as map[string]any and manipulated by key path; a path like
// ["registration_workflows", "anatomical_registration"] names a
// subtree.

// pathGet returns the value at path, or nil and false when any
// segment is missing or not a map.
func pathGet(obj map[string]any, path []string) (any, bool) {
	var current any = obj
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// pathSet sets the value at path, creating intermediate maps as
// needed. Returns false when an existing intermediate segment is not
// a map (the path cannot be created without destroying data).
func pathSet(obj map[string]any, path []string, value any) bool {
	current := obj
	for i, key := range path {
		if i == len(path)-1 {
			current[key] = value
			return true
		}
		next, exists := current[key]
		if !exists {
			child := make(map[string]any)
			current[key] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = child
	}
	return false
}

// pathDelete removes the value at path. Returns the removed value and
// whether anything was removed.
func pathDelete(obj map[string]any, path []string) (any, bool) {
	current := obj
	for i, key := range path {
		if i == len(path)-1 {
			value, exists := current[key]
			if !exists {
				return nil, false
			}
			delete(current, key)
			return value, true
		}
		next, exists := current[key]
		if !exists {
			return nil, false
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		current = child
	}
	return nil, false
}

// deepCopyValue recursively copies a decoded YAML value. Maps and
// slices are duplicated; scalars are returned as-is.
func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, child := range typed {
			copied[key] = deepCopyValue(child)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for i, child := range typed {
			copied[i] = deepCopyValue(child)
		}
		return copied
	default:
		return typed
	}
}
