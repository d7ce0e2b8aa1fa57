package typeutils

import "sort"

// ArrayElement is the path segment that descends into every element of an array
const ArrayElement = "*"

// DatetimePaths walks a JSON schema and returns the path of every property
// declared with format date-time, including properties nested in objects and arrays
func DatetimePaths(schema map[string]any) [][]string {
	var paths [][]string
	walkSchema(schema, nil, &paths)
	return paths
}

func walkSchema(schema map[string]any, prefix []string, paths *[][]string) {
	if items, ok := schema["items"].(map[string]any); ok {
		walkSchema(items, appendPath(prefix, ArrayElement), paths)
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return
	}

	// sorted for a deterministic traversal
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		property, ok := properties[key].(map[string]any)
		if !ok {
			continue
		}

		path := appendPath(prefix, key)
		if format, _ := property["format"].(string); format == "date-time" {
			*paths = append(*paths, path)
			continue
		}
		walkSchema(property, path, paths)
	}
}

func appendPath(prefix []string, segment string) []string {
	path := make([]string, len(prefix), len(prefix)+1)
	copy(path, prefix)
	return append(path, segment)
}

// NormalizeTimes rewrites every timestamp found at paths into epoch millis.
// Missing or null values stay untouched, values that fail to parse are returned as an error.
func NormalizeTimes(record map[string]any, paths [][]string) error {
	for _, path := range paths {
		if err := normalizeAt(record, path); err != nil {
			return err
		}
	}
	return nil
}

func normalizeAt(node any, path []string) error {
	if len(path) == 0 {
		return nil
	}

	if path[0] == ArrayElement {
		list, ok := node.([]any)
		if !ok {
			return nil
		}
		for idx, elem := range list {
			if len(path) == 1 {
				if converted, changed, err := normalizeValue(elem); err != nil {
					return err
				} else if changed {
					list[idx] = converted
				}
				continue
			}
			if err := normalizeAt(elem, path[1:]); err != nil {
				return err
			}
		}
		return nil
	}

	object, ok := asObject(node)
	if !ok {
		return nil
	}

	value, exists := object[path[0]]
	if !exists || value == nil {
		return nil
	}

	if len(path) > 1 {
		return normalizeAt(value, path[1:])
	}

	converted, changed, err := normalizeValue(value)
	if err != nil {
		return err
	}
	if changed {
		object[path[0]] = converted
	}
	return nil
}

func normalizeValue(value any) (any, bool, error) {
	if value == nil {
		return nil, false, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return value, false, nil
	}

	millis, err := NormalizeTimestamp(value)
	if err != nil {
		return nil, false, err
	}
	return millis, true, nil
}

func asObject(node any) (map[string]any, bool) {
	object, ok := node.(map[string]any)
	return object, ok
}

// NestedGet follows path through nested objects and returns nil when any
// segment is absent
func NestedGet(record map[string]any, path ...string) any {
	var node any = record
	for _, key := range path {
		object, ok := asObject(node)
		if !ok {
			return nil
		}
		if node, ok = object[key]; !ok {
			return nil
		}
	}
	return node
}

// NestedSet assigns value at path creating intermediate objects as needed
func NestedSet(record map[string]any, value any, path ...string) {
	if len(path) == 0 {
		return
	}

	node := record
	for _, key := range path[:len(path)-1] {
		next, ok := asObject(node[key])
		if !ok {
			next = make(map[string]any)
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
}
