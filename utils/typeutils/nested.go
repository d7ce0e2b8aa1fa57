package typeutils

// Denest collapses list wrappers of the form {"tags": {"type": "list", "tags": [...]}}
// into the inner array. A wrapper without items is removed from the record,
// fields that already hold an array are left alone.
func Denest(records []map[string]any, fields ...string) []map[string]any {
	for _, record := range records {
		for _, field := range fields {
			if _, flat := record[field].([]any); flat {
				continue
			}

			wrapper, ok := asObject(record[field])
			if !ok {
				delete(record, field)
				continue
			}

			inner, ok := wrapper[field].([]any)
			if !ok || len(inner) == 0 {
				delete(record, field)
				continue
			}
			record[field] = inner
		}
	}

	return records
}

// Explode turns the list embedded at path inside parent into independent records;
// every produced record is extended with the lineage fields
func Explode(parent map[string]any, lineage map[string]any, path ...string) []map[string]any {
	children, ok := NestedGet(parent, path...).([]any)
	if !ok {
		return nil
	}

	records := make([]map[string]any, 0, len(children))
	for _, child := range children {
		object, ok := asObject(child)
		if !ok {
			continue
		}

		record := make(map[string]any, len(object)+len(lineage))
		for key, value := range object {
			record[key] = value
		}
		for key, value := range lineage {
			record[key] = value
		}
		records = append(records, record)
	}

	return records
}
