package utils

// FilterDataBySelectedColumns keeps only the selected columns of data.
// Returns the original data when no selection is provided.
func FilterDataBySelectedColumns(data map[string]any, selected []string) map[string]any {
	if len(selected) == 0 {
		return data
	}

	filtered := make(map[string]any, len(selected))
	for _, column := range selected {
		if value, exists := data[column]; exists {
			filtered[column] = value
		}
	}
	return filtered
}
