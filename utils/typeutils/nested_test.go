package typeutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func wrap(field string, items ...any) map[string]any {
	return map[string]any{"type": "list", field: items}
}

func TestDenest(t *testing.T) {
	tag := map[string]any{"id": "t1", "name": "vip"}
	segment := map[string]any{"id": "s1"}
	company := map[string]any{"id": "c1"}

	records := []map[string]any{
		{"id": "1", "tags": wrap("tags", tag), "segments": wrap("segments", segment), "companies": wrap("companies", company)},
		{"id": "2", "tags": wrap("tags"), "segments": nil},
		{"id": "3", "tags": []any{tag}},
	}

	got := Denest(records, "tags", "segments", "companies")

	assert.Equal(t, []map[string]any{
		{"id": "1", "tags": []any{tag}, "segments": []any{segment}, "companies": []any{company}},
		{"id": "2"},
		{"id": "3", "tags": []any{tag}},
	}, got)
}

func TestExplode(t *testing.T) {
	conversation := map[string]any{
		"id":         "42",
		"created_at": int64(1),
		"conversation_parts": map[string]any{
			"total_parts": float64(2),
			"conversation_parts": []any{
				map[string]any{"id": "p1", "body": "hi"},
				map[string]any{"id": "p2", "body": "bye"},
			},
		},
	}

	lineage := map[string]any{"conversation_id": "42", "conversation_total_parts": float64(2)}
	parts := Explode(conversation, lineage, "conversation_parts", "conversation_parts")

	assert.Equal(t, []map[string]any{
		{"id": "p1", "body": "hi", "conversation_id": "42", "conversation_total_parts": float64(2)},
		{"id": "p2", "body": "bye", "conversation_id": "42", "conversation_total_parts": float64(2)},
	}, parts)

	assert.Empty(t, Explode(map[string]any{"id": "43"}, lineage, "conversation_parts", "conversation_parts"))
}
