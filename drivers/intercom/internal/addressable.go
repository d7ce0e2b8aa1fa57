package driver

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-intercom/pkg/pagination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
)

// contact fields returned as {"type": "list", "data": [...], "url": ..., "has_more": ...}
var addressableLists = []string{"tags", "notes", "companies"}

// completeLists follows the url of every selected list that was truncated by the
// API and replaces its data with the complete list
func (i *Intercom) completeLists(ctx context.Context, stream *types.ConfiguredStream, record types.Record) error {
	for _, field := range addressableLists {
		if !stream.FieldSelected(field) {
			continue
		}

		list, ok := record[field].(map[string]any)
		if !ok {
			continue
		}
		more, _ := list["has_more"].(bool)
		path, _ := list["url"].(string)
		if !more || path == "" {
			continue
		}

		reader := pagination.NewReader(i.client, types.PagePagination, pagination.Request{
			Stream:  fmt.Sprintf("%s.%s", stream.ID(), field),
			Path:    path,
			DataKey: "data",
		})

		items := []any{}
		for item, err := range reader.Records(ctx) {
			if err != nil {
				return fmt.Errorf("failed to fetch %s of contact[%s]: %w", field, utils.ToString(record["id"]), err)
			}
			items = append(items, item)
		}

		logger.Debugf("fetched %d %s for contact[%s]", len(items), field, utils.ToString(record["id"]))
		list["data"] = items
		list["has_more"] = false
	}
	return nil
}
