package driver

import (
	"embed"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/goccy/go-json"
)

const (
	adminList         = "admin_list"
	admins            = "admins"
	companies         = "companies"
	companyAttributes = "company_attributes"
	companySegments   = "company_segments"
	conversations     = "conversations"
	conversationParts = "conversation_parts"
	contactAttributes = "contact_attributes"
	contacts          = "contacts"
	segments          = "segments"
	tags              = "tags"
	teams             = "teams"

	updatedAt = "updated_at"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// descriptors lists every stream in declaration order, parents before their children
var descriptors = []*types.Stream{
	{
		Name:       adminList,
		PrimaryKey: types.NewSet("id"),
		SyncMode:   types.FULLTABLE,
		Internal:   true,
		Request:    types.Request{Method: http.MethodGet, Path: "admins", DataKey: "admins", Pagination: types.NoPagination},
	},
	{
		Name:       admins,
		PrimaryKey: types.NewSet("id"),
		SyncMode:   types.FULLTABLE,
		Parent:     adminList,
		Request:    types.Request{Method: http.MethodGet, Path: "admins/{id}", Pagination: types.NoPagination},
	},
	{
		Name:       companies,
		PrimaryKey: types.NewSet("id"),
		SyncMode:   types.FULLTABLE,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "companies/scroll",
			DataKey:    "data",
			Pagination: types.ScrollPagination,
			ListFields: []string{"segments", "tags"},
		},
	},
	{
		Name:       companyAttributes,
		PrimaryKey: types.NewSet(constants.RecordHashField),
		SyncMode:   types.FULLTABLE,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "data_attributes",
			Params:     map[string]string{"model": "company"},
			DataKey:    "data",
			Pagination: types.PagePagination,
		},
	},
	{
		Name:        companySegments,
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: updatedAt,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "segments",
			Params:     map[string]string{"type": "company", "include_count": "true"},
			DataKey:    "segments",
			Pagination: types.PagePagination,
		},
	},
	{
		Name:        conversations,
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: updatedAt,
		Request: types.Request{
			Method:     http.MethodPost,
			Path:       "conversations/search",
			DataKey:    "conversations",
			Pagination: types.SearchPagination,
			ListFields: []string{"tags", "contacts"},
		},
	},
	{
		Name:        conversationParts,
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: updatedAt,
		Parent:      conversations,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "conversations/{id}",
			Params:     map[string]string{"display_as": "plaintext"},
			Pagination: types.NoPagination,
		},
	},
	{
		Name:       contactAttributes,
		PrimaryKey: types.NewSet(constants.RecordHashField),
		SyncMode:   types.FULLTABLE,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "data_attributes",
			Params:     map[string]string{"model": "contact"},
			DataKey:    "data",
			Pagination: types.PagePagination,
		},
	},
	{
		Name:        contacts,
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: updatedAt,
		Request: types.Request{
			Method:     http.MethodPost,
			Path:       "contacts/search",
			DataKey:    "data",
			Pagination: types.SearchPagination,
		},
	},
	{
		Name:        segments,
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: updatedAt,
		Request: types.Request{
			Method:     http.MethodGet,
			Path:       "segments",
			Params:     map[string]string{"include_count": "true"},
			DataKey:    "segments",
			Pagination: types.PagePagination,
		},
	},
	{
		Name:       tags,
		PrimaryKey: types.NewSet("id"),
		SyncMode:   types.FULLTABLE,
		Request:    types.Request{Method: http.MethodGet, Path: "tags", DataKey: "data", Pagination: types.PagePagination},
	},
	{
		Name:       teams,
		PrimaryKey: types.NewSet("id"),
		SyncMode:   types.FULLTABLE,
		Request:    types.Request{Method: http.MethodGet, Path: "teams", DataKey: "teams", Pagination: types.PagePagination},
	},
}

// loadStreams attaches the embedded schemas to the descriptor table on first use
var loadStreams = sync.OnceValues(func() ([]*types.Stream, error) {
	for _, stream := range descriptors {
		content, err := schemaFiles.ReadFile(fmt.Sprintf("schemas/%s.json", stream.Name))
		if err != nil {
			return nil, fmt.Errorf("missing schema for stream[%s]: %s", stream.Name, err)
		}

		var schema map[string]any
		if err := json.Unmarshal(content, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for stream[%s]: %s", stream.Name, err)
		}
		stream.Schema = schema
	}
	return descriptors, nil
})

// searchQuery builds the fixed filter of a search stream: cursor greater than or
// equal to since, ascending on the cursor. The API filters on epoch seconds.
func searchQuery(cursor string, since time.Time) map[string]any {
	seconds := since.Unix()
	return map[string]any{
		"query": map[string]any{
			"operator": "OR",
			"value": []any{
				map[string]any{"field": cursor, "operator": ">", "value": seconds},
				map[string]any{"field": cursor, "operator": "=", "value": seconds},
			},
		},
		"sort": map[string]any{
			"field": cursor,
			"order": "ascending",
		},
	}
}
