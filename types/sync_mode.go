package types

type SyncMode string

const (
	FULLTABLE   SyncMode = "FULL_TABLE"
	INCREMENTAL SyncMode = "INCREMENTAL"
)

type PaginationType string

const (
	// NoPagination issues a single request
	NoPagination PaginationType = "none"
	// CursorPagination follows pages.next.starting_after
	CursorPagination PaginationType = "cursor"
	// PagePagination follows the absolute pages.next url
	PagePagination PaginationType = "page"
	// ScrollPagination follows scroll_param until a page comes back empty
	ScrollPagination PaginationType = "scroll"
	// SearchPagination posts a fixed query and pages with starting_after
	SearchPagination PaginationType = "search"
)
