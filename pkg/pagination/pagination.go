package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"net/url"
	"sync/atomic"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils/logger"
)

// Requester is the transport used to fetch pages. An absolute url may be passed as path.
type Requester interface {
	Get(ctx context.Context, path string, params url.Values) (map[string]any, error)
	Post(ctx context.Context, path string, body map[string]any) (map[string]any, error)
}

// Request is one stream invocation
type Request struct {
	Stream  string
	Path    string
	Params  url.Values
	DataKey string
	// Body is the search query posted with every page, only pagination.starting_after changes
	Body map[string]any
	// PageSize is sent as per_page for cursor pagination when set
	PageSize int
}

type Reader struct {
	client     Requester
	request    Request
	pagination types.PaginationType
	consumed   atomic.Bool
}

func NewReader(client Requester, pagination types.PaginationType, request Request) *Reader {
	return &Reader{
		client:     client,
		request:    request,
		pagination: pagination,
	}
}

// Records returns the lazy record sequence of the request; no request is sent
// before iteration starts and the sequence can be consumed only once
func (r *Reader) Records(ctx context.Context) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		if r.consumed.Swap(true) {
			yield(nil, constants.ErrIteratorConsumed)
			return
		}

		var err error
		switch r.pagination {
		case types.NoPagination, "":
			err = r.single(ctx, yield)
		case types.CursorPagination:
			err = r.cursor(ctx, yield)
		case types.PagePagination:
			err = r.page(ctx, yield)
		case types.ScrollPagination:
			err = r.scroll(ctx, yield)
		case types.SearchPagination:
			err = r.search(ctx, yield)
		default:
			err = fmt.Errorf("unsupported pagination[%s] for stream[%s]", r.pagination, r.request.Stream)
		}

		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

// errStopped marks a consumer that stopped ranging early
var errStopped = errors.New("iteration stopped by consumer")

func (r *Reader) params() url.Values {
	params := url.Values{}
	for key, values := range r.request.Params {
		params[key] = append([]string(nil), values...)
	}
	return params
}

// emit yields every record of the page; returns the number of records found
func (r *Reader) emit(page map[string]any, yield func(types.Record, error) bool) (int, error) {
	if r.request.DataKey == "" {
		if len(page) == 0 {
			return 0, nil
		}
		if !yield(page, nil) {
			return 1, errStopped
		}
		return 1, nil
	}

	raw, found := page[r.request.DataKey]
	if !found || raw == nil {
		logger.Warnf("response is empty for stream[%s]", r.request.Stream)
		return 0, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return 0, fmt.Errorf("stream[%s]: expected an array at key[%s], found %T", r.request.Stream, r.request.DataKey, raw)
	}

	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("stream[%s]: record is not an object: %T", r.request.Stream, item)
		}
		if !yield(record, nil) {
			return len(items), errStopped
		}
	}

	return len(items), nil
}

func (r *Reader) single(ctx context.Context, yield func(types.Record, error) bool) error {
	page, err := r.client.Get(ctx, r.request.Path, r.params())
	if err != nil {
		return err
	}

	_, err = r.emit(page, yield)
	return err
}

// cursor follows pages.next.starting_after until it is absent or a page is empty
func (r *Reader) cursor(ctx context.Context, yield func(types.Record, error) bool) error {
	params := r.params()
	if r.request.PageSize > 0 {
		params.Set("per_page", fmt.Sprint(r.request.PageSize))
	}

	for {
		page, err := r.client.Get(ctx, r.request.Path, params)
		if err != nil {
			return err
		}

		count, err := r.emit(page, yield)
		if err != nil {
			return err
		}

		token := startingAfter(page)
		if token == "" || count == 0 {
			return nil
		}
		params.Set("starting_after", token)
	}
}

// page follows the absolute pages.next url; params only apply to the first request
func (r *Reader) page(ctx context.Context, yield func(types.Record, error) bool) error {
	path, params := r.request.Path, r.params()

	for {
		page, err := r.client.Get(ctx, path, params)
		if err != nil {
			return err
		}

		count, err := r.emit(page, yield)
		if err != nil {
			return err
		}

		next := nextURL(page)
		if next == "" || count == 0 {
			return nil
		}
		path, params = next, nil
	}
}

// scroll iterates a short lived server side snapshot; an empty page ends the
// iteration even when a scroll_param is still returned
func (r *Reader) scroll(ctx context.Context, yield func(types.Record, error) bool) error {
	params := r.params()

	for {
		page, err := r.client.Get(ctx, r.request.Path, params)
		if err != nil {
			return err
		}

		count, err := r.emit(page, yield)
		if err != nil {
			return err
		}

		token, _ := page["scroll_param"].(string)
		if token == "" || count == 0 {
			return nil
		}

		params = r.params()
		params.Set("scroll_param", token)
	}
}

// search posts the same query for every page and only advances starting_after
func (r *Reader) search(ctx context.Context, yield func(types.Record, error) bool) error {
	body := maps.Clone(r.request.Body)
	if body == nil {
		body = map[string]any{}
	}

	pagination := map[string]any{}
	if existing, ok := body["pagination"].(map[string]any); ok {
		pagination = maps.Clone(existing)
	}
	if r.request.PageSize > 0 {
		pagination["per_page"] = r.request.PageSize
	}
	body["pagination"] = pagination

	for {
		page, err := r.client.Post(ctx, r.request.Path, body)
		if err != nil {
			return err
		}

		count, err := r.emit(page, yield)
		if err != nil {
			return err
		}

		token := startingAfter(page)
		if token == "" || count == 0 {
			return nil
		}
		pagination["starting_after"] = token
	}
}

func startingAfter(page map[string]any) string {
	pages, _ := page["pages"].(map[string]any)
	next, _ := pages["next"].(map[string]any)
	token, _ := next["starting_after"].(string)
	return token
}

func nextURL(page map[string]any) string {
	pages, _ := page["pages"].(map[string]any)
	next, _ := pages["next"].(string)
	return next
}
