package driver

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/drivers/abstract"
	"github.com/datazip-inc/olake-intercom/pkg/pagination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
)

// Intercom driver implementation
type Intercom struct {
	config        *Config
	client        *Client
	datetimePaths map[string][][]string
}

func (i *Intercom) GetConfigRef() abstract.Config {
	i.config = &Config{}
	return i.config
}

func (i *Intercom) Spec() any {
	return Config{}
}

func (i *Intercom) Type() string {
	return constants.SourceType
}

func (i *Intercom) Setup(_ context.Context) error {
	if err := i.config.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %s", err)
	}

	streams, err := loadStreams()
	if err != nil {
		return err
	}

	i.datetimePaths = make(map[string][][]string, len(streams))
	for _, stream := range streams {
		i.datetimePaths[stream.Name] = typeutils.DatetimePaths(stream.Schema)
	}

	i.client = NewClient(i.config)
	return nil
}

// Check verifies the access token against an endpoint returning a single page
func (i *Intercom) Check(ctx context.Context) error {
	response, err := i.client.Get(ctx, "tags", nil)
	if err != nil {
		return fmt.Errorf("failed to verify access token: %w", err)
	}
	if _, found := response["type"]; !found {
		return fmt.Errorf("failed to verify access token: unexpected response from %s", i.config.BaseURL)
	}

	logger.Info("Successfully connected to Intercom")
	return nil
}

func (i *Intercom) Streams() []*types.Stream {
	streams, err := loadStreams()
	if err != nil {
		logger.Errorf("failed to load streams: %s", err)
		return nil
	}
	return streams
}

func (i *Intercom) StartDate() time.Time {
	return i.config.StartDate.UTC()
}

func (i *Intercom) CheckpointInterval() int {
	return i.config.CheckpointInterval
}

func (i *Intercom) ContinueOnError() bool {
	return i.config.ContinueOnError
}

func (i *Intercom) FetchRecords(ctx context.Context, stream *types.ConfiguredStream, since time.Time) iter.Seq2[types.Record, error] {
	descriptor := stream.GetStream()
	request := pagination.Request{
		Stream:   descriptor.Name,
		Path:     descriptor.Request.Path,
		Params:   queryParams(descriptor.Request.Params),
		DataKey:  descriptor.Request.DataKey,
		PageSize: i.config.PageSize,
	}
	if descriptor.Request.Pagination == types.SearchPagination {
		request.Body = searchQuery(descriptor.CursorField, since)
	}

	return i.transformed(ctx, stream, pagination.NewReader(i.client, descriptor.Request.Pagination, request).Records(ctx))
}

func (i *Intercom) FetchChildRecords(ctx context.Context, child *types.ConfiguredStream, parent types.Record) iter.Seq2[types.Record, error] {
	descriptor := child.GetStream()
	id := utils.ToString(parent["id"])

	reader := pagination.NewReader(i.client, types.NoPagination, pagination.Request{
		Stream:  descriptor.Name,
		Path:    descriptor.ChildPath(url.PathEscape(id)),
		Params:  queryParams(descriptor.Request.Params),
		DataKey: descriptor.Request.DataKey,
	})

	return func(yield func(types.Record, error) bool) {
		if id == "" {
			yield(nil, fmt.Errorf("stream[%s]: parent record has no id", descriptor.Name))
			return
		}

		for payload, err := range reader.Records(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}

			for _, record := range childRecords(descriptor, payload) {
				if err := i.transform(ctx, child, record); err != nil {
					yield(nil, err)
					return
				}
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

func (i *Intercom) Close() {
	logger.Info("Closing Intercom connection")
}

// transformed normalizes every record of records before handing it over
func (i *Intercom) transformed(ctx context.Context, stream *types.ConfiguredStream, records iter.Seq2[types.Record, error]) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		for record, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			if err := i.transform(ctx, stream, record); err != nil {
				yield(nil, err)
				return
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

func queryParams(params map[string]string) url.Values {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	return values
}
