package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
)

// Incremental emits every record whose cursor is at or after the bookmark
// captured at start and commits the highest cursor seen once pagination is
// exhausted. A failed run leaves the previous bookmark untouched.
func (a *AbstractDriver) Incremental(ctx context.Context, sink Sink, stream *types.ConfiguredStream) error {
	start, err := a.watermark(stream)
	if err != nil {
		return err
	}

	logger.Infof("stream[%s] starting from bookmark %s", stream.ID(), typeutils.FormatBookmark(start))

	maxSeen, emitted := start, 0
	for record, err := range a.driver.FetchRecords(ctx, stream, time.UnixMilli(start).UTC()) {
		if err != nil {
			return fmt.Errorf("failed to fetch records: %w", err)
		}

		include, cursor, err := admit(stream, record, start)
		if err != nil {
			return err
		}
		if !include {
			continue
		}

		if err := a.emit(ctx, sink, stream, record, 0); err != nil {
			return err
		}
		emitted++
		maxSeen = max(maxSeen, cursor)
	}

	committed := a.state.CommitBookmark(stream.ID(), stream.Cursor(), max(maxSeen, start))
	logger.Infof("stream[%s] emitted %d records, bookmark %s", stream.ID(), emitted, committed)
	return nil
}

// watermark returns the committed bookmark of stream or the configured start date
func (a *AbstractDriver) watermark(stream *types.ConfiguredStream) (int64, error) {
	millis, found, err := a.state.BookmarkMillis(stream.ID(), stream.Cursor())
	if err != nil {
		return 0, err
	}
	if found {
		return millis, nil
	}
	return a.driver.StartDate().UnixMilli(), nil
}

// admit verifies the record identity and decides if it passes the watermark.
// The returned cursor is the watermark itself for records without a cursor value
// so that they never move the running maximum.
func admit(stream *types.ConfiguredStream, record types.Record, watermark int64) (bool, int64, error) {
	if err := checkPrimaryKey(stream, record); err != nil {
		return false, 0, err
	}

	if stream.GetSyncMode() != types.INCREMENTAL {
		return true, watermark, nil
	}

	cursor, found, err := cursorMillis(stream, record)
	if err != nil {
		return false, 0, err
	}
	if !found {
		return true, watermark, nil
	}
	return cursor >= watermark, cursor, nil
}

func cursorMillis(stream *types.ConfiguredStream, record types.Record) (int64, bool, error) {
	value, found := record[stream.Cursor()]
	if !found || value == nil {
		return 0, false, nil
	}

	millis, err := typeutils.NormalizeTimestamp(value)
	if err != nil {
		return 0, false, fmt.Errorf("stream[%s]: invalid cursor value[%v]: %s", stream.ID(), value, err)
	}
	return millis, true, nil
}

func checkPrimaryKey(stream *types.ConfiguredStream, record types.Record) error {
	for _, key := range stream.GetStream().PrimaryKey.Array() {
		value, found := record[key]
		if !found || value == nil || value == "" {
			return fmt.Errorf("%w: stream[%s] field[%s]", constants.ErrMissingPrimaryKey, stream.ID(), key)
		}
	}
	return nil
}

func (a *AbstractDriver) emit(ctx context.Context, sink Sink, stream *types.ConfiguredStream, record types.Record, version int64) error {
	if err := sink.Emit(ctx, stream, stream.Filter(record), version, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to emit record of stream[%s]: %s", stream.ID(), err)
	}
	return nil
}
