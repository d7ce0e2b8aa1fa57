package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
)

// ParentChild iterates the parent stream once and fetches the selected children
// of every parent record right after it. The parent is fetched from the lowest
// watermark of the pair so that no unsynced window of either stream is skipped.
//
// After the children of a parent record are done, the child bookmarks move to the
// parent cursor and the parent id and cursor are stored as the last_processed
// marker; state is persisted every CheckpointInterval parents. Parents must arrive
// in ascending cursor order. On resume, parents with a cursor below the marker
// cursor are skipped, as is the marker parent itself. Other parents sharing the
// marker cursor are synced again.
func (a *AbstractDriver) ParentChild(ctx context.Context, sink Sink, parent *types.ConfiguredStream, children ...*types.ConfiguredStream) error {
	incremental := parent.GetSyncMode() == types.INCREMENTAL

	var parentStart int64
	starts := make(map[string]int64, len(children))
	runStart, bounded := int64(0), false

	if incremental && parent.Emit {
		watermark, err := a.watermark(parent)
		if err != nil {
			return err
		}
		parentStart, runStart, bounded = watermark, watermark, true
	}

	for _, child := range children {
		if child.GetSyncMode() != types.INCREMENTAL {
			continue
		}
		watermark, err := a.watermark(child)
		if err != nil {
			return err
		}
		starts[child.ID()] = watermark
		if !bounded || watermark < runStart {
			runStart, bounded = watermark, true
		}
	}
	if !bounded {
		runStart = a.driver.StartDate().UnixMilli()
	}

	// only incremental parents resume from the marker, a full table pass is always complete
	var marker types.Marker
	resuming := false
	if incremental {
		marker, resuming = a.state.LastProcessed(parent.ID())
		if resuming {
			logger.Infof("stream[%s] resuming after parent id %s at %s", parent.ID(), marker.ID, typeutils.FormatBookmark(marker.Cursor))
		}
	}

	versions, err := a.activateVersions(ctx, sink, parent, children)
	if err != nil {
		return err
	}

	logger.Infof("stream[%s] fetching parents from %s", parent.ID(), typeutils.FormatBookmark(runStart))

	interval := max(1, a.driver.CheckpointInterval())
	parentMax := parentStart
	processed, skipped := 0, 0
	idField := parent.GetStream().PrimaryKey.Array()[0]

	for record, err := range a.driver.FetchRecords(ctx, parent, time.UnixMilli(runStart).UTC()) {
		if err != nil {
			return fmt.Errorf("failed to fetch parent records: %w", err)
		}
		if err := checkPrimaryKey(parent, record); err != nil {
			return err
		}

		id := utils.ToString(record[idField])
		var cursor int64
		hasCursor := false
		if incremental {
			if cursor, hasCursor, err = cursorMillis(parent, record); err != nil {
				return err
			}
		}

		if resuming && hasCursor && marker.Done(id, cursor) {
			skipped++
			continue
		}

		if parent.Emit && (!hasCursor || cursor >= parentStart) {
			if err := a.emit(ctx, sink, parent, record, versions[parent.ID()]); err != nil {
				return err
			}
			if hasCursor {
				parentMax = max(parentMax, cursor)
			}
		}

		for _, child := range children {
			if err := a.syncChild(ctx, sink, child, record, starts[child.ID()], versions[child.ID()]); err != nil {
				return fmt.Errorf("child stream[%s] of parent id %s: %w", child.ID(), id, err)
			}
			if child.GetSyncMode() == types.INCREMENTAL && hasCursor {
				a.state.CommitBookmark(child.ID(), child.Cursor(), cursor)
			}
		}

		if hasCursor {
			a.state.SetLastProcessed(parent.ID(), types.Marker{ID: id, Cursor: cursor})
		}

		processed++
		if processed%interval == 0 {
			if err := sink.EmitState(ctx, a.state); err != nil {
				return fmt.Errorf("failed to checkpoint state: %s", err)
			}
		}
	}

	if incremental && parent.Emit {
		a.state.CommitBookmark(parent.ID(), parent.Cursor(), max(parentMax, parentStart))
	}
	for _, child := range children {
		if child.GetSyncMode() == types.INCREMENTAL {
			a.state.CommitBookmark(child.ID(), child.Cursor(), starts[child.ID()])
		}
	}
	a.state.ClearLastProcessed(parent.ID())

	for _, stream := range append([]*types.ConfiguredStream{parent}, children...) {
		version, found := versions[stream.ID()]
		if !found {
			continue
		}
		if err := sink.ActivateVersion(ctx, stream, version); err != nil {
			return fmt.Errorf("failed to activate version: %s", err)
		}
	}

	logger.Infof("stream[%s] processed %d parents, skipped %d already synced", parent.ID(), processed, skipped)
	return nil
}

func (a *AbstractDriver) syncChild(ctx context.Context, sink Sink, child *types.ConfiguredStream, parent types.Record, watermark, version int64) error {
	for record, err := range a.driver.FetchChildRecords(ctx, child, parent) {
		if err != nil {
			return err
		}

		include, _, err := admit(child, record, watermark)
		if err != nil {
			return err
		}
		if !include {
			continue
		}

		if err := a.emit(ctx, sink, child, record, version); err != nil {
			return err
		}
	}
	return nil
}

// activateVersions opens a version for every emitting full table stream of the pair
func (a *AbstractDriver) activateVersions(ctx context.Context, sink Sink, parent *types.ConfiguredStream, children []*types.ConfiguredStream) (map[string]int64, error) {
	version := time.Now().UnixMilli()
	versions := make(map[string]int64)

	streams := []*types.ConfiguredStream{}
	if parent.Emit {
		streams = append(streams, parent)
	}
	streams = append(streams, children...)

	for _, stream := range streams {
		if stream.GetSyncMode() != types.FULLTABLE {
			continue
		}
		if err := sink.ActivateVersion(ctx, stream, version); err != nil {
			return nil, fmt.Errorf("failed to activate version: %s", err)
		}
		versions[stream.ID()] = version
	}
	return versions, nil
}
