package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils/logger"
)

// FullRefresh emits every fetched record between two identical version
// markers; no bookmark is read or written
func (a *AbstractDriver) FullRefresh(ctx context.Context, sink Sink, stream *types.ConfiguredStream) error {
	version := time.Now().UnixMilli()
	if stream.Emit {
		if err := sink.ActivateVersion(ctx, stream, version); err != nil {
			return fmt.Errorf("failed to activate version: %s", err)
		}
	}

	emitted := 0
	for record, err := range a.driver.FetchRecords(ctx, stream, a.driver.StartDate()) {
		if err != nil {
			return fmt.Errorf("failed to fetch records: %w", err)
		}
		if err := checkPrimaryKey(stream, record); err != nil {
			return err
		}
		if !stream.Emit {
			continue
		}

		if err := a.emit(ctx, sink, stream, record, version); err != nil {
			return err
		}
		emitted++
	}

	if stream.Emit {
		if err := sink.ActivateVersion(ctx, stream, version); err != nil {
			return fmt.Errorf("failed to activate version: %s", err)
		}
	}

	logger.Infof("stream[%s] emitted %d records with version %d", stream.ID(), emitted, version)
	return nil
}
