package destination

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"golang.org/x/sync/errgroup"
)

const DestError = "destination error"

type (
	NewFunc func() Writer

	// WriterPool buffers records per stream and hands them to a dedicated writer;
	// buffers are flushed before every state checkpoint
	WriterPool struct {
		batchSize   int
		recordCount atomic.Int64
		config      any     // respective writer config
		init        NewFunc // To initialize exclusive stream writers
		root        Writer  // checked instance, receives the state
		tmu         sync.Mutex
		threads     map[string]*thread
		order       []string
	}

	thread struct {
		stream *types.ConfiguredStream
		writer Writer
		buffer []types.RawRecord
	}
)

var RegisteredWriters = map[types.DestinationType]NewFunc{}

// NewWriterPool checks the destination and returns a pool ready to receive a sync
func NewWriterPool(ctx context.Context, config *types.WriterConfig) (*WriterPool, error) {
	newfunc, found := RegisteredWriters[config.Type]
	if !found {
		return nil, fmt.Errorf("invalid destination type has been passed [%s]", config.Type)
	}

	adapter := newfunc()
	if err := utils.Unmarshal(config.WriterConfig, adapter.GetConfigRef()); err != nil {
		return nil, err
	}

	if err := adapter.Check(ctx); err != nil {
		return nil, fmt.Errorf("failed to test destination: %s", err)
	}

	return &WriterPool{
		batchSize: utils.Ternary(config.BatchSize <= 0, constants.DefaultBatchSize, config.BatchSize).(int),
		config:    config.WriterConfig,
		init:      newfunc,
		root:      adapter,
		threads:   make(map[string]*thread),
	}, nil
}

// AnnounceSchema sets up the writer of stream; it must precede every record of the stream
func (w *WriterPool) AnnounceSchema(ctx context.Context, stream *types.ConfiguredStream) error {
	w.tmu.Lock()
	defer w.tmu.Unlock()

	if _, found := w.threads[stream.ID()]; found {
		return nil
	}

	writer := w.init()
	if err := utils.Unmarshal(w.config, writer.GetConfigRef()); err != nil {
		return err
	}
	if err := writer.Setup(ctx, stream); err != nil {
		return fmt.Errorf("%s: failed to setup writer for stream[%s]: %s", DestError, stream.ID(), err)
	}

	w.threads[stream.ID()] = &thread{stream: stream, writer: writer}
	w.order = append(w.order, stream.ID())
	return nil
}

func (w *WriterPool) Emit(ctx context.Context, stream *types.ConfiguredStream, record types.Record, version int64, extractedAt time.Time) error {
	t, err := w.thread(stream)
	if err != nil {
		return err
	}

	t.buffer = append(t.buffer, types.CreateRawRecord(stream.ID(), record, version, extractedAt))
	if len(t.buffer) >= w.batchSize {
		return w.flush(ctx, t)
	}
	return nil
}

func (w *WriterPool) ActivateVersion(ctx context.Context, stream *types.ConfiguredStream, version int64) error {
	t, err := w.thread(stream)
	if err != nil {
		return err
	}

	// records of the previous version must land before the marker
	if err := w.flush(ctx, t); err != nil {
		return err
	}
	if err := t.writer.ActivateVersion(ctx, version); err != nil {
		return fmt.Errorf("%s: failed to activate version of stream[%s]: %s", DestError, stream.ID(), err)
	}
	return nil
}

// EmitState makes every buffered record durable, then persists state
func (w *WriterPool) EmitState(ctx context.Context, state *types.State) error {
	w.tmu.Lock()
	threads := make([]*thread, 0, len(w.order))
	for _, id := range w.order {
		threads = append(threads, w.threads[id])
	}
	w.tmu.Unlock()

	for _, t := range threads {
		if err := w.flush(ctx, t); err != nil {
			return err
		}
		if err := t.writer.Flush(ctx); err != nil {
			return fmt.Errorf("%s: failed to flush stream[%s]: %s", DestError, t.stream.ID(), err)
		}
	}

	if stateWriter, ok := w.root.(StateWriter); ok {
		if err := stateWriter.WriteState(ctx, state); err != nil {
			return fmt.Errorf("%s: failed to write state: %s", DestError, err)
		}
	}

	logger.LogState(state)
	return nil
}

// Close flushes and closes every stream writer concurrently
func (w *WriterPool) Close(ctx context.Context) error {
	w.tmu.Lock()
	defer w.tmu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, id := range w.order {
		t := w.threads[id]
		group.Go(func() error {
			if err := w.flush(groupCtx, t); err != nil {
				return err
			}
			if err := t.writer.Close(groupCtx); err != nil {
				return fmt.Errorf("%s: failed to close writer of stream[%s]: %s", DestError, t.stream.ID(), err)
			}
			return nil
		})
	}

	err := group.Wait()
	w.threads = make(map[string]*thread)
	w.order = nil
	return err
}

// Returns total records handed to writers so far
func (w *WriterPool) SyncedRecords() int64 {
	return w.recordCount.Load()
}

func (w *WriterPool) thread(stream *types.ConfiguredStream) (*thread, error) {
	w.tmu.Lock()
	defer w.tmu.Unlock()

	t, found := w.threads[stream.ID()]
	if !found {
		return nil, fmt.Errorf("%s: schema of stream[%s] was not announced", DestError, stream.ID())
	}
	return t, nil
}

func (w *WriterPool) flush(ctx context.Context, t *thread) error {
	if len(t.buffer) == 0 {
		return nil
	}

	if err := t.writer.Write(ctx, t.buffer); err != nil {
		return fmt.Errorf("%s: failed to write records of stream[%s]: %s", DestError, t.stream.ID(), err)
	}

	w.recordCount.Add(int64(len(t.buffer)))
	logger.Debugf("flushed %d records of stream[%s]", len(t.buffer), t.stream.ID())
	t.buffer = nil
	return nil
}
