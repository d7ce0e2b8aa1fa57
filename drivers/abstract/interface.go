package abstract

import (
	"context"
	"iter"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
)

type Config interface {
	Validate() error
}

type DriverInterface interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// specific to check & setup
	Setup(ctx context.Context) error
	Check(ctx context.Context) error
	// immutable descriptor table in declaration order
	Streams() []*types.Stream
	// sync settings
	StartDate() time.Time
	CheckpointInterval() int
	ContinueOnError() bool
	// FetchRecords returns the normalized records of a top level stream updated at or after since
	FetchRecords(ctx context.Context, stream *types.ConfiguredStream, since time.Time) iter.Seq2[types.Record, error]
	// FetchChildRecords returns the normalized records of child driven by one parent record
	FetchChildRecords(ctx context.Context, child *types.ConfiguredStream, parent types.Record) iter.Seq2[types.Record, error]
}

// Sink receives everything a sync produces. State passed to EmitState must be
// safe to resume from if the process dies right after the call.
type Sink interface {
	AnnounceSchema(ctx context.Context, stream *types.ConfiguredStream) error
	Emit(ctx context.Context, stream *types.ConfiguredStream, record types.Record, version int64, extractedAt time.Time) error
	ActivateVersion(ctx context.Context, stream *types.ConfiguredStream, version int64) error
	EmitState(ctx context.Context, state *types.State) error
}
