package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/hashicorp/go-multierror"
)

type AbstractDriver struct { //nolint:gosec,revive
	driver DriverInterface
	state  *types.State
}

func NewAbstractDriver(_ context.Context, driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{
		driver: driver,
		state:  types.NewState(),
	}
}

// SetupState installs the loaded state, upgrading legacy bookmarks in place
func (a *AbstractDriver) SetupState(state *types.State) {
	if state == nil {
		state = types.NewState()
	}

	streams := a.driver.Streams()
	state.Translate(func(stream string) (string, bool) {
		descriptor, found := types.LookupStream(streams, stream)
		if !found || descriptor.CursorField == "" {
			return "", false
		}
		return descriptor.CursorField, true
	})
	a.state = state
}

func (a *AbstractDriver) State() *types.State {
	return a.state
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() any {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

func (a *AbstractDriver) Setup(ctx context.Context) error {
	return a.driver.Setup(ctx)
}

func (a *AbstractDriver) Check(ctx context.Context) error {
	return a.driver.Check(ctx)
}

// Discover validates the descriptor table and returns the replicable streams
func (a *AbstractDriver) Discover(_ context.Context) ([]*types.Stream, error) {
	streams := a.driver.Streams()
	if err := validateDescriptors(streams); err != nil {
		return nil, err
	}

	var replicable []*types.Stream
	for _, stream := range streams {
		if !stream.Internal {
			replicable = append(replicable, stream)
		}
	}
	return replicable, nil
}

// ClearState drops the bookmarks of the given streams, all of them when none are given
func (a *AbstractDriver) ClearState(streams ...string) (*types.State, error) {
	for _, stream := range streams {
		if _, found := types.LookupStream(a.driver.Streams(), stream); !found {
			return nil, fmt.Errorf("unknown stream[%s]", stream)
		}
	}

	a.state.ResetStreams(streams...)
	return a.state, nil
}

// Read runs every selected stream sequentially in declaration order. A stream
// failure aborts the run unless the driver continues on error, in which case all
// failures are returned together once the remaining streams finished, and
// currently_syncing is left on the first failed stream so the next run starts there.
func (a *AbstractDriver) Read(ctx context.Context, sink Sink, catalog *types.Catalog) error {
	if err := validateDescriptors(a.driver.Streams()); err != nil {
		return err
	}

	units, err := a.plan(catalog)
	if err != nil {
		return err
	}

	units = a.resume(units)

	var failures error
	firstFailed := ""
	for _, current := range units {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.runUnit(ctx, sink, current); err != nil {
			logger.Errorf("stream[%s] failed: %s", current.stream.ID(), err)
			// checkpoint whatever was committed before the failure
			if stateErr := sink.EmitState(ctx, a.state); stateErr != nil {
				return multierror.Append(err, stateErr)
			}

			if !a.driver.ContinueOnError() {
				return fmt.Errorf("stream[%s] failed: %w", current.stream.ID(), err)
			}

			failures = multierror.Append(failures, fmt.Errorf("stream[%s]: %w", current.stream.ID(), err))
			if firstFailed == "" {
				firstFailed = current.stream.ID()
			}
		}
	}

	if failures == nil {
		a.state.ClearSyncing()
	} else {
		a.state.MarkSyncing(firstFailed)
	}
	if err := sink.EmitState(ctx, a.state); err != nil {
		return multierror.Append(failures, err)
	}

	return failures
}

func (a *AbstractDriver) runUnit(ctx context.Context, sink Sink, run *unit) error {
	for _, stream := range run.emitting() {
		if err := sink.AnnounceSchema(ctx, stream); err != nil {
			return fmt.Errorf("failed to announce schema: %s", err)
		}
	}

	a.state.MarkSyncing(run.stream.ID())
	if err := sink.EmitState(ctx, a.state); err != nil {
		return fmt.Errorf("failed to persist state: %s", err)
	}

	logger.Infof("starting sync for stream[%s]%s", run.stream.ID(),
		utils.Ternary(len(run.children) > 0, fmt.Sprintf(" with children %v", run.childNames()), ""))

	var err error
	switch {
	case len(run.children) > 0:
		err = a.ParentChild(ctx, sink, run.stream, run.children...)
	case run.stream.GetSyncMode() == types.INCREMENTAL:
		err = a.Incremental(ctx, sink, run.stream)
	default:
		err = a.FullRefresh(ctx, sink, run.stream)
	}
	if err != nil {
		return err
	}

	a.state.ClearSyncing()
	if err := sink.EmitState(ctx, a.state); err != nil {
		return fmt.Errorf("failed to persist state: %s", err)
	}

	logger.Infof("finished sync for stream[%s]", run.stream.ID())
	return nil
}

func validateDescriptors(streams []*types.Stream) error {
	declared := types.NewSet[string]()
	for _, stream := range streams {
		if err := stream.Validate(); err != nil {
			return err
		}
		if declared.Exists(stream.Name) {
			return fmt.Errorf("stream[%s] declared twice", stream.Name)
		}

		if stream.HasParent() {
			parent, found := types.LookupStream(streams, stream.Parent)
			if !found || !declared.Exists(parent.Name) {
				return fmt.Errorf("stream[%s] must be declared after its parent[%s]", stream.Name, stream.Parent)
			}
			if parent.HasParent() {
				return fmt.Errorf("stream[%s]: nested child streams are not supported", stream.Name)
			}
		}

		declared.Insert(stream.Name)
	}
	return nil
}
