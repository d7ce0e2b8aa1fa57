package abstract

import (
	"fmt"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils/logger"
)

// unit is one top level stream together with the selected children it drives
type unit struct {
	stream   *types.ConfiguredStream
	children []*types.ConfiguredStream
}

// emitting lists the streams of the unit whose records reach the sink
func (u *unit) emitting() []*types.ConfiguredStream {
	var streams []*types.ConfiguredStream
	if u.stream.Emit {
		streams = append(streams, u.stream)
	}
	return append(streams, u.children...)
}

func (u *unit) childNames() []string {
	names := make([]string, 0, len(u.children))
	for _, child := range u.children {
		names = append(names, child.ID())
	}
	return names
}

// plan computes the closure of the selected streams and their parents and
// groups it into units ordered by declaration
func (a *AbstractDriver) plan(catalog *types.Catalog) ([]*unit, error) {
	if catalog == nil {
		return nil, fmt.Errorf("no catalog provided")
	}

	streams := a.driver.Streams()
	selection := catalog.Selection()
	for name := range selection {
		stream, found := types.LookupStream(streams, name)
		if !found {
			return nil, fmt.Errorf("selected stream[%s] is not a known stream", name)
		}
		if stream.Internal {
			return nil, fmt.Errorf("stream[%s] is internal and cannot be selected", name)
		}
	}

	units := []*unit{}
	byName := map[string]*unit{}
	for _, stream := range streams {
		metadata, selected := selection[stream.Name]

		if !stream.HasParent() {
			configured := stream.Wrap()
			configured.Emit = selected && !stream.Internal
			if selected {
				configured.StreamMetadata = metadata
			}

			current := &unit{stream: configured}
			byName[stream.Name] = current
			if selected {
				units = append(units, current)
			}
			continue
		}

		if !selected {
			continue
		}

		parent := byName[stream.Parent]
		child := stream.Wrap()
		child.StreamMetadata = metadata
		parent.children = append(parent.children, child)

		// the parent drives the child even when it is not selected itself
		if !parent.stream.Emit && !containsUnit(units, parent) {
			logger.Infof("stream[%s] runs without output to drive child stream[%s]", stream.Parent, stream.Name)
			units = insertOrdered(units, parent, streams)
		}
	}

	return units, nil
}

// resume skips the units that completed before the run marked in currently_syncing
func (a *AbstractDriver) resume(units []*unit) []*unit {
	syncing := a.state.Syncing()
	if syncing == "" {
		return units
	}

	// a child marker resumes its parent
	if stream, found := types.LookupStream(a.driver.Streams(), syncing); found && stream.HasParent() {
		syncing = stream.Parent
	}

	for idx, current := range units {
		if current.stream.ID() == syncing {
			for _, skipped := range units[:idx] {
				logger.Infof("skipping stream[%s], completed before the interrupted run of stream[%s]", skipped.stream.ID(), syncing)
			}
			return units[idx:]
		}
	}

	logger.Warnf("currently syncing stream[%s] is not part of this run, ignoring it", syncing)
	return units
}

func containsUnit(units []*unit, target *unit) bool {
	for _, current := range units {
		if current == target {
			return true
		}
	}
	return false
}

// insertOrdered keeps units in the declaration order of streams
func insertOrdered(units []*unit, target *unit, streams []*types.Stream) []*unit {
	position := func(name string) int {
		for idx, stream := range streams {
			if stream.Name == name {
				return idx
			}
		}
		return len(streams)
	}

	at := len(units)
	for idx, current := range units {
		if position(current.stream.ID()) > position(target.stream.ID()) {
			at = idx
			break
		}
	}

	units = append(units, nil)
	copy(units[at+1:], units[at:])
	units[at] = target
	return units
}
