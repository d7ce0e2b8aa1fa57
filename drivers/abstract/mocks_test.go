package abstract

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/goccy/go-json"
)

var startDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Mock implementations for testing

type MockDriver struct {
	streams                []*types.Stream
	checkpointInterval     int
	continueOnError        bool
	fetchRecordsFunc       func(ctx context.Context, stream *types.ConfiguredStream, since time.Time) iter.Seq2[types.Record, error]
	fetchChildRecordsFunc  func(ctx context.Context, child *types.ConfiguredStream, parent types.Record) iter.Seq2[types.Record, error]
	setupFunc              func(ctx context.Context) error
	checkFunc              func(ctx context.Context) error
	fetchedSince           map[string]time.Time
	childFetchesByParentID []string
}

func (m *MockDriver) GetConfigRef() Config {
	return nil
}

func (m *MockDriver) Spec() any {
	return map[string]any{}
}

func (m *MockDriver) Type() string {
	return "mock"
}

func (m *MockDriver) Setup(ctx context.Context) error {
	if m.setupFunc != nil {
		return m.setupFunc(ctx)
	}
	return nil
}

func (m *MockDriver) Check(ctx context.Context) error {
	if m.checkFunc != nil {
		return m.checkFunc(ctx)
	}
	return nil
}

func (m *MockDriver) Streams() []*types.Stream {
	return m.streams
}

func (m *MockDriver) StartDate() time.Time {
	return startDate
}

func (m *MockDriver) CheckpointInterval() int {
	return m.checkpointInterval
}

func (m *MockDriver) ContinueOnError() bool {
	return m.continueOnError
}

func (m *MockDriver) FetchRecords(ctx context.Context, stream *types.ConfiguredStream, since time.Time) iter.Seq2[types.Record, error] {
	if m.fetchedSince == nil {
		m.fetchedSince = map[string]time.Time{}
	}
	m.fetchedSince[stream.ID()] = since

	if m.fetchRecordsFunc != nil {
		return m.fetchRecordsFunc(ctx, stream, since)
	}
	return sequence()
}

func (m *MockDriver) FetchChildRecords(ctx context.Context, child *types.ConfiguredStream, parent types.Record) iter.Seq2[types.Record, error] {
	m.childFetchesByParentID = append(m.childFetchesByParentID, child.ID()+":"+utils.ToString(parent["id"]))

	if m.fetchChildRecordsFunc != nil {
		return m.fetchChildRecordsFunc(ctx, child, parent)
	}
	return sequence()
}

// sequence yields records and optionally fails after them
func sequence(records ...types.Record) iter.Seq2[types.Record, error] {
	return failingSequence(nil, records...)
}

func failingSequence(err error, records ...types.Record) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		for _, record := range records {
			if !yield(record, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

type sinkEvent struct {
	Kind    string
	Stream  string
	Record  types.Record
	Version int64
	State   string
}

// recordingSink keeps every call in order; states are snapshotted as JSON
type recordingSink struct {
	events   []sinkEvent
	failEmit error
}

func (s *recordingSink) AnnounceSchema(_ context.Context, stream *types.ConfiguredStream) error {
	s.events = append(s.events, sinkEvent{Kind: "SCHEMA", Stream: stream.ID()})
	return nil
}

func (s *recordingSink) Emit(_ context.Context, stream *types.ConfiguredStream, record types.Record, version int64, _ time.Time) error {
	if s.failEmit != nil {
		return s.failEmit
	}
	s.events = append(s.events, sinkEvent{Kind: "RECORD", Stream: stream.ID(), Record: record, Version: version})
	return nil
}

func (s *recordingSink) ActivateVersion(_ context.Context, stream *types.ConfiguredStream, version int64) error {
	s.events = append(s.events, sinkEvent{Kind: "ACTIVATE_VERSION", Stream: stream.ID(), Version: version})
	return nil
}

func (s *recordingSink) EmitState(_ context.Context, state *types.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.events = append(s.events, sinkEvent{Kind: "STATE", State: string(data)})
	return nil
}

func (s *recordingSink) records(stream string) []string {
	var ids []string
	for _, event := range s.events {
		if event.Kind == "RECORD" && event.Stream == stream {
			ids = append(ids, utils.ToString(event.Record["id"]))
		}
	}
	return ids
}

func (s *recordingSink) kinds(stream string) []string {
	var kinds []string
	for _, event := range s.events {
		if event.Stream == stream {
			kinds = append(kinds, event.Kind)
		}
	}
	return kinds
}

func (s *recordingSink) lastState() string {
	for idx := len(s.events) - 1; idx >= 0; idx-- {
		if s.events[idx].Kind == "STATE" {
			return s.events[idx].State
		}
	}
	return ""
}

func (s *recordingSink) states() []string {
	var states []string
	for _, event := range s.events {
		if event.Kind == "STATE" {
			states = append(states, event.State)
		}
	}
	return states
}

var errUpstream = errors.New("HTTP-error-code: 500, Error: An unhandled error with the Intercom API.")

func ms(value string) int64 {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return parsed.UnixMilli()
}

// descriptor table shaped like the real one: an internal parent, a full table
// child, an incremental parent with an incremental child and plain streams
func testStreams() []*types.Stream {
	return []*types.Stream{
		{Name: "admin_list", PrimaryKey: types.NewSet("id"), SyncMode: types.FULLTABLE, Internal: true},
		{Name: "admins", PrimaryKey: types.NewSet("id"), SyncMode: types.FULLTABLE, Parent: "admin_list"},
		{Name: "companies", PrimaryKey: types.NewSet("id"), SyncMode: types.FULLTABLE},
		{Name: "conversations", PrimaryKey: types.NewSet("id"), SyncMode: types.INCREMENTAL, CursorField: "updated_at"},
		{Name: "conversation_parts", PrimaryKey: types.NewSet("id"), SyncMode: types.INCREMENTAL, CursorField: "updated_at", Parent: "conversations"},
		{Name: "contacts", PrimaryKey: types.NewSet("id"), SyncMode: types.INCREMENTAL, CursorField: "updated_at"},
	}
}

func selectStreams(names ...string) *types.Catalog {
	catalog := &types.Catalog{}
	for _, name := range names {
		catalog.SelectedStreams = append(catalog.SelectedStreams, types.StreamMetadata{StreamName: name})
	}
	return catalog
}

type iter2Seq = iter.Seq2[types.Record, error]

type iter2 = func(ctx context.Context, stream *types.ConfiguredStream, since time.Time) iter2Seq

// fixed serves the same records for every fetch
func fixed(records ...types.Record) iter2 {
	return func(context.Context, *types.ConfiguredStream, time.Time) iter2Seq {
		return sequence(records...)
	}
}
