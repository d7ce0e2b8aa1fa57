package abstract

import (
	"context"
	"testing"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation(id, updated string) types.Record {
	return types.Record{"id": id, "updated_at": ms(updated)}
}

// conversationDriver serves parents and one part per parent carrying the parent cursor
func conversationDriver(parents ...types.Record) *MockDriver {
	mock := &MockDriver{streams: testStreams()}
	mock.fetchRecordsFunc = fixed(parents...)
	mock.fetchChildRecordsFunc = func(_ context.Context, _ *types.ConfiguredStream, parent types.Record) iter2Seq {
		id := utils.ToString(parent["id"])
		return sequence(types.Record{"id": "p" + id, "conversation_id": id, "updated_at": parent["updated_at"]})
	}
	return mock
}

func pair(t *testing.T, mock *MockDriver, emitParent bool) (*types.ConfiguredStream, *types.ConfiguredStream) {
	t.Helper()
	parentStream, found := types.LookupStream(mock.streams, "conversations")
	require.True(t, found)
	childStream, found := types.LookupStream(mock.streams, "conversation_parts")
	require.True(t, found)

	parent := parentStream.Wrap()
	parent.Emit = emitParent
	return parent, childStream.Wrap()
}

func TestParentChildStartsFromLowestBookmark(t *testing.T) {
	mock := conversationDriver(
		conversation("1", "2021-01-02T00:00:00Z"),
		conversation("2", "2021-01-04T00:00:00Z"),
	)
	driver := NewAbstractDriver(context.Background(), mock)
	state := types.NewState()
	state.Bookmarks["conversations"] = map[string]any{"updated_at": "2021-01-03T00:00:00.000000Z"}
	state.Bookmarks["conversation_parts"] = map[string]any{"updated_at": "2021-01-01T00:00:00.000000Z"}
	driver.SetupState(state)

	parent, child := pair(t, mock, true)
	sink := &recordingSink{}
	require.NoError(t, driver.ParentChild(context.Background(), sink, parent, child))

	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), mock.fetchedSince["conversations"])
	assert.Equal(t, []string{"2"}, sink.records("conversations"), "parent records keep their own watermark")
	assert.Equal(t, []string{"p1", "p2"}, sink.records("conversation_parts"))

	assert.Equal(t, "2021-01-04T00:00:00.000000Z", driver.State().GetBookmark("conversations", "updated_at"))
	assert.Equal(t, "2021-01-04T00:00:00.000000Z", driver.State().GetBookmark("conversation_parts", "updated_at"))
	_, found := driver.State().LastProcessed("conversations")
	assert.False(t, found, "marker is cleared after a full pass")

	// one checkpoint per parent with the child bookmark in lock step
	states := sink.states()
	require.Len(t, states, 2)
	assert.JSONEq(t, `{"version":1,"currently_syncing":null,"bookmarks":{
		"conversations":{"updated_at":"2021-01-03T00:00:00.000000Z","last_processed":{"id":"1","cursor":"2021-01-02T00:00:00.000000Z"}},
		"conversation_parts":{"updated_at":"2021-01-02T00:00:00.000000Z"}}}`, states[0])
	assert.JSONEq(t, `{"version":1,"currently_syncing":null,"bookmarks":{
		"conversations":{"updated_at":"2021-01-03T00:00:00.000000Z","last_processed":{"id":"2","cursor":"2021-01-04T00:00:00.000000Z"}},
		"conversation_parts":{"updated_at":"2021-01-04T00:00:00.000000Z"}}}`, states[1])
}

func resumeState(marker any) *types.State {
	state := types.NewState()
	state.MarkSyncing("conversations")
	state.Bookmarks["conversations"] = map[string]any{"updated_at": "2021-01-01T00:00:00.000000Z", "last_processed": marker}
	state.Bookmarks["conversation_parts"] = map[string]any{"updated_at": "2021-01-02T00:00:00.000000Z"}
	return state
}

func TestParentChildResumesAfterMarker(t *testing.T) {
	// parents come sorted by updated_at, so ids are not in ascending order
	mock := conversationDriver(
		conversation("5", "2021-01-02T00:00:00Z"),
		conversation("3", "2021-01-03T00:00:00Z"),
		conversation("7", "2021-01-04T00:00:00Z"),
	)
	driver := NewAbstractDriver(context.Background(), mock)
	driver.SetupState(resumeState(map[string]any{"id": "5", "cursor": "2021-01-02T00:00:00.000000Z"}))

	parent, child := pair(t, mock, true)
	sink := &recordingSink{}
	require.NoError(t, driver.ParentChild(context.Background(), sink, parent, child))

	assert.Equal(t, []string{"conversation_parts:3", "conversation_parts:7"}, mock.childFetchesByParentID)
	assert.Equal(t, []string{"3", "7"}, sink.records("conversations"))
	assert.Equal(t, []string{"p3", "p7"}, sink.records("conversation_parts"))
	assert.Equal(t, "2021-01-04T00:00:00.000000Z", driver.State().GetBookmark("conversations", "updated_at"))
	assert.Equal(t, "2021-01-04T00:00:00.000000Z", driver.State().GetBookmark("conversation_parts", "updated_at"))
}

func TestParentChildResumeSyncsCursorTies(t *testing.T) {
	mock := conversationDriver(
		conversation("9", "2021-01-03T00:00:00Z"),
		conversation("4", "2021-01-03T00:00:00Z"),
		conversation("8", "2021-01-04T00:00:00Z"),
	)
	driver := NewAbstractDriver(context.Background(), mock)
	driver.SetupState(resumeState(map[string]any{"id": "9", "cursor": "2021-01-03T00:00:00.000000Z"}))

	parent, child := pair(t, mock, true)
	require.NoError(t, driver.ParentChild(context.Background(), &recordingSink{}, parent, child))

	// "4" shares the marker cursor and may not have been synced before the interruption
	assert.Equal(t, []string{"conversation_parts:4", "conversation_parts:8"}, mock.childFetchesByParentID)
}

func TestParentChildIgnoresMarkerWithoutCursor(t *testing.T) {
	mock := conversationDriver(
		conversation("5", "2021-01-02T00:00:00Z"),
		conversation("3", "2021-01-03T00:00:00Z"),
	)
	driver := NewAbstractDriver(context.Background(), mock)
	driver.SetupState(resumeState("5"))

	parent, child := pair(t, mock, true)
	require.NoError(t, driver.ParentChild(context.Background(), &recordingSink{}, parent, child))

	assert.Equal(t, []string{"conversation_parts:5", "conversation_parts:3"}, mock.childFetchesByParentID)
}

func TestParentChildOnlyChildSelected(t *testing.T) {
	mock := conversationDriver(
		conversation("1", "2021-01-02T00:00:00Z"),
		conversation("2", "2021-01-05T00:00:00Z"),
	)
	driver := NewAbstractDriver(context.Background(), mock)
	state := types.NewState()
	state.Bookmarks["conversation_parts"] = map[string]any{"updated_at": "2021-01-03T00:00:00.000000Z"}
	driver.SetupState(state)

	parent, child := pair(t, mock, false)
	sink := &recordingSink{}
	require.NoError(t, driver.ParentChild(context.Background(), sink, parent, child))

	assert.Empty(t, sink.records("conversations"))
	assert.Equal(t, []string{"p2"}, sink.records("conversation_parts"), "child records keep the child watermark")
	assert.Nil(t, driver.State().GetBookmark("conversations", "updated_at"), "parent bookmark is not committed")
	assert.Equal(t, "2021-01-05T00:00:00.000000Z", driver.State().GetBookmark("conversation_parts", "updated_at"))
}

func TestParentChildFailureKeepsProgress(t *testing.T) {
	mock := conversationDriver(
		conversation("1", "2021-01-02T00:00:00Z"),
		conversation("2", "2021-01-04T00:00:00Z"),
	)
	mock.fetchChildRecordsFunc = func(_ context.Context, _ *types.ConfiguredStream, parent types.Record) iter2Seq {
		if parent["id"] == "2" {
			return failingSequence(errUpstream)
		}
		return sequence(types.Record{"id": "p1", "updated_at": parent["updated_at"]})
	}
	driver := NewAbstractDriver(context.Background(), mock)

	parent, child := pair(t, mock, true)
	err := driver.ParentChild(context.Background(), &recordingSink{}, parent, child)
	require.ErrorIs(t, err, errUpstream)

	marker, found := driver.State().LastProcessed("conversations")
	require.True(t, found)
	assert.Equal(t, types.Marker{ID: "1", Cursor: ms("2021-01-02T00:00:00Z")}, marker)
	assert.Equal(t, "2021-01-02T00:00:00.000000Z", driver.State().GetBookmark("conversation_parts", "updated_at"))
	assert.Nil(t, driver.State().GetBookmark("conversations", "updated_at"), "parent bookmark only moves after a full pass")
}

func TestParentChildCheckpointInterval(t *testing.T) {
	mock := conversationDriver(
		conversation("1", "2021-01-02T00:00:00Z"),
		conversation("2", "2021-01-03T00:00:00Z"),
		conversation("3", "2021-01-04T00:00:00Z"),
	)
	mock.checkpointInterval = 2
	driver := NewAbstractDriver(context.Background(), mock)

	parent, child := pair(t, mock, true)
	sink := &recordingSink{}
	require.NoError(t, driver.ParentChild(context.Background(), sink, parent, child))

	assert.Len(t, sink.states(), 1)
}

func TestParentChildFullTableChild(t *testing.T) {
	mock := &MockDriver{streams: testStreams()}
	mock.fetchRecordsFunc = fixed(types.Record{"id": "7"}, types.Record{"id": "9"})
	mock.fetchChildRecordsFunc = func(_ context.Context, _ *types.ConfiguredStream, parent types.Record) iter2Seq {
		return sequence(types.Record{"id": parent["id"], "name": "admin " + utils.ToString(parent["id"])})
	}
	driver := NewAbstractDriver(context.Background(), mock)

	parentStream, _ := types.LookupStream(mock.streams, "admin_list")
	childStream, _ := types.LookupStream(mock.streams, "admins")
	parent, child := parentStream.Wrap(), childStream.Wrap()

	sink := &recordingSink{}
	require.NoError(t, driver.ParentChild(context.Background(), sink, parent, child))

	assert.Empty(t, sink.kinds("admin_list"), "internal streams never reach the sink")
	assert.Equal(t, []string{"ACTIVATE_VERSION", "RECORD", "RECORD", "ACTIVATE_VERSION"}, sink.kinds("admins"))
	assert.Empty(t, driver.State().Bookmarks)
}
