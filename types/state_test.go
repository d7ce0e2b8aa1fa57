package types

import (
	"runtime"
	"testing"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// prevent LogState() from writing files during tests
	if runtime.GOOS == "windows" {
		viper.Set(constants.StatePath, "NUL")
	} else {
		viper.Set(constants.StatePath, "/dev/null")
	}
}

func TestCommitBookmarkIsMonotonic(t *testing.T) {
	s := NewState()
	assert.True(t, s.isZero(), "new state should be zero")

	const jan3 = int64(1609632000000)
	const jan1 = int64(1609459200000)

	assert.Equal(t, "2021-01-03T00:00:00.000000Z", s.CommitBookmark("contacts", "updated_at", jan3))

	// an older value never replaces the committed one
	assert.Equal(t, "2021-01-03T00:00:00.000000Z", s.CommitBookmark("contacts", "updated_at", jan1))

	millis, found, err := s.BookmarkMillis("contacts", "updated_at")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, jan3, millis)

	_, found, err = s.BookmarkMillis("segments", "updated_at")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCommitBookmarkAfterLegacyValue(t *testing.T) {
	s := NewState()
	s.Bookmarks["tags"] = map[string]any{"updated_at": "2021-01-02T00:00:00Z"}

	assert.Equal(t, "2021-01-02T00:00:00Z", s.CommitBookmark("tags", "updated_at", 1609459200000))
	assert.Equal(t, "2021-01-03T00:00:00.000000Z", s.CommitBookmark("tags", "updated_at", 1609632000000))
}

func TestSyncingMarker(t *testing.T) {
	s := NewState()
	assert.Empty(t, s.Syncing())

	s.MarkSyncing("conversations")
	assert.Equal(t, "conversations", s.Syncing())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"bookmarks":{},"currently_syncing":"conversations"}`, string(data))

	s.ClearSyncing()
	assert.Empty(t, s.Syncing())

	data, err = json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"bookmarks":{},"currently_syncing":null}`, string(data))
}

func TestLastProcessedMarker(t *testing.T) {
	s := NewState()
	s.CommitBookmark("conversations", "updated_at", 1609459200000)

	_, found := s.LastProcessed("conversations")
	assert.False(t, found)

	s.SetLastProcessed("conversations", Marker{ID: "1042", Cursor: 1609545600000})
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"currently_syncing":null,"bookmarks":{"conversations":{
		"updated_at":"2021-01-01T00:00:00.000000Z",
		"last_processed":{"id":"1042","cursor":"2021-01-02T00:00:00.000000Z"}}}}`, string(data))

	// the marker survives a checkpoint round trip
	restored := NewState()
	require.NoError(t, restored.UnmarshalJSON(data))
	marker, found := restored.LastProcessed("conversations")
	require.True(t, found)
	assert.Equal(t, Marker{ID: "1042", Cursor: 1609545600000}, marker)

	s.ClearLastProcessed("conversations")
	_, found = s.LastProcessed("conversations")
	assert.False(t, found)
	assert.NotNil(t, s.GetBookmark("conversations", "updated_at"), "clearing the marker keeps the cursor")

	// a marker alone leaves no empty entry behind
	s.SetLastProcessed("admin_list", Marker{ID: "7"})
	s.ClearLastProcessed("admin_list")
	assert.NotContains(t, s.Bookmarks, "admin_list")
}

func TestLastProcessedWithoutCursor(t *testing.T) {
	s := NewState()
	s.Bookmarks["conversations"] = map[string]any{"last_processed": "1042"}
	_, found := s.LastProcessed("conversations")
	assert.False(t, found)

	s.Bookmarks["conversations"] = map[string]any{"last_processed": map[string]any{"id": "1042"}}
	_, found = s.LastProcessed("conversations")
	assert.False(t, found)
}

func TestMarkerDone(t *testing.T) {
	marker := Marker{ID: "5", Cursor: 200}

	assert.True(t, marker.Done("9", 100), "earlier cursor")
	assert.True(t, marker.Done("5", 200), "the marker itself")
	assert.False(t, marker.Done("3", 200), "cursor tie with another id")
	assert.False(t, marker.Done("3", 300), "later cursor with a lower id")
}

func TestTranslateLegacyState(t *testing.T) {
	cursors := map[string]string{"s": "updated_at", "contacts": "updated_at"}
	lookup := func(stream string) (string, bool) {
		field, found := cursors[stream]
		return field, found
	}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "flat_value_is_nested",
			input:    `{"bookmarks":{"s":"2021-01-01T00:00:00Z"}}`,
			expected: `{"version":1,"bookmarks":{"s":{"updated_at":"2021-01-01T00:00:00Z"}},"currently_syncing":null}`,
		},
		{
			name:     "nested_state_untouched",
			input:    `{"bookmarks":{"contacts":{"updated_at":"2021-01-01T00:00:00Z"}},"currently_syncing":"contacts"}`,
			expected: `{"version":1,"bookmarks":{"contacts":{"updated_at":"2021-01-01T00:00:00Z"}},"currently_syncing":"contacts"}`,
		},
		{
			name:     "unknown_stream_dropped",
			input:    `{"bookmarks":{"users":"2021-01-01T00:00:00Z","s":"2021-02-01"}}`,
			expected: `{"version":1,"bookmarks":{"s":{"updated_at":"2021-02-01"}},"currently_syncing":null}`,
		},
		{
			name:     "empty_state",
			input:    `{}`,
			expected: `{"version":1,"bookmarks":{},"currently_syncing":null}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := NewState()
			require.NoError(t, json.Unmarshal([]byte(tc.input), state))

			state.Translate(lookup)

			data, err := json.Marshal(state)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}

func TestResetStreams(t *testing.T) {
	s := NewState()
	s.CommitBookmark("contacts", "updated_at", 1)
	s.CommitBookmark("segments", "updated_at", 1)
	s.MarkSyncing("contacts")

	s.ResetStreams("contacts")
	assert.NotContains(t, s.Bookmarks, "contacts")
	assert.Contains(t, s.Bookmarks, "segments")
	assert.Empty(t, s.Syncing())

	s.ResetStreams()
	assert.Empty(t, s.Bookmarks)
}
