package types

import (
	"fmt"
	"sync"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
	"github.com/goccy/go-json"
)

// State is the resumable run state shared by every stream of one sync
type State struct {
	*sync.RWMutex `json:"-"`

	Version          int                       `json:"version,omitempty"`
	Bookmarks        map[string]map[string]any `json:"bookmarks"`
	CurrentlySyncing *string                   `json:"currently_syncing"`

	// flat bookmarks waiting for Translate
	legacy map[string]any
}

func NewState() *State {
	return &State{
		RWMutex:   &sync.RWMutex{},
		Version:   constants.LatestStateVersion,
		Bookmarks: make(map[string]map[string]any),
	}
}

func (s *State) isZero() bool {
	return len(s.Bookmarks) == 0 && len(s.legacy) == 0 && s.CurrentlySyncing == nil
}

// GetBookmark returns the raw bookmark value of key for stream
func (s *State) GetBookmark(stream, key string) any {
	s.RLock()
	defer s.RUnlock()

	return s.Bookmarks[stream][key]
}

// BookmarkMillis returns the bookmark of stream as epoch millis
func (s *State) BookmarkMillis(stream, key string) (int64, bool, error) {
	value := s.GetBookmark(stream, key)
	if value == nil {
		return 0, false, nil
	}

	millis, err := typeutils.NormalizeTimestamp(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid bookmark[%s.%s]: %s", stream, key, err)
	}
	return millis, true, nil
}

// CommitBookmark advances the bookmark of stream to millis; the stored value never moves backwards
func (s *State) CommitBookmark(stream, key string, millis int64) string {
	s.Lock()
	defer s.Unlock()

	entry := s.entry(stream)
	if current, found := entry[key]; found && current != nil {
		if existing, err := typeutils.NormalizeTimestamp(current); err == nil && existing >= millis {
			return utils.ToString(current)
		}
	}

	formatted := typeutils.FormatBookmark(millis)
	entry[key] = formatted
	return formatted
}

// Marker is the last parent whose children were fully synced. Parents arrive
// sorted by cursor, so the cursor orders them and the id breaks ties.
type Marker struct {
	ID     string
	Cursor int64
}

// Done reports whether a parent was already handled by the interrupted run.
// Parents sharing the marker cursor are only skipped when they are the marker itself.
func (m Marker) Done(id string, cursor int64) bool {
	return cursor < m.Cursor || (cursor == m.Cursor && id == m.ID)
}

// SetLastProcessed records the marker as {"id": ..., "cursor": ...} next to the parent bookmark
func (s *State) SetLastProcessed(stream string, marker Marker) {
	s.Lock()
	defer s.Unlock()

	s.entry(stream)[constants.LastProcessedKey] = map[string]any{
		"id":     marker.ID,
		"cursor": typeutils.FormatBookmark(marker.Cursor),
	}
}

// LastProcessed returns the marker of stream. A marker without a cursor cannot
// place the parent in cursor order and is reported as not found.
func (s *State) LastProcessed(stream string) (Marker, bool) {
	s.RLock()
	defer s.RUnlock()

	value, found := s.Bookmarks[stream][constants.LastProcessedKey]
	if !found || value == nil {
		return Marker{}, false
	}

	fields, ok := value.(map[string]any)
	if !ok || fields["id"] == nil || fields["cursor"] == nil {
		logger.Warnf("ignoring last_processed marker[%v] of stream[%s] without a cursor", value, stream)
		return Marker{}, false
	}

	cursor, err := typeutils.NormalizeTimestamp(fields["cursor"])
	if err != nil {
		logger.Warnf("ignoring last_processed marker of stream[%s]: %s", stream, err)
		return Marker{}, false
	}
	return Marker{ID: utils.ToString(fields["id"]), Cursor: cursor}, true
}

func (s *State) ClearLastProcessed(stream string) {
	s.Lock()
	defer s.Unlock()

	entry, found := s.Bookmarks[stream]
	if !found {
		return
	}
	delete(entry, constants.LastProcessedKey)
	if len(entry) == 0 {
		delete(s.Bookmarks, stream)
	}
}

func (s *State) MarkSyncing(stream string) {
	s.Lock()
	defer s.Unlock()

	s.CurrentlySyncing = &stream
}

func (s *State) ClearSyncing() {
	s.Lock()
	defer s.Unlock()

	s.CurrentlySyncing = nil
}

// Syncing returns the stream marked as in flight, empty when none
func (s *State) Syncing() string {
	s.RLock()
	defer s.RUnlock()

	if s.CurrentlySyncing == nil {
		return ""
	}
	return *s.CurrentlySyncing
}

// ResetStreams drops the bookmarks of the given streams, or of all streams when none are given
func (s *State) ResetStreams(streams ...string) {
	s.Lock()
	defer s.Unlock()

	if len(streams) == 0 {
		s.Bookmarks = make(map[string]map[string]any)
		s.legacy = nil
		s.CurrentlySyncing = nil
		return
	}

	for _, stream := range streams {
		delete(s.Bookmarks, stream)
		delete(s.legacy, stream)
		if s.CurrentlySyncing != nil && *s.CurrentlySyncing == stream {
			s.CurrentlySyncing = nil
		}
	}
}

// Translate upgrades flat legacy bookmarks {"bookmarks":{"s":"v"}} into the nested
// layout using the cursor field resolved for each stream
func (s *State) Translate(cursorField func(stream string) (string, bool)) {
	s.Lock()
	defer s.Unlock()

	for stream, value := range s.legacy {
		field, found := cursorField(stream)
		if !found {
			logger.Warnf("dropping legacy bookmark of unknown stream[%s]", stream)
			continue
		}

		logger.Infof("upgrading legacy bookmark of stream[%s] to cursor field[%s]", stream, field)
		s.entry(stream)[field] = value
	}

	s.legacy = nil
	s.Version = constants.LatestStateVersion
}

// entry must be called with the write lock held
func (s *State) entry(stream string) map[string]any {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]any)
	}

	entry, found := s.Bookmarks[stream]
	if !found {
		entry = make(map[string]any)
		s.Bookmarks[stream] = entry
	}
	return entry
}

func (s *State) MarshalJSON() ([]byte, error) {
	if s.RWMutex != nil {
		s.RLock()
		defer s.RUnlock()
	}

	type Alias State
	bookmarks := s.Bookmarks
	if bookmarks == nil {
		bookmarks = map[string]map[string]any{}
	}

	return json.Marshal(&struct {
		*Alias
		Bookmarks map[string]map[string]any `json:"bookmarks"`
	}{
		Alias:     (*Alias)(s),
		Bookmarks: bookmarks,
	})
}

// UnmarshalJSON accepts both the nested bookmark layout and the legacy flat one
func (s *State) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version          int            `json:"version"`
		Bookmarks        map[string]any `json:"bookmarks"`
		CurrentlySyncing *string        `json:"currently_syncing"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if s.RWMutex == nil {
		s.RWMutex = &sync.RWMutex{}
	}
	s.Version = raw.Version
	s.CurrentlySyncing = raw.CurrentlySyncing
	s.Bookmarks = make(map[string]map[string]any, len(raw.Bookmarks))
	s.legacy = nil

	for stream, value := range raw.Bookmarks {
		if nested, ok := value.(map[string]any); ok {
			s.Bookmarks[stream] = nested
			continue
		}

		if s.legacy == nil {
			s.legacy = make(map[string]any)
		}
		s.legacy[stream] = value
		s.Version = constants.LegacyStateVersion
	}

	if s.CurrentlySyncing != nil && *s.CurrentlySyncing == "" {
		s.CurrentlySyncing = nil
	}

	return nil
}
