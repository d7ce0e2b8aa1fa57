package types

import (
	"github.com/datazip-inc/olake-intercom/utils"
)

// ConfiguredStream pairs a descriptor with the selection made for it
type ConfiguredStream struct {
	StreamMetadata StreamMetadata `json:"-"`

	Stream          *Stream  `json:"stream"`
	AutomaticFields []string `json:"automatic_fields"`

	// Emit is false for streams that only run to drive a selected child
	Emit bool `json:"-"`
}

func (s *Stream) Wrap() *ConfiguredStream {
	return &ConfiguredStream{
		Stream:          s,
		AutomaticFields: s.AutomaticFields().Array(),
		StreamMetadata:  StreamMetadata{StreamName: s.Name},
		Emit:            !s.Internal,
	}
}

func (s *ConfiguredStream) ID() string {
	return s.Stream.ID()
}

func (s *ConfiguredStream) Name() string {
	return s.Stream.Name
}

func (s *ConfiguredStream) GetStream() *Stream {
	return s.Stream
}

func (s *ConfiguredStream) GetSyncMode() SyncMode {
	return s.Stream.SyncMode
}

func (s *ConfiguredStream) Cursor() string {
	return s.Stream.CursorField
}

// FieldSelected reports if field reaches the sink; automatic fields always do
func (s *ConfiguredStream) FieldSelected(field string) bool {
	if len(s.StreamMetadata.SelectedFields) == 0 {
		return true
	}

	if s.Stream.AutomaticFields().Exists(field) {
		return true
	}

	_, found := utils.ArrayContains(s.StreamMetadata.SelectedFields, func(elem string) bool {
		return elem == field
	})
	return found
}

// Filter drops unselected fields from record
func (s *ConfiguredStream) Filter(record Record) Record {
	if len(s.StreamMetadata.SelectedFields) == 0 {
		return record
	}

	selected := NewSet(s.StreamMetadata.SelectedFields...)
	selected.Insert(s.Stream.AutomaticFields().Array()...)

	return utils.FilterDataBySelectedColumns(record, selected.Array())
}
