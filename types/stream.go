package types

import (
	"fmt"
	"strings"
)

// Request describes how a stream is fetched
type Request struct {
	Method     string            `json:"-"`
	Path       string            `json:"-"` // child paths carry an {id} placeholder
	Params     map[string]string `json:"-"`
	DataKey    string            `json:"-"` // envelope key holding the record array
	Pagination PaginationType    `json:"-"`
	ListFields []string          `json:"-"` // wrapped list fields collapsed by Denest
}

// Stream is the static descriptor of one replicable (or internal) stream
type Stream struct {
	Name        string         `json:"name"`
	PrimaryKey  *Set[string]   `json:"key_properties"`
	SyncMode    SyncMode       `json:"replication_method"`
	CursorField string         `json:"replication_key,omitempty"`
	Parent      string         `json:"parent,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`

	// Internal streams only drive their children and are never emitted
	Internal bool    `json:"-"`
	Request  Request `json:"-"`
}

func (s *Stream) ID() string {
	return s.Name
}

func (s *Stream) HasParent() bool {
	return s.Parent != ""
}

// AutomaticFields are always emitted regardless of field selection
func (s *Stream) AutomaticFields() *Set[string] {
	fields := NewSet(s.PrimaryKey.Array()...)
	if s.CursorField != "" {
		fields.Insert(s.CursorField)
	}
	return fields
}

// ChildPath resolves the request path for one parent identifier
func (s *Stream) ChildPath(parentID string) string {
	return strings.ReplaceAll(s.Request.Path, "{id}", parentID)
}

func (s *Stream) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("stream name must not be empty")
	}

	if s.PrimaryKey.Len() == 0 {
		return fmt.Errorf("stream[%s] declares no primary key", s.Name)
	}

	switch s.SyncMode {
	case INCREMENTAL:
		if s.CursorField == "" {
			return fmt.Errorf("incremental stream[%s] requires a cursor field", s.Name)
		}
	case FULLTABLE:
		if s.CursorField != "" {
			return fmt.Errorf("full table stream[%s] must not declare a cursor field", s.Name)
		}
	default:
		return fmt.Errorf("stream[%s] has invalid replication mode[%s]", s.Name, s.SyncMode)
	}

	return nil
}
