package types

import "time"

// Message is one line of the output stream
type Message struct {
	Type             MessageType    `json:"type"`
	Stream           string         `json:"stream,omitempty"`
	Schema           map[string]any `json:"schema,omitempty"`
	KeyProperties    []string       `json:"key_properties,omitempty"`
	BookmarkKeys     []string       `json:"bookmark_properties,omitempty"`
	Record           Record         `json:"record,omitempty"`
	Version          int64          `json:"version,omitempty"`
	TimeExtracted    *time.Time     `json:"time_extracted,omitempty"`
	State            *State         `json:"value,omitempty"`
	ConnectionStatus *StatusRow     `json:"connectionStatus,omitempty"`
	Spec             map[string]any `json:"spec,omitempty"`
}

// StatusRow is a dto for connection check results
type StatusRow struct {
	Status  ConnectionStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}
