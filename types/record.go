package types

import "time"

// Record is one normalized API object
type Record = map[string]any

// RawRecord is a record as handed to writers
type RawRecord struct {
	Stream      string    `json:"stream"`
	Data        Record    `json:"record"`
	Version     int64     `json:"version,omitempty"`
	ExtractedAt time.Time `json:"time_extracted"`
}

func CreateRawRecord(stream string, data Record, version int64, extractedAt time.Time) RawRecord {
	return RawRecord{
		Stream:      stream,
		Data:        data,
		Version:     version,
		ExtractedAt: extractedAt,
	}
}
