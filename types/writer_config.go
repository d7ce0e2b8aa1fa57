package types

import "fmt"

type DestinationType string

const (
	Stdout  DestinationType = "STDOUT"
	Parquet DestinationType = "PARQUET"
)

// WriterConfig is the destination config passed with --destination
type WriterConfig struct {
	Type         DestinationType `json:"type"`
	WriterConfig any             `json:"writer"`
	// records buffered per stream before they are handed to the writer
	BatchSize int `json:"batch_size,omitempty"`
}

func (w *WriterConfig) Validate() error {
	switch w.Type {
	case Stdout, Parquet:
	case "":
		return fmt.Errorf("destination type is required")
	default:
		return fmt.Errorf("invalid destination type[%s]", w.Type)
	}

	if w.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	return nil
}
