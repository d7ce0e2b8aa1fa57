package types

import (
	"fmt"

	"github.com/datazip-inc/olake-intercom/utils"
)

// StreamMetadata selects a stream for output, optionally narrowing its fields
type StreamMetadata struct {
	StreamName     string   `json:"stream_name"`
	SelectedFields []string `json:"selected_fields,omitempty"`
}

// Catalog is written by discover and read back as the selection input of sync
type Catalog struct {
	Streams         []*ConfiguredStream `json:"streams"`
	SelectedStreams []StreamMetadata    `json:"selected_streams"`
}

// Selection maps every selected stream name to its metadata
func (c *Catalog) Selection() map[string]StreamMetadata {
	selection := make(map[string]StreamMetadata, len(c.SelectedStreams))
	for _, metadata := range c.SelectedStreams {
		selection[metadata.StreamName] = metadata
	}
	return selection
}

func (c *Catalog) Validate() error {
	seen := NewSet[string]()
	for _, metadata := range c.SelectedStreams {
		if metadata.StreamName == "" {
			return fmt.Errorf("selected stream entry without stream_name")
		}
		if seen.Exists(metadata.StreamName) {
			return fmt.Errorf("stream[%s] selected more than once", metadata.StreamName)
		}
		seen.Insert(metadata.StreamName)
	}
	return nil
}

// GetWrappedCatalog builds the discover output; every replicable stream is
// selected with all of its fields
func GetWrappedCatalog(streams []*Stream) *Catalog {
	catalog := &Catalog{
		Streams:         []*ConfiguredStream{},
		SelectedStreams: []StreamMetadata{},
	}

	for _, stream := range streams {
		if stream.Internal {
			continue
		}

		catalog.Streams = append(catalog.Streams, stream.Wrap())
		catalog.SelectedStreams = append(catalog.SelectedStreams, StreamMetadata{StreamName: stream.Name})
	}

	return catalog
}

// LookupStream finds a descriptor by name
func LookupStream(streams []*Stream, name string) (*Stream, bool) {
	idx, found := utils.ArrayContains(streams, func(elem *Stream) bool {
		return elem.Name == name
	})
	if !found {
		return nil, false
	}
	return streams[idx], true
}
