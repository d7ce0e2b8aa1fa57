package stdout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/datazip-inc/olake-intercom/destination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/goccy/go-json"
)

var (
	// every writer shares the process output, one message per line
	outputMu sync.Mutex
	output   io.Writer = os.Stdout
)

type Config struct {
	// BufferSize of the line writer in bytes
	BufferSize int `json:"buffer_size,omitempty" validate:"omitempty,min=1"`
}

func (c *Config) Validate() error {
	return utils.Validate(c)
}

// Stdout writes schema, record, version and state messages as JSON lines
type Stdout struct {
	config *Config
	stream *types.ConfiguredStream
}

func (s *Stdout) GetConfigRef() destination.Config {
	s.config = &Config{}
	return s.config
}

func (s *Stdout) Spec() any {
	return Config{}
}

func (s *Stdout) Type() string {
	return string(types.Stdout)
}

func (s *Stdout) Check(_ context.Context) error {
	return s.config.Validate()
}

func (s *Stdout) Setup(_ context.Context, stream *types.ConfiguredStream) error {
	s.stream = stream

	descriptor := stream.GetStream()
	message := types.Message{
		Type:          types.SchemaMessage,
		Stream:        stream.ID(),
		Schema:        descriptor.Schema,
		KeyProperties: descriptor.PrimaryKey.Array(),
	}
	if descriptor.CursorField != "" {
		message.BookmarkKeys = []string{descriptor.CursorField}
	}
	return writeMessages(s.config.BufferSize, message)
}

func (s *Stdout) Write(_ context.Context, records []types.RawRecord) error {
	messages := make([]types.Message, 0, len(records))
	for _, record := range records {
		extracted := record.ExtractedAt
		messages = append(messages, types.Message{
			Type:          types.RecordMessage,
			Stream:        record.Stream,
			Record:        record.Data,
			Version:       record.Version,
			TimeExtracted: &extracted,
		})
	}
	return writeMessages(s.config.BufferSize, messages...)
}

func (s *Stdout) ActivateVersion(_ context.Context, version int64) error {
	return writeMessages(s.config.BufferSize, types.Message{
		Type:    types.ActivateVersionMessage,
		Stream:  s.stream.ID(),
		Version: version,
	})
}

// Flush is a no-op, every batch is written through
func (s *Stdout) Flush(_ context.Context) error {
	return nil
}

func (s *Stdout) WriteState(_ context.Context, state *types.State) error {
	return writeMessages(s.config.BufferSize, types.Message{
		Type:  types.StateMessage,
		State: state,
	})
}

func (s *Stdout) Close(_ context.Context) error {
	return nil
}

func writeMessages(bufferSize int, messages ...types.Message) error {
	outputMu.Lock()
	defer outputMu.Unlock()

	writer := bufio.NewWriterSize(output, max(bufferSize, 4096))
	encoder := json.NewEncoder(writer)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			return fmt.Errorf("failed to encode %s message: %s", message.Type, err)
		}
	}
	return writer.Flush()
}

func init() {
	destination.RegisteredWriters[types.Stdout] = func() destination.Writer {
		return new(Stdout)
	}
}
