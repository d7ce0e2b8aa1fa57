package driver

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
)

// fields hashed into the record hash of attribute streams
var recordHashKeys = []string{"id", "name", "description"}

// transform reshapes one raw record of stream in place: list wrappers are
// collapsed, attribute records get their hash, addressable lists are completed
// and every declared timestamp becomes epoch millis
func (i *Intercom) transform(ctx context.Context, stream *types.ConfiguredStream, record types.Record) error {
	descriptor := stream.GetStream()

	if len(descriptor.Request.ListFields) > 0 {
		typeutils.Denest([]map[string]any{record}, descriptor.Request.ListFields...)
	}

	if descriptor.PrimaryKey.Exists(constants.RecordHashField) {
		hash, err := utils.GetKeysHash(record, recordHashKeys...)
		if err != nil {
			return err
		}
		record[constants.RecordHashField] = hash
	}

	if descriptor.Name == contacts {
		if err := i.completeLists(ctx, stream, record); err != nil {
			return err
		}
	}

	if err := typeutils.NormalizeTimes(record, i.datetimePaths[descriptor.Name]); err != nil {
		return fmt.Errorf("stream[%s]: %s", descriptor.Name, err)
	}
	return nil
}

// childRecords splits the payload fetched for one parent into child records
func childRecords(child *types.Stream, payload map[string]any) []map[string]any {
	if child.Name == conversationParts {
		return explodeConversationParts(payload)
	}
	return []map[string]any{payload}
}

// explodeConversationParts emits every part of a conversation as its own record
// carrying the identity and timestamps of the conversation
func explodeConversationParts(conversation map[string]any) []map[string]any {
	parts, _ := conversation["conversation_parts"].(map[string]any)
	lineage := map[string]any{
		"conversation_id":          conversation["id"],
		"conversation_total_parts": parts["total_parts"],
		"conversation_created_at":  conversation["created_at"],
		"conversation_updated_at":  conversation["updated_at"],
	}
	return typeutils.Explode(conversation, lineage, "conversation_parts", "conversation_parts")
}
