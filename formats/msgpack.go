package formats

import (
	"fmt"
	"reflect"

	"spexregister/models"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-msgpack/codec"
)

// MsgpackParser implements DocumentParser for MessagePack format
// Expects an array of maps keyed like the JSON representation
type MsgpackParser struct{}

// Parse parses MessagePack format data
func (p *MsgpackParser) Parse(data []byte) ([]models.Spexare, error) {
	var raw []map[string]interface{}

	handle := &codec.MsgpackHandle{RawToString: true}
	handle.MapType = reflect.TypeOf(map[string]interface{}(nil))

	decoder := codec.NewDecoderBytes(data, handle)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid MessagePack data: %w", err)
	}

	documents := make([]models.Spexare, 0, len(raw))
	for i, m := range raw {
		// the map is already decoded, re-encoding reuses the json field names
		encoded, err := sonic.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("invalid document %d: %w", i, err)
		}

		var doc models.Spexare
		if err := sonic.Unmarshal(encoded, &doc); err != nil {
			return nil, fmt.Errorf("invalid document %d: %w", i, err)
		}
		if err := validate(&doc, fmt.Sprintf("document %d", i)); err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}
