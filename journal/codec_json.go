package journal

import "encoding/json"

// JSONCodec encodes/decodes journal entries as JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

func (c *JSONCodec) Decode(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }
