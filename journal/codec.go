package journal

// Codec defines the serialization contract for journal entries.
// Implementations handle encoding/decoding entries to/from bytes.
type Codec interface {
	// Encode serializes an entry to bytes.
	Encode(e *Entry) ([]byte, error)

	// Decode deserializes bytes into an entry.
	Decode(data []byte) (*Entry, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// CodecName constants for sink configuration.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	case CodecNameJSON, "":
		return &JSONCodec{}
	default:
		return &JSONCodec{}
	}
}
