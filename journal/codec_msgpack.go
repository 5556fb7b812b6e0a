package journal

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec encodes/decodes journal entries as MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(e *Entry) ([]byte, error) {
	return msgpack.Marshal(e)
}

func (c *MsgpackCodec) Decode(data []byte) (*Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
