package call

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes descriptors for the queue snapshot.
type Codec interface {
	// Encode serializes a descriptor to bytes.
	Encode(d *Descriptor) ([]byte, error)

	// Decode deserializes bytes into a descriptor.
	Decode(data []byte) (*Descriptor, error)

	// Name returns the codec identifier stored next to the payload.
	Name() string
}

// Codec names.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}

// JSONCodec encodes descriptors as JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(d *Descriptor) ([]byte, error) {
	return json.Marshal(d)
}

func (c *JSONCodec) Decode(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

// MsgpackCodec encodes descriptors as MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(d *Descriptor) ([]byte, error) {
	return msgpack.Marshal(d)
}

func (c *MsgpackCodec) Decode(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
