package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec sends plain Go structs as JSON. It replaces Connect's built-in
// "json" codec, which only accepts protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// CodecOption configures handlers and clients to use the JSON struct codec.
func CodecOption() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
