package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype for JSON-encoded gRPC payloads
// ("application/grpc+json").
const CodecName = "json"

// jsonCodec marshals plain Go request/response structs.
type jsonCodec struct{}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Marshal implements encoding.Codec.
func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return data, nil
}

// Unmarshal implements encoding.Codec.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}

// Name implements encoding.Codec.
func (jsonCodec) Name() string {
	return CodecName
}
