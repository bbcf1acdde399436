// Package api defines the CloudPool gRPC surface: request and response
// messages, the service descriptor, a typed client and the JSON codec the
// messages travel with.
package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype both sides negotiate.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Codec returns the codec used for every CloudPool message.
func Codec() encoding.Codec { return jsonCodec{} }
