// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import "encoding/json"

// Codec turns call arguments into payload bytes and payloads into replies.
//
// The framed and gRPC transports use the configured codec for both
// directions. The HTTP transport always speaks JSON-RPC. Name is sent as the
// gRPC content subtype, so a gRPC node must have a codec of that name
// registered; JSON and Binary are registered by this package.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

var (
	// JSON encodes every value with encoding/json. It is the default.
	JSON Codec = jsonCodec{}
	// Binary sends []byte arguments as they are and copies payloads into
	// *[]byte replies without parsing them. Other values use JSON.
	Binary Codec = binaryCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Encode(v any) ([]byte, error) {
	if raw, ok := rawBytes(v); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

func (binaryCodec) Decode(data []byte, v any) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return json.Unmarshal(data, v)
	}
	*dst = append((*dst)[:0], data...)
	return nil
}

func rawBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case *[]byte:
		if b == nil {
			return nil, true
		}
		return *b, true
	default:
		return nil, false
	}
}
