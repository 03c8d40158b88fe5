// Package appgrpc provides the gRPC transport for the application
// protocol, using cramberry for deterministic binary serialization.
//
// No protobuf code generation is required. The request and response
// types in appcore/types are serialized directly via cramberry struct
// tags.
package appgrpc

import (
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
	"google.golang.org/grpc/encoding"
)

const codecName = "cramberry"

// CramberryCodec implements grpc/encoding.Codec using cramberry
// for deterministic binary serialization.
type CramberryCodec struct{}

func (CramberryCodec) Marshal(v any) ([]byte, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "cramberry marshal")
	}
	return data, nil
}

func (CramberryCodec) Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "cramberry unmarshal")
	}
	return nil
}

func (CramberryCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(CramberryCodec{})
}
