package rpc

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodec implements grpc's encoding.Codec over encoding/gob. It
// registers under the name "proto": grpc-go negotiates the "proto"
// content-subtype whenever a call sets no content-subtype of its own, so
// this is the standard technique for carrying ordinary Go values over a
// real grpc.ClientConn/grpc.Server without ever generating a .pb.go file.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
