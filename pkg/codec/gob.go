package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob is a Codec backed by encoding/gob. It requires the concrete type of
// any value passed to Encode to be registered with gob.Register beforehand;
// this mirrors the reference runtime's requirement that a serialization
// backend be able to round-trip whatever the caller hands it, with the
// registration burden on the caller rather than the bridge.
type Gob struct{}

func (Gob) Name() string { return "gob" }

func (Gob) Encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gob) Decode(data []byte) (any, error) {
	var value any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}
