package codec

import "encoding/json"

// JSON is a Codec backed by encoding/json. It carries only plain data: like
// Gob it cannot encode a function, and unlike Gob it decodes objects back
// as maps rather than their original Go types. It exists primarily so tests can
// exercise the SerializationError path (S4 in the spec) by attempting to
// encode a value JSON cannot represent, such as a function.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(value any) ([]byte, error) { return json.Marshal(value) }

func (JSON) Decode(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
