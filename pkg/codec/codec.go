// Package codec defines the pluggable serialization contract that carries
// callables, arguments, and results across the execution bridge. The bridge
// itself never inspects or types the payload it carries; it only calls
// Encode and Decode through this interface, so a Codec is the sole
// integration surface for a dynamic-callable transport such as Python's
// dill or cloudpickle.
package codec

import "fmt"

// Codec is the {encode, decode} contract a serialization backend must
// satisfy to cross the bridge.
type Codec interface {
	// Name identifies the codec on the wire (e.g. "pickle", "dill",
	// "json") so the child process knows which backend to load.
	Name() string
	// Encode serializes an arbitrary value to bytes.
	Encode(value any) ([]byte, error)
	// Decode deserializes bytes produced by Encode back into a value.
	Decode(data []byte) (any, error)
}

// Registry resolves a codec by name. The agent and the remote facade both
// accept a Registry (the bridge itself takes a single Codec) so that the set of available codecs is a deployment
// concern, not a compile-time one.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry builds a Registry from the given codecs, indexed by Name().
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec, len(codecs))}
	for _, c := range codecs {
		r.codecs[c.Name()] = c
	}
	return r
}

// Lookup returns the codec registered under name, or an error naming the
// unknown codec.
func (r *Registry) Lookup(name string) (Codec, error) {
	c, ok := r.codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	return c, nil
}
