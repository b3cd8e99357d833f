package codec_test

import (
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/pkg/codec"
)

func TestGobRoundTrip(t *testing.T) {
	gob.Register(map[string]any{})
	c := codec.Gob{}
	payload, err := c.Encode(map[string]any{"a": 1.0, "b": "two"})
	require.NoError(t, err)

	decoded, err := c.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1.0, "b": "two"}, decoded)
}

func TestJSONRoundTrip(t *testing.T) {
	c := codec.JSON{}
	payload, err := c.Encode([]any{"x", 1.0, true})
	require.NoError(t, err)

	decoded, err := c.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, []any{"x", 1.0, true}, decoded)
}

func TestJSONEncodeFuncFails(t *testing.T) {
	c := codec.JSON{}
	_, err := c.Encode(func() {})
	require.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	r := codec.NewRegistry(codec.Gob{}, codec.JSON{})

	found, err := r.Lookup("json")
	require.NoError(t, err)
	require.Equal(t, "json", found.Name())

	_, err = r.Lookup("missing")
	require.Error(t, err)
}
