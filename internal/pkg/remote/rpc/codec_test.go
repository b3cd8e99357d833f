package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestGobCodecRoundTrip(t *testing.T) {
	c := gobCodec{}
	want := &BoundFunction{
		EnvironmentDescription: EnvironmentDescription{Kind: "bare-runtime", Config: map[string]any{"runtime_bin": "python3"}},
		EncodedCallable:        []byte{1, 2, 3},
		Codec:                  "gob",
	}
	data, err := c.Marshal(want)
	require.NoError(t, err)

	var got BoundFunction
	require.NoError(t, c.Unmarshal(data, &got))
	require.Equal(t, *want, got)
}

func TestGobCodecRegisteredUnderProto(t *testing.T) {
	require.Equal(t, "proto", gobCodec{}.Name())
	require.NotNil(t, encoding.GetCodec("proto"))
}
