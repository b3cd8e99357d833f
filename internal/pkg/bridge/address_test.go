package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/bridge"
)

func TestAddressRoundTrip(t *testing.T) {
	cases := []string{
		"127.0.0.1:54321",
		"",
		"/tmp/isolate-9f8.sock",
		"text with spaces and \x00\x01 raw bytes",
	}
	for _, address := range cases {
		encoded := bridge.EncodeAddress(address)
		decoded, err := bridge.DecodeAddress(encoded)
		require.NoError(t, err)
		require.Equal(t, address, decoded)
	}
}

func TestDecodeAddressRejectsInvalidBase64(t *testing.T) {
	_, err := bridge.DecodeAddress("not base64!!")
	require.Error(t, err)
}
