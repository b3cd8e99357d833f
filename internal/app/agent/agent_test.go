package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/bridge"
	"github.com/isidentical/isolate/pkg/callable"
	"github.com/isidentical/isolate/pkg/codec"
)

func TestParseArgs(t *testing.T) {
	address := bridge.EncodeAddress("127.0.0.1:9")
	args, err := ParseArgs([]string{"-m", "isolate_agent", address, "gob"})
	require.NoError(t, err)
	require.Equal(t, "isolate_agent", args.Entrypoint)
	require.Equal(t, "127.0.0.1:9", args.Address)
	require.Equal(t, "gob", args.CodecName)
}

func TestParseArgsRejectsWrongShape(t *testing.T) {
	_, err := ParseArgs([]string{"run", "x"})
	require.Error(t, err)
}

func TestExecuteRunsRegisteredCallable(t *testing.T) {
	registry := callable.NewRegistry()
	registry.Register("double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	})

	c := codec.Gob{}
	payload, err := c.Encode(callable.Call{Name: "double", Args: []any{21}})
	require.NoError(t, err)

	result := execute(bridge.CallRequest{Payload: payload, Codec: c.Name()}, c, registry)
	require.True(t, result.OK)

	decoded, err := c.Decode(result.Payload)
	require.NoError(t, err)
	require.Equal(t, 42, decoded)
}

func TestExecuteReportsUserException(t *testing.T) {
	registry := callable.NewRegistry()
	registry.Register("fail", func(args ...any) (any, error) {
		return nil, fmt.Errorf("deliberate failure")
	})

	c := codec.Gob{}
	payload, err := c.Encode(callable.Call{Name: "fail"})
	require.NoError(t, err)

	result := execute(bridge.CallRequest{Payload: payload, Codec: c.Name()}, c, registry)
	require.False(t, result.OK)
	require.True(t, result.IsUserException)
}

func TestExecuteUnknownCallableIsAgentFailure(t *testing.T) {
	registry := callable.NewRegistry()
	c := codec.Gob{}
	payload, err := c.Encode(callable.Call{Name: "missing"})
	require.NoError(t, err)

	result := execute(bridge.CallRequest{Payload: payload, Codec: c.Name()}, c, registry)
	require.False(t, result.OK)
	require.False(t, result.IsUserException)
}

func TestExecuteWasRaisedShortCircuits(t *testing.T) {
	registry := callable.NewRegistry()
	c := codec.Gob{}
	payload, err := c.Encode("already raised")
	require.NoError(t, err)

	result := execute(bridge.CallRequest{Payload: payload, Codec: c.Name(), WasRaised: true}, c, registry)
	require.False(t, result.OK)
	require.True(t, result.IsUserException)
	require.Equal(t, payload, result.Payload)
}
