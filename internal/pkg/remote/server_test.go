package remote_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/app/agent"
	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
	"github.com/isidentical/isolate/internal/pkg/remote"
	"github.com/isidentical/isolate/internal/pkg/remote/rpc"
	"github.com/isidentical/isolate/pkg/callable"
	"github.com/isidentical/isolate/pkg/codec"
)

func TestMain(m *testing.M) {
	if len(os.Args) >= 2 && os.Args[1] == "-m" {
		registry := codec.NewRegistry(codec.Gob{}, codec.JSON{})
		os.Exit(agent.Run(os.Args[1:], callable.Default, registry))
	}
	os.Exit(m.Run())
}

func init() {
	callable.Register("triple", func(args ...any) (any, error) {
		return args[0].(int) * 3, nil
	})
}

func TestServerHandleRunsCallableAndStreamsResult(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)

	cfg := &config.Config{CacheRoot: t.TempDir()}
	environments := environment.NewRegistry(cfg)
	codecs := codec.NewRegistry(codec.Gob{})
	srv := remote.NewServer(environments, codecs, cfg)

	c := codec.Gob{}
	payload, err := c.Encode(callable.Call{Name: "triple", Args: []any{4}})
	require.NoError(t, err)

	req := &rpc.BoundFunction{
		EnvironmentDescription: rpc.EnvironmentDescription{
			Kind:   environment.KindBare,
			Config: map[string]any{"runtime_bin": self},
		},
		EncodedCallable: payload,
		Codec:           "gob",
	}

	var frames []*rpc.PartialResult
	err = srv.Handle(context.Background(), req, func(p *rpc.PartialResult) error {
		frames = append(frames, p)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	terminal := frames[len(frames)-1]
	require.True(t, terminal.IsComplete)
	require.False(t, terminal.Result.WasRaised)

	decoded, err := c.Decode(terminal.Result.Payload)
	require.NoError(t, err)
	require.Equal(t, 12, decoded)
}

func TestServerHandleUnknownKindIsInfraFailure(t *testing.T) {
	cfg := &config.Config{CacheRoot: t.TempDir()}
	srv := remote.NewServer(environment.NewRegistry(cfg), codec.NewRegistry(codec.Gob{}), cfg)

	var frames []*rpc.PartialResult
	err := srv.Handle(context.Background(), &rpc.BoundFunction{
		EnvironmentDescription: rpc.EnvironmentDescription{Kind: "not-a-real-kind"},
	}, func(p *rpc.PartialResult) error {
		frames = append(frames, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.True(t, frames[0].Result.WasRaised)
	require.Empty(t, frames[0].Result.Codec)
}
