package remote_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
	"github.com/isidentical/isolate/internal/pkg/logpipe"
	"github.com/isidentical/isolate/internal/pkg/remote"
	"github.com/isidentical/isolate/internal/pkg/remote/rpc"
	"github.com/isidentical/isolate/pkg/codec"
)

type fakeHandler struct {
	frames []*rpc.PartialResult
}

func (h *fakeHandler) Handle(_ context.Context, _ *rpc.BoundFunction, send func(*rpc.PartialResult) error) error {
	for _, f := range h.frames {
		if err := send(f); err != nil {
			return err
		}
	}
	return nil
}

func dialFakeServer(t *testing.T, h rpc.Handler) (*remote.Facade, func()) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	rpc.RegisterService(server, h)
	go server.Serve(lis)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	return remote.NewFacade(cc), func() {
		cc.Close()
		server.Stop()
	}
}

func TestFacadeRunForwardsLogsAndDecodesResult(t *testing.T) {
	c := codec.Gob{}
	payload, err := c.Encode(42)
	require.NoError(t, err)

	h := &fakeHandler{frames: []*rpc.PartialResult{
		{Logs: []rpc.LogEntry{{Level: "INFO", Source: "USER_STDOUT", Message: "hello"}}},
		{IsComplete: true, Result: &rpc.ResultPayload{Payload: payload, Codec: c.Name()}},
	}}
	facade, closeAll := dialFakeServer(t, h)
	defer closeAll()

	var logged []logpipe.LogRecord
	sink := func(r logpipe.LogRecord) { logged = append(logged, r) }

	codecs := codec.NewRegistry(c)
	result, err := facade.Run(context.Background(), fingerprint.Description{Kind: "bare-runtime"}, c.Name(), nil, codecs, false, sink)
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Len(t, logged, 1)
	require.Equal(t, "hello", logged[0].Message)
}

func TestFacadeRunNoTerminalFrameIsProtocolFault(t *testing.T) {
	h := &fakeHandler{frames: []*rpc.PartialResult{
		{Logs: []rpc.LogEntry{{Level: "INFO", Source: "BRIDGE", Message: "still running"}}},
	}}
	facade, closeAll := dialFakeServer(t, h)
	defer closeAll()

	codecs := codec.NewRegistry(codec.Gob{})
	_, err := facade.Run(context.Background(), fingerprint.Description{Kind: "bare-runtime"}, "gob", nil, codecs, false, nil)
	require.Error(t, err)
	var fault *isolateerrors.ProtocolFault
	require.ErrorAs(t, err, &fault)
	require.Contains(t, fault.Error(), "no terminal frame received")
}

func TestFacadeRunMultipleTerminalFramesIsProtocolFault(t *testing.T) {
	c := codec.Gob{}
	payload, err := c.Encode(1)
	require.NoError(t, err)

	h := &fakeHandler{frames: []*rpc.PartialResult{
		{IsComplete: true, Result: &rpc.ResultPayload{Payload: payload, Codec: c.Name()}},
		{IsComplete: true, Result: &rpc.ResultPayload{Payload: payload, Codec: c.Name()}},
	}}
	facade, closeAll := dialFakeServer(t, h)
	defer closeAll()

	codecs := codec.NewRegistry(c)
	_, err = facade.Run(context.Background(), fingerprint.Description{Kind: "bare-runtime"}, c.Name(), nil, codecs, false, nil)
	require.Error(t, err)
	var fault *isolateerrors.ProtocolFault
	require.ErrorAs(t, err, &fault)
	require.Contains(t, fault.Error(), "multiple terminal frames received")
}

func TestFacadeRunUserExceptionReraisedByDefault(t *testing.T) {
	c := codec.Gob{}
	payload, err := c.Encode("boom")
	require.NoError(t, err)

	h := &fakeHandler{frames: []*rpc.PartialResult{
		{IsComplete: true, Result: &rpc.ResultPayload{Payload: payload, Codec: c.Name(), WasRaised: true}},
	}}
	facade, closeAll := dialFakeServer(t, h)
	defer closeAll()

	codecs := codec.NewRegistry(c)
	_, err = facade.Run(context.Background(), fingerprint.Description{Kind: "bare-runtime"}, c.Name(), nil, codecs, false, nil)
	require.Error(t, err)
	var ue *isolateerrors.UserException
	require.ErrorAs(t, err, &ue)
}
