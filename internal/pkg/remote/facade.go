// Package remote implements the Remote Facade (§4.5): a streaming RPC
// client/server pair that lets one runtime delegate the environment
// manager plus the execution bridge to a peer instance, relaying logs as
// they arrive and a single terminal result frame.
package remote

import (
	"context"
	"io"
	"time"

	"google.golang.org/grpc"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
	"github.com/isidentical/isolate/internal/pkg/logpipe"
	"github.com/isidentical/isolate/internal/pkg/remote/rpc"
	"github.com/isidentical/isolate/pkg/codec"
)

// infraResultCodec marks a ResultPayload whose Payload is a raw,
// non-codec-encoded UTF-8 message describing an infrastructure failure on
// the peer (materialization, codec lookup, bridge spawn) rather than a
// normal value or a user exception from the callable.
const infraResultCodec = ""

// Facade is the client side: it owns a grpc channel to a peer runtime and
// exposes the bridge-shaped Run entrypoint over it. The channel is lazily
// usable from the moment it is constructed (grpc.ClientConn itself lazily
// connects) and MAY be reused across calls; grpc.ClientConn is safe for
// concurrent use by multiple goroutines, and Facade inherits that directly
// rather than adding its own locking (see SPEC_FULL.md §9 Open Questions).
type Facade struct {
	client *rpc.Client
	conn   *grpc.ClientConn
}

// NewFacade wraps an already-dialed connection.
func NewFacade(cc *grpc.ClientConn) *Facade {
	return &Facade{client: rpc.NewClient(cc), conn: cc}
}

// Close tears down the underlying channel.
func (f *Facade) Close() error { return f.conn.Close() }

// Run asks the peer to materialize inner and execute the already-encoded
// callable inside it, forwarding every Log message to sink as it arrives
// and decoding the single terminal result with codecs. It is a protocol
// error for the stream to close without exactly one terminal frame, or to
// carry more than one.
//
// The return contract matches bridge.Run exactly: on a UserException with
// ignoreExceptions set, the exception is returned as the result value
// rather than as err.
func (f *Facade) Run(ctx context.Context, inner fingerprint.Description, codecName string, encodedCallable []byte, codecs *codec.Registry, ignoreExceptions bool, sink logpipe.Sink) (any, error) {
	req := &rpc.BoundFunction{
		EnvironmentDescription: rpc.EnvironmentDescription{Kind: inner.Kind, Config: inner.Config},
		EncodedCallable:        encodedCallable,
		Codec:                  codecName,
	}

	stream, err := f.client.Run(ctx, req)
	if err != nil {
		return nil, isolateerrors.NewChannelFailed(err)
	}

	var terminal *rpc.ResultPayload
	terminalFrames := 0
	for {
		msg, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			return nil, isolateerrors.NewChannelFailed(recvErr)
		}

		for _, entry := range msg.Logs {
			if sink == nil {
				continue
			}
			sink(logpipe.LogRecord{
				Level:     parseLevel(entry.Level),
				Source:    parseSource(entry.Source),
				Message:   entry.Message,
				Timestamp: time.Now(),
			})
		}

		if msg.IsComplete {
			terminalFrames++
			terminal = msg.Result
		}
	}

	switch terminalFrames {
	case 0:
		return nil, isolateerrors.NewProtocolFaultf("no terminal frame received")
	case 1:
		return f.decode(terminal, codecs, ignoreExceptions)
	default:
		return nil, isolateerrors.NewProtocolFaultf("multiple terminal frames received")
	}
}

func (f *Facade) decode(result *rpc.ResultPayload, codecs *codec.Registry, ignoreExceptions bool) (any, error) {
	if result == nil {
		return nil, isolateerrors.NewProtocolFaultf("terminal frame carried no result")
	}

	if !result.WasRaised {
		c, err := codecs.Lookup(result.Codec)
		if err != nil {
			return nil, isolateerrors.NewSerializationError("resolving the remote result codec", err)
		}
		value, err := c.Decode(result.Payload)
		if err != nil {
			return nil, isolateerrors.NewSerializationError("decoding the remote result", err)
		}
		return value, nil
	}

	if result.Codec == infraResultCodec {
		return nil, isolateerrors.NewAgentError(string(result.Payload))
	}

	c, err := codecs.Lookup(result.Codec)
	if err != nil {
		return nil, isolateerrors.NewSerializationError("resolving the remote exception codec", err)
	}
	cause, err := c.Decode(result.Payload)
	if err != nil {
		return nil, isolateerrors.NewSerializationError("decoding the remote exception", err)
	}
	ue := isolateerrors.NewUserException(result.Codec, result.Payload, cause)
	if ignoreExceptions {
		return ue, nil
	}
	return nil, ue
}

func parseLevel(s string) logpipe.Level {
	switch s {
	case "TRACE":
		return logpipe.LevelTrace
	case "WARN":
		return logpipe.LevelWarn
	case "ERROR":
		return logpipe.LevelError
	default:
		return logpipe.LevelInfo
	}
}

func parseSource(s string) logpipe.Source {
	switch s {
	case "USER_STDOUT":
		return logpipe.SourceUserStdout
	case "USER_STDERR":
		return logpipe.SourceUserStderr
	case "BACKEND":
		return logpipe.SourceBackend
	default:
		return logpipe.SourceBridge
	}
}

func logSourceName(s logpipe.Source) string {
	switch s {
	case logpipe.SourceUserStdout:
		return "USER_STDOUT"
	case logpipe.SourceUserStderr:
		return "USER_STDERR"
	case logpipe.SourceBackend:
		return "BACKEND"
	default:
		return "BRIDGE"
	}
}

func logLevelName(l logpipe.Level) string {
	switch l {
	case logpipe.LevelTrace:
		return "TRACE"
	case logpipe.LevelWarn:
		return "WARN"
	case logpipe.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
