package remote

import (
	"context"

	"github.com/isidentical/isolate/internal/pkg/bridge"
	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
	"github.com/isidentical/isolate/internal/pkg/logpipe"
	"github.com/isidentical/isolate/internal/pkg/remote/rpc"
	"github.com/isidentical/isolate/pkg/codec"
)

// Server implements rpc.Handler: it materializes the requested environment
// locally (§4.2) and runs the execution bridge (§4.4) against it, relaying
// every produced log line as a PartialResult and finishing with exactly
// one IsComplete frame.
type Server struct {
	environments *environment.Registry
	codecs       *codec.Registry
	cfg          *config.Config
}

// NewServer builds a Server backed by environments for materialization and
// codecs for encoding/decoding the callable and its result.
func NewServer(environments *environment.Registry, codecs *codec.Registry, cfg *config.Config) *Server {
	return &Server{environments: environments, codecs: codecs, cfg: cfg}
}

func (s *Server) Handle(ctx context.Context, req *rpc.BoundFunction, send func(*rpc.PartialResult) error) error {
	manager, err := s.environments.Prepare(req.EnvironmentDescription.Kind)
	if err != nil {
		return s.sendInfraFailure(send, err)
	}

	handle, err := manager.Materialize(ctx, fingerprint.Description{
		Kind:   req.EnvironmentDescription.Kind,
		Config: req.EnvironmentDescription.Config,
	})
	if err != nil {
		return s.sendInfraFailure(send, err)
	}

	c, err := s.codecs.Lookup(req.Codec)
	if err != nil {
		return s.sendInfraFailure(send, err)
	}

	decoded, err := c.Decode(req.EncodedCallable)
	if err != nil {
		return s.sendInfraFailure(send, isolateerrors.NewSerializationError("decoding the remote callable", err))
	}

	var sendErr error
	sink := func(r logpipe.LogRecord) {
		if sendErr != nil {
			return
		}
		sendErr = send(&rpc.PartialResult{
			Logs: []rpc.LogEntry{{
				Level:   logLevelName(r.Level),
				Source:  logSourceName(r.Source),
				Message: r.Message,
			}},
		})
	}

	value, runErr := bridge.Run(ctx, handle, decoded,
		bridge.OptCodec(c),
		bridge.OptFromConfig(s.cfg),
		bridge.OptSink(sink),
		bridge.OptIgnoreExceptions(true), // reify here; re-raising is the remote client's decision
	)
	if sendErr != nil {
		return sendErr
	}

	return s.sendTerminal(send, c, value, runErr)
}

func (s *Server) sendTerminal(send func(*rpc.PartialResult) error, c codec.Codec, value any, runErr error) error {
	if runErr != nil {
		return s.sendInfraFailure(send, runErr)
	}

	if ue, ok := value.(*isolateerrors.UserException); ok {
		return send(&rpc.PartialResult{
			IsComplete: true,
			Result:     &rpc.ResultPayload{Payload: ue.Payload, Codec: ue.Codec, WasRaised: true},
		})
	}

	payload, err := c.Encode(value)
	if err != nil {
		return s.sendInfraFailure(send, isolateerrors.NewSerializationError("encoding the remote result", err))
	}
	return send(&rpc.PartialResult{
		IsComplete: true,
		Result:     &rpc.ResultPayload{Payload: payload, Codec: c.Name(), WasRaised: false},
	})
}

// sendInfraFailure reports an infrastructure-level failure (materialize,
// codec lookup, bridge spawn) as the terminal frame, tagged with
// infraResultCodec so the client distinguishes it from a user exception.
func (s *Server) sendInfraFailure(send func(*rpc.PartialResult) error, cause error) error {
	return send(&rpc.PartialResult{
		IsComplete: true,
		Result:     &rpc.ResultPayload{Payload: []byte(cause.Error()), Codec: infraResultCodec, WasRaised: true},
	})
}
