// Package bridge implements the execution bridge: spawning a child
// interpreter for a materialized environment, carrying one serialized
// callable to it over a local socket, and relaying its stdout/stderr and
// final result back to the caller. One Session serves exactly one call.
package bridge

import (
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/isidentical/isolate/internal/pkg/environment"
	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/isolatelog"
	"github.com/isidentical/isolate/internal/pkg/logpipe"
)

// Run serializes callable with the configured codec, spawns a child
// interpreter for handle, carries the callable across a one-shot local
// socket session, and returns the decoded result. It implements the
// seven-step session protocol: serialize, listen, spawn, accept/exchange,
// close, stop logging, decode.
//
// On a UserException with OptIgnoreExceptions set, the exception is
// returned as the result value (a *isolateerrors.UserException), not as
// err; every other failure, including a non-ignored UserException, is
// returned as err with result == nil.
func Run(ctx context.Context, handle environment.Handle, callable any, opts ...Option) (result any, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sessionID := uuid.NewString()
	log := isolatelog.WithSource(isolatelog.SourceBridge).WithField("session", sessionID)

	if o.Codec == nil {
		return nil, isolateerrors.NewSerializationError("preparing the codec", errNoCodec)
	}

	s := &session{opts: o, handle: handle, log: log, state: stateCreated}
	return s.run(ctx, callable)
}

var errNoCodec = isolateerrors.NewAgentError("no codec was configured for the bridge session")

type session struct {
	opts   Options
	handle environment.Handle
	log    *logrus.Entry
	state  state
	tail   *stderrTail
}

func (s *session) run(ctx context.Context, callable any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = isolateerrors.NewProtocolFault("running the bridge session", panicError(r))
		}
		s.log.Debugf("session finished in state %s", s.state)
	}()

	payload, err := s.opts.Codec.Encode(callable)
	if err != nil {
		return nil, isolateerrors.NewSerializationError("encoding the callable", err)
	}

	listener, address, err := s.listen()
	if err != nil {
		return nil, err
	}
	s.state = stateListening
	defer listener.Close()

	pipe, err := logpipe.New(s.opts.PollInterval)
	if err != nil {
		return nil, err
	}
	s.tail = newStderrTail(16)
	pipe.Start(s.tail.wrap(s.opts.Sink))

	cmd, err := s.spawn(ctx, address, pipe)
	if err != nil {
		pipe.CloseWriters()
		_ = pipe.Stop(s.opts.LogDrainGrace)
		return nil, err
	}
	s.state = stateChildSpawned
	pipe.CloseWriters()

	conn, err := s.accept(ctx, listener)
	if err != nil {
		s.teardownChild(cmd)
		_ = pipe.Stop(s.opts.LogDrainGrace)
		return nil, err
	}
	s.state = stateConnected
	defer conn.Close()

	res, exchangeErr := s.exchange(conn, payload)
	if exchangeErr != nil {
		conn.Close()
		s.teardownChild(cmd)
		if drainErr := pipe.Stop(s.opts.LogDrainGrace); drainErr != nil {
			s.log.Warnf("while draining logs after a failed exchange: %s", drainErr)
		}
		if crashErr, ok := s.asChildCrashed(cmd, exchangeErr); ok {
			return nil, crashErr
		}
		return nil, exchangeErr
	}
	s.state = stateResultReceived

	conn.Close()
	s.teardownChild(cmd)
	if drainErr := pipe.Stop(s.opts.LogDrainGrace); drainErr != nil {
		// Per §7: after the result has been received, a drain timeout is a
		// warning, not a call failure.
		s.log.Warnf("log readers did not join within grace: %s", drainErr)
	}
	s.state = stateClosed

	return s.decode(res)
}

func (s *session) listen() (net.Listener, string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.state = stateSpawnFailed
		return nil, "", isolateerrors.NewSpawnFailed("listener", err)
	}
	return l, l.Addr().String(), nil
}

func (s *session) spawn(ctx context.Context, address string, pipe *logpipe.Pipe) (*exec.Cmd, error) {
	if s.handle.RuntimeBin == "" {
		s.state = stateSpawnFailed
		return nil, isolateerrors.NewSpawnFailed("(empty runtime_bin)", errEmptyRuntimeBin)
	}

	paths := environment.ComposeSearchPath(s.handle, s.opts.Inheritance)
	args := []string{"-m", s.opts.AgentEntrypoint, EncodeAddress(address), s.opts.Codec.Name()}

	searchPathVar := s.opts.SearchPathVar
	if s.handle.SearchPathVar != "" {
		searchPathVar = s.handle.SearchPathVar
	}

	cmd := exec.CommandContext(ctx, s.handle.RuntimeBin, args...)
	cmd.Env = append(os.Environ(), searchPathVar+"="+strings.Join(paths, string(os.PathListSeparator)))
	cmd.Stdout = pipe.StdoutWriter()
	cmd.Stderr = pipe.StderrWriter()
	// Its own process group so teardownChild can reach grandchildren the
	// agent itself spawned, not just the immediate interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		s.state = stateSpawnFailed
		return nil, isolateerrors.NewSpawnFailed(s.handle.RuntimeBin, err)
	}
	return cmd, nil
}

func (s *session) accept(ctx context.Context, listener net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := listener.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			s.state = stateHandshakeFailed
			return nil, isolateerrors.NewHandshakeTimeout(r.err)
		}
		return r.conn, nil
	case <-time.After(s.opts.HandshakeTimeout):
		s.state = stateHandshakeFailed
		return nil, isolateerrors.NewHandshakeTimeout(context.DeadlineExceeded)
	case <-ctx.Done():
		s.state = stateHandshakeFailed
		return nil, ctx.Err()
	}
}

func (s *session) exchange(conn net.Conn, payload []byte) (CallResult, error) {
	req := CallRequest{Payload: payload, Codec: s.opts.Codec.Name()}
	if err := WriteFrame(conn, req); err != nil {
		return CallResult{}, err
	}
	s.state = stateRequestSent

	var res CallResult
	if err := ReadFrame(conn, &res); err != nil {
		if err == io.EOF {
			s.state = stateProtocolFault
			return CallResult{}, isolateerrors.NewProtocolFault("receiving the result frame", errClosedBeforeResult)
		}
		s.state = stateProtocolFault
		return CallResult{}, err
	}
	return res, nil
}

// asChildCrashed reclassifies a protocol-level failure as ChildCrashed
// when the child has in fact already exited, so the caller sees the more
// specific and more useful error.
func (s *session) asChildCrashed(cmd *exec.Cmd, cause error) (*isolateerrors.ChildCrashed, bool) {
	if cmd.ProcessState == nil {
		return nil, false
	}
	s.state = stateChildCrashed
	return isolateerrors.NewChildCrashed(cmd.ProcessState.ExitCode(), s.tail.String(), cause), true
}

func (s *session) decode(res CallResult) (any, error) {
	if res.OK {
		value, err := s.opts.Codec.Decode(res.Payload)
		if err != nil {
			return nil, isolateerrors.NewSerializationError("decoding the result", err)
		}
		return value, nil
	}

	if res.IsUserException {
		cause, decodeErr := s.opts.Codec.Decode(res.Payload)
		if decodeErr != nil {
			return nil, isolateerrors.NewSerializationError("decoding the raised exception", decodeErr)
		}
		ue := isolateerrors.NewUserException(res.Codec, res.Payload, cause)
		if s.opts.IgnoreExceptions {
			return ue, nil
		}
		return nil, ue
	}

	// is_user_exception=false: an infrastructure failure reported by the
	// agent itself, always re-raised regardless of ignore_exceptions (§7).
	message := string(res.Payload)
	if decoded, decodeErr := s.opts.Codec.Decode(res.Payload); decodeErr == nil {
		if text, ok := decoded.(string); ok {
			message = text
		}
	}
	return nil, isolateerrors.NewAgentError(message)
}

// teardownChild waits for the child with a polite grace period, then
// SIGTERM plus a kill grace, then SIGKILL, matching §4.4 step 5. It never
// returns an error: a child that won't die is logged, not fatal to the
// call, since the result has already been exchanged by the time this runs
// on the success path (and on the failure path there is nothing further
// to report).
func (s *session) teardownChild(cmd *exec.Cmd) {
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(s.opts.AgentGrace):
	}

	if cmd.Process != nil {
		if err := unix.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
			s.log.Warnf("while sending SIGTERM to the child's process group: %s", err)
		}
	}

	select {
	case <-done:
		return
	case <-time.After(s.opts.AgentKillGrace):
	}

	if cmd.Process != nil {
		if err := unix.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			s.log.Warnf("while killing the child's unresponsive process group: %s", err)
		}
	}
	<-done
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return isolateerrors.NewAgentError("panic: " + toString(r))
}

func toString(r any) string {
	if s, ok := r.(string); ok {
		return s
	}
	return "non-string panic value"
}

var (
	errEmptyRuntimeBin    = isolateerrors.NewAgentError("handle carries no runtime binary; use the remote facade for remote handles")
	errClosedBeforeResult = isolateerrors.NewAgentError("connection closed before a result frame was received")
)
