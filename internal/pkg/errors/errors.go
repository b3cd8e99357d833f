// Package errors defines the first-class error taxonomy shared by the
// environment manager, the execution bridge, and the remote facade. Each
// variant is a distinct exported type so that callers can discriminate with
// errors.As instead of matching on strings, while still printing the
// human-readable "while X" sentences the bridge protocol requires.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// AlreadyExists is returned by materialize when a cache slot is already
// present and the caller asked for exist_ok=false.
type AlreadyExists struct {
	Path  string
	cause error
}

func NewAlreadyExists(path string) *AlreadyExists {
	return &AlreadyExists{Path: path, cause: pkgerrors.Errorf("environment already exists at %q", path)}
}

func (e *AlreadyExists) Error() string { return e.cause.Error() }
func (e *AlreadyExists) Unwrap() error { return e.cause }

// Busy is returned when the per-fingerprint advisory lock could not be
// acquired within the configured timeout.
type Busy struct {
	Path  string
	cause error
}

func NewBusy(path string, cause error) *Busy {
	return &Busy{Path: path, cause: pkgerrors.Wrapf(cause, "timed out waiting for lock on %q", path)}
}

func (e *Busy) Error() string { return e.cause.Error() }
func (e *Busy) Unwrap() error { return e.cause }

// ProvisionFailed wraps a provisioner subprocess failure or an I/O error
// encountered while materializing an environment.
type ProvisionFailed struct {
	Stderr   string
	ExitCode int
	cause    error
}

func NewProvisionFailed(phase string, exitCode int, stderr string, cause error) *ProvisionFailed {
	msg := fmt.Sprintf("while %s", phase)
	if exitCode != 0 {
		msg = fmt.Sprintf("%s (exit status %d)", msg, exitCode)
	}
	return &ProvisionFailed{
		Stderr:   stderr,
		ExitCode: exitCode,
		cause:    pkgerrors.Wrap(cause, msg),
	}
}

func (e *ProvisionFailed) Error() string {
	if e.Stderr == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %s", e.cause.Error(), tail(e.Stderr, 4))
}

func (e *ProvisionFailed) Unwrap() error { return e.cause }

// SerializationError surfaces a codec failure from either side of the
// bridge, annotated with the phase in which it happened.
type SerializationError struct {
	Phase string
	cause error
}

func NewSerializationError(phase string, cause error) *SerializationError {
	return &SerializationError{Phase: phase, cause: pkgerrors.Wrapf(cause, "while %s", phase)}
}

func (e *SerializationError) Error() string { return e.cause.Error() }
func (e *SerializationError) Unwrap() error { return e.cause }

// SpawnFailed indicates the child process could not be launched.
type SpawnFailed struct {
	RuntimeBin string
	cause      error
}

func NewSpawnFailed(runtimeBin string, cause error) *SpawnFailed {
	return &SpawnFailed{RuntimeBin: runtimeBin, cause: pkgerrors.Wrapf(cause, "while spawning %q", runtimeBin)}
}

func (e *SpawnFailed) Error() string { return e.cause.Error() }
func (e *SpawnFailed) Unwrap() error { return e.cause }

// HandshakeTimeout indicates no child connection was accepted within grace.
type HandshakeTimeout struct{ cause error }

func NewHandshakeTimeout(cause error) *HandshakeTimeout {
	return &HandshakeTimeout{cause: pkgerrors.Wrap(cause, "while waiting for the child to connect")}
}

func (e *HandshakeTimeout) Error() string { return e.cause.Error() }
func (e *HandshakeTimeout) Unwrap() error { return e.cause }

// ProtocolFault covers any violation of the one-request/one-result framing
// contract: wrong frame counts, decode failures, unexpected closes.
type ProtocolFault struct {
	Reason string
	cause  error
}

func NewProtocolFault(reason string, cause error) *ProtocolFault {
	return &ProtocolFault{Reason: reason, cause: pkgerrors.Wrap(cause, reason)}
}

// NewProtocolFaultf builds a ProtocolFault whose message is exactly the
// formatted reason, with no wrapped cause — for faults the spec requires
// to carry one precise, self-contained sentence (e.g. "no terminal frame
// received") rather than a "while X: Y" wrapping of some lower-level error.
func NewProtocolFaultf(format string, args ...any) *ProtocolFault {
	msg := fmt.Sprintf(format, args...)
	return &ProtocolFault{Reason: msg, cause: pkgerrors.New(msg)}
}

func (e *ProtocolFault) Error() string { return e.cause.Error() }
func (e *ProtocolFault) Unwrap() error { return e.cause }

// ChildCrashed indicates the agent process exited before sending a result.
type ChildCrashed struct {
	ExitCode int
	Stderr   string
	cause    error
}

func NewChildCrashed(exitCode int, stderr string, cause error) *ChildCrashed {
	return &ChildCrashed{
		ExitCode: exitCode,
		Stderr:   stderr,
		cause:    pkgerrors.Wrapf(cause, "child exited with status %d before sending a result", exitCode),
	}
}

func (e *ChildCrashed) Error() string {
	if e.Stderr == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %s", e.cause.Error(), tail(e.Stderr, 4))
}

func (e *ChildCrashed) Unwrap() error { return e.cause }

// UserException reifies a caught exception raised by the user's callable,
// when the bridge is configured to return it as a value rather than
// re-raise it. Cause holds the decoded exception value itself.
type UserException struct {
	Payload []byte
	Codec   string
	Cause   any
	cause   error
}

func NewUserException(codec string, payload []byte, cause any) *UserException {
	return &UserException{
		Payload: payload,
		Codec:   codec,
		Cause:   cause,
		cause:   pkgerrors.New("the callable raised an exception"),
	}
}

func (e *UserException) Error() string { return e.cause.Error() }
func (e *UserException) Unwrap() error { return e.cause }

// AgentError wraps an infrastructure-level failure reported by the agent's
// top-level catch (is_user_exception=false): a bridge/codec problem on the
// child side rather than a normal exception from the callable.
type AgentError struct {
	Message string
	cause   error
}

func NewAgentError(message string) *AgentError {
	return &AgentError{Message: message, cause: pkgerrors.Errorf("the agent reported an error: %s", message)}
}

func (e *AgentError) Error() string { return e.cause.Error() }
func (e *AgentError) Unwrap() error { return e.cause }

// ChannelFailed surfaces a mid-stream failure of the remote facade's
// transport channel.
type ChannelFailed struct{ cause error }

func NewChannelFailed(cause error) *ChannelFailed {
	return &ChannelFailed{cause: pkgerrors.Wrap(cause, "remote channel failed")}
}

func (e *ChannelFailed) Error() string { return e.cause.Error() }
func (e *ChannelFailed) Unwrap() error { return e.cause }

// LogDrainTimeout indicates the Log Pipe readers did not join within the
// drain grace period. logpipe.Pipe.Stop returns it on every path where the
// join times out. After the result has been received the bridge logs it as
// a warning and the call succeeds; on the paths that fail before a result
// the bridge discards or logs it and returns the session's own error. It is
// never wrapped as a ProtocolFault.
type LogDrainTimeout struct{ cause error }

func NewLogDrainTimeout(cause error) *LogDrainTimeout {
	return &LogDrainTimeout{cause: pkgerrors.Wrap(cause, "log readers did not drain within the grace period")}
}

func (e *LogDrainTimeout) Error() string { return e.cause.Error() }
func (e *LogDrainTimeout) Unwrap() error { return e.cause }

func tail(s string, lines int) string {
	n := 0
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			n++
			if n == lines {
				return s[i+1:]
			}
		}
	}
	return s
}
