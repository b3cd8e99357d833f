// Package logpipe captures a pair of output streams from a child process,
// converts each complete line to a structured LogRecord, and forwards it to
// a caller-supplied sink. Its lifecycle is scoped to a single bridge
// session: a Pipe is created before the child is spawned and stopped once
// the session's result has been received.
package logpipe

import "time"

// Level mirrors the LogRecord levels of the spec: TRACE, INFO, WARN, ERROR.
type Level int

const (
	LevelTrace Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Source identifies which of the child's two streams (or the bridge
// itself) a LogRecord originated from.
type Source int

const (
	SourceBridge Source = iota
	SourceUserStdout
	SourceUserStderr
	SourceBackend
)

func (s Source) String() string {
	switch s {
	case SourceBridge:
		return "BRIDGE"
	case SourceUserStdout:
		return "USER_STDOUT"
	case SourceUserStderr:
		return "USER_STDERR"
	case SourceBackend:
		return "BACKEND"
	default:
		return "UNKNOWN"
	}
}

// LogRecord is a single line of output, with its origin and the time it was
// observed by the reader (not necessarily the time the child wrote it).
type LogRecord struct {
	Level     Level
	Source    Source
	Message   string
	Timestamp time.Time
}

// Sink receives LogRecords as they are produced. It is invoked by at most
// one reader at a time with respect to a given stream, but the stdout and
// stderr readers may call it concurrently with each other; a Sink that
// mixes both streams is responsible for its own thread-safety.
type Sink func(LogRecord)
