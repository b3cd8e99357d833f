package logpipe

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
)

// Pipe owns the pair of OS pipes used to capture a child's stdout and
// stderr for the duration of one bridge session. The write ends are handed
// to the child as its Stdout/Stderr; the read ends are polled by two
// goroutines that feed lines to a Sink.
type Pipe struct {
	stdoutRead, stdoutWrite *os.File
	stderrRead, stderrWrite *os.File

	pollInterval time.Duration
	done         chan struct{}
	group        *errgroup.Group
}

// New opens the two underlying OS pipes. pollInterval is the cadence at
// which each reader wakes to drain whatever is currently available; it
// must be shorter than the grace passed to Stop.
func New(pollInterval time.Duration) (*Pipe, error) {
	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		return nil, isolateerrors.NewProvisionFailed("opening the stdout pipe", 0, "", err)
	}
	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		stdoutRead.Close()
		stdoutWrite.Close()
		return nil, isolateerrors.NewProvisionFailed("opening the stderr pipe", 0, "", err)
	}
	return &Pipe{
		stdoutRead:   stdoutRead,
		stdoutWrite:  stdoutWrite,
		stderrRead:   stderrRead,
		stderrWrite:  stderrWrite,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
	}, nil
}

// StdoutWriter is the end the child process should inherit as its stdout.
func (p *Pipe) StdoutWriter() *os.File { return p.stdoutWrite }

// StderrWriter is the end the child process should inherit as its stderr.
func (p *Pipe) StderrWriter() *os.File { return p.stderrWrite }

// Start launches the two reader goroutines. The caller must have already
// spawned the child (or be about to, synchronously) since the readers block
// on the pipe the child writes into.
func (p *Pipe) Start(sink Sink) {
	p.group = new(errgroup.Group)
	p.group.Go(func() error {
		return p.read(p.stdoutRead, SourceUserStdout, sink)
	})
	p.group.Go(func() error {
		return p.read(p.stderrRead, SourceUserStderr, sink)
	})
}

// CloseWriters closes the write ends owned by this process. Call this in
// the parent immediately after the child has been spawned (the child holds
// its own duplicated descriptors), so that the child exiting is what
// eventually produces EOF on the read ends during drain.
func (p *Pipe) CloseWriters() {
	p.stdoutWrite.Close()
	p.stderrWrite.Close()
}

// Stop signals both readers to drain their stream to EOF and exit, then
// joins them. Joining is bounded by grace; exceeding it surfaces as
// LogDrainTimeout without being treated as a hard session failure by the
// caller (the bridge only fails the call if the timeout happens before the
// result was received, which it never does when Stop is called after
// RESULT_RECEIVED).
func (p *Pipe) Stop(grace time.Duration) error {
	close(p.done)

	joined := make(chan error, 1)
	go func() { joined <- p.group.Wait() }()

	select {
	case err := <-joined:
		p.stdoutRead.Close()
		p.stderrRead.Close()
		return err
	case <-time.After(grace):
		// The readers are still blocked in drainToEOF waiting for EOF that
		// may never arrive (a grandchild still holding a write end open).
		// Close the read ends to unblock them and let the join goroutine
		// finish in the background instead of leaking it.
		p.stdoutRead.Close()
		p.stderrRead.Close()
		return isolateerrors.NewLogDrainTimeout(context.DeadlineExceeded)
	}
}

// read drains fd in pollInterval-bounded chunks until termination is
// signalled, then reads the remainder to EOF before returning, matching the
// spec's drain-to-EOF requirement for P4.
func (p *Pipe) read(fd *os.File, source Source, sink Sink) error {
	var carry []byte

	for {
		select {
		case <-p.done:
			return p.drainToEOF(fd, source, sink, carry)
		default:
		}

		fd.SetReadDeadline(time.Now().Add(p.pollInterval))
		buf := make([]byte, 4096)
		n, err := fd.Read(buf)
		if n > 0 {
			carry = p.emitLines(append(carry, buf[:n]...), source, sink)
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err == io.EOF {
				if len(carry) > 0 {
					sink(newRecord(source, string(carry)))
				}
				return nil
			}
			return err
		}
	}
}

func (p *Pipe) drainToEOF(fd *os.File, source Source, sink Sink, carry []byte) error {
	fd.SetReadDeadline(time.Time{})
	buf := make([]byte, 4096)
	for {
		n, err := fd.Read(buf)
		if n > 0 {
			carry = p.emitLines(append(carry, buf[:n]...), source, sink)
		}
		if err != nil {
			if len(carry) > 0 {
				sink(newRecord(source, string(carry)))
			}
			return nil
		}
	}
}

// emitLines splits data on '\n', emitting a LogRecord for every complete
// line and returning the remaining partial line as the new carry buffer.
// Trailing whitespace — not only the newline — is stripped from each line,
// preserving the reference runtime's rstrip-based behavior (see
// SPEC_FULL.md §9 Open Questions).
func (p *Pipe) emitLines(data []byte, source Source, sink Sink) []byte {
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return data
		}
		line := data[:idx]
		data = data[idx+1:]
		sink(newRecord(source, string(line)))
	}
}

func newRecord(source Source, line string) LogRecord {
	return LogRecord{
		Level:     LevelInfo,
		Source:    source,
		Message:   rstrip(line),
		Timestamp: time.Now(),
	}
}

func rstrip(s string) string {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			end--
			continue
		}
		break
	}
	return s[:end]
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
