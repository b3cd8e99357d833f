package bridge

import (
	"strings"
	"sync"

	"github.com/isidentical/isolate/internal/pkg/logpipe"
)

// stderrTail keeps a bounded ring of the most recent stderr lines observed
// for a session, so a ChildCrashed error can quote a tail of stderr (§7)
// without the bridge needing to buffer the full stream.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newStderrTail(max int) *stderrTail {
	return &stderrTail{max: max}
}

// wrap returns a Sink that both records stderr lines into the tail and
// forwards every record, unmodified, to next.
func (t *stderrTail) wrap(next logpipe.Sink) logpipe.Sink {
	return func(r logpipe.LogRecord) {
		if r.Source == logpipe.SourceUserStderr {
			t.record(r.Message)
		}
		if next != nil {
			next(r)
		}
	}
}

func (t *stderrTail) record(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
