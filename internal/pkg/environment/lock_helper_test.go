package environment

import (
	"testing"

	"github.com/gofrs/flock"
)

func mustLock(t *testing.T, path string) *flock.Flock {
	t.Helper()
	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to acquire external lock on %q: %v", path, err)
	}
	return l
}
