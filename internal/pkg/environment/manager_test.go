package environment

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

// countingProvisioner records how many times Provision actually ran, so
// tests can assert the singleflight/lock collapse behavior (I3) without
// touching a real interpreter.
type countingProvisioner struct {
	calls atomic.Int32
	fail  bool
}

func (p *countingProvisioner) Provision(_ context.Context, scratchDir string, _ fingerprint.Description) (string, []string, error) {
	p.calls.Add(1)
	if p.fail {
		return "", nil, isolateerrors.NewProvisionFailed("provisioning", 1, "boom", nil)
	}
	binPath := filepath.Join(scratchDir, "bin")
	if err := os.MkdirAll(binPath, 0o755); err != nil {
		return "", nil, err
	}
	runtimeBin := filepath.Join(binPath, "runtime")
	if err := os.WriteFile(runtimeBin, []byte{}, 0o755); err != nil {
		return "", nil, err
	}
	return runtimeBin, []string{scratchDir}, nil
}

func TestCachedManagerMaterializeIsIdempotent(t *testing.T) {
	root := t.TempDir()
	p := &countingProvisioner{}
	m := newCachedManager("test-kind", root, p)

	description := fingerprint.Description{Kind: "test-kind", Config: map[string]any{"x": "1"}}

	first, err := m.Materialize(context.Background(), description)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(first.RootPath, readyMarker))

	second, err := m.Materialize(context.Background(), description)
	require.NoError(t, err)
	require.Equal(t, first.RootPath, second.RootPath)
	require.EqualValues(t, 1, p.calls.Load())
}

func TestCachedManagerAlreadyExistsWhenNotExistOK(t *testing.T) {
	root := t.TempDir()
	p := &countingProvisioner{}
	m := newCachedManager("test-kind", root, p)
	description := fingerprint.Description{Kind: "test-kind"}

	_, err := m.Materialize(context.Background(), description)
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), description, OptExistOK(false))
	require.Error(t, err)
	var alreadyExists *isolateerrors.AlreadyExists
	require.ErrorAs(t, err, &alreadyExists)
}

func TestCachedManagerCleansUpScratchOnProvisionFailure(t *testing.T) {
	root := t.TempDir()
	p := &countingProvisioner{fail: true}
	m := newCachedManager("test-kind", root, p)
	description := fingerprint.Description{Kind: "test-kind"}

	_, err := m.Materialize(context.Background(), description)
	require.Error(t, err)
	var provisionFailed *isolateerrors.ProvisionFailed
	require.ErrorAs(t, err, &provisionFailed)

	entries, err := os.ReadDir(m.kindRoot())
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".scratch-")
	}
}

func TestCachedManagerBusyWhenLockHeld(t *testing.T) {
	root := t.TempDir()
	p := &countingProvisioner{}
	m := newCachedManager("test-kind", root, p)
	description := fingerprint.Description{Kind: "test-kind"}

	require.NoError(t, os.MkdirAll(m.kindRoot(), 0o755))
	fp := fingerprint.Of(description)
	lockPath := filepath.Join(m.kindRoot(), ".lock-"+fp.String())

	externalLock := mustLock(t, lockPath)
	defer externalLock.Unlock()

	_, err := m.Materialize(context.Background(), description, OptLockTimeout(50*time.Millisecond))
	require.Error(t, err)
	var busy *isolateerrors.Busy
	require.ErrorAs(t, err, &busy)
}

func TestCachedManagerDiscardRemovesRoot(t *testing.T) {
	root := t.TempDir()
	p := &countingProvisioner{}
	m := newCachedManager("test-kind", root, p)
	description := fingerprint.Description{Kind: "test-kind"}

	handle, err := m.Materialize(context.Background(), description)
	require.NoError(t, err)
	require.NoError(t, m.Discard(handle))
	_, statErr := os.Stat(handle.RootPath)
	require.True(t, os.IsNotExist(statErr))
}
