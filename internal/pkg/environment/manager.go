// Package environment implements the Environment Manager: one backend
// variant per kind of runtime (bare, virtual, package-manager, remote),
// all sharing a single cached-provisioning template that enforces the
// fingerprint-keyed, atomic-rename-then-marker-file cache layout described
// in the spec.
package environment

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
	"github.com/isidentical/isolate/internal/pkg/isolatelog"
)

// Backend kind identifiers, used both as the registry key and as the first
// path segment under the cache root.
const (
	KindBare           = "bare-runtime"
	KindVirtual        = "virtual-runtime"
	KindPackageManager = "package-manager-runtime"
	KindRemote         = "remote"
)

// MaterializeOptions configures a single Materialize call.
type MaterializeOptions struct {
	// ExistOK controls whether an already-materialized slot is returned
	// as success (true) or as AlreadyExists (false).
	ExistOK bool
	// LockTimeout bounds how long to wait for the per-fingerprint
	// advisory lock before failing with Busy.
	LockTimeout time.Duration
}

// MaterializeOption is a functional option over MaterializeOptions,
// matching the Opt-prefixed functional-option idiom used across the launch
// configuration of the reference runtime.
type MaterializeOption func(*MaterializeOptions)

// OptExistOK controls whether materialize treats an existing cache slot as
// success rather than AlreadyExists.
func OptExistOK(b bool) MaterializeOption {
	return func(o *MaterializeOptions) { o.ExistOK = b }
}

// OptLockTimeout overrides the default advisory-lock wait.
func OptLockTimeout(d time.Duration) MaterializeOption {
	return func(o *MaterializeOptions) { o.LockTimeout = d }
}

func defaultMaterializeOptions() MaterializeOptions {
	return MaterializeOptions{ExistOK: true, LockTimeout: 30 * time.Second}
}

// Manager is the per-kind backend contract: materialize an environment
// description into a Handle, and discard a previously materialized one.
type Manager interface {
	// Kind returns the backend variant identifier this Manager serves.
	Kind() string
	// Materialize computes the fingerprint of description and returns a
	// Handle for it, provisioning on disk if necessary.
	Materialize(ctx context.Context, description fingerprint.Description, opts ...MaterializeOption) (Handle, error)
	// Discard removes the on-disk root tree of a previously materialized
	// Handle. Idempotent.
	Discard(handle Handle) error
}

// Provisioner is the backend-specific half of materialization: given an
// empty scratch directory, populate it with a runtime and return the
// runtime binary path plus the search paths it contributes. Provision must
// not touch anything outside scratchDir; the cached template handles
// locking, atomic rename, and marker-file placement around it.
type Provisioner interface {
	Provision(ctx context.Context, scratchDir string, description fingerprint.Description) (runtimeBin string, searchPaths []string, err error)
}

const readyMarker = ".ready"

// cachedManager is the shared materialize/discard template behind every
// provisioning backend (virtual, package-manager); the bare backend does
// not use it, since it has nothing to provision. It owns the
// cache-root layout, the per-fingerprint file lock, and the in-process
// singleflight collapse of concurrent materialize calls for the same slot
// (I3); the Provisioner supplies only the backend-specific work that
// happens inside an already-isolated scratch directory.
type cachedManager struct {
	kind        string
	cacheRoot   string
	provisioner Provisioner
	inflight    singleflight.Group
}

func newCachedManager(kind, cacheRoot string, p Provisioner) *cachedManager {
	return &cachedManager{kind: kind, cacheRoot: cacheRoot, provisioner: p}
}

func (m *cachedManager) Kind() string { return m.kind }

func (m *cachedManager) kindRoot() string {
	return filepath.Join(m.cacheRoot, m.kind)
}

func (m *cachedManager) Materialize(ctx context.Context, description fingerprint.Description, opts ...MaterializeOption) (Handle, error) {
	options := defaultMaterializeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	fp := fingerprint.Of(description)
	path := filepath.Join(m.kindRoot(), fp.String())

	if handle, ok := m.readyHandle(fp, path, description); ok {
		if !options.ExistOK {
			return Handle{}, isolateerrors.NewAlreadyExists(path)
		}
		return handle, nil
	}

	// Collapse concurrent materialize calls for this fingerprint within
	// this process onto a single provisioning attempt (I3). Cross-process
	// safety is still advisory and handled by the file lock below.
	result, err, _ := m.inflight.Do(fp.String(), func() (any, error) {
		return m.materializeLocked(ctx, fp, path, description, options)
	})
	if err != nil {
		return Handle{}, err
	}
	return result.(Handle), nil
}

func (m *cachedManager) materializeLocked(ctx context.Context, fp fingerprint.Fingerprint, path string, description fingerprint.Description, options MaterializeOptions) (Handle, error) {
	if err := os.MkdirAll(m.kindRoot(), 0o755); err != nil {
		return Handle{}, isolateerrors.NewProvisionFailed("creating the cache root", 0, "", err)
	}

	lockPath := filepath.Join(m.kindRoot(), ".lock-"+fp.String())
	lock := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, options.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		return Handle{}, isolateerrors.NewBusy(lockPath, err)
	}
	defer lock.Unlock()

	// Re-check now that we hold the lock: another process may have
	// finished provisioning while we were waiting.
	if handle, ok := m.readyHandle(fp, path, description); ok {
		if !options.ExistOK {
			return Handle{}, isolateerrors.NewAlreadyExists(path)
		}
		return handle, nil
	}

	scratchDir := filepath.Join(m.kindRoot(), ".scratch-"+fp.String()+"-"+pidSuffix())
	if err := os.RemoveAll(scratchDir); err != nil {
		return Handle{}, isolateerrors.NewProvisionFailed("clearing a stale scratch directory", 0, "", err)
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return Handle{}, isolateerrors.NewProvisionFailed("creating the scratch directory", 0, "", err)
	}

	handle, provisionErr := m.provisionInto(ctx, scratchDir, path, fp, description)
	if provisionErr != nil {
		// Unconditional cleanup on any failure, including a panic
		// recovered by provisionInto, so that no partial state survives
		// (I2, P3).
		if rmErr := os.RemoveAll(scratchDir); rmErr != nil {
			isolatelog.Warningf("while removing scratch directory %q after a failed provision: %s", scratchDir, rmErr)
		}
		return Handle{}, provisionErr
	}

	return handle, nil
}

func (m *cachedManager) provisionInto(ctx context.Context, scratchDir, finalPath string, fp fingerprint.Fingerprint, description fingerprint.Description) (handle Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = isolateerrors.NewProvisionFailed("provisioning the environment", 0, "", pkgerrors.Errorf("panic: %v", r))
		}
	}()

	runtimeBin, searchPaths, provisionErr := m.provisioner.Provision(ctx, scratchDir, description)
	if provisionErr != nil {
		return Handle{}, provisionErr
	}

	if err := os.Rename(scratchDir, finalPath); err != nil {
		return Handle{}, isolateerrors.NewProvisionFailed("moving the provisioned environment into place", 0, "", err)
	}

	// The marker file is always the last write of provisioning: its
	// presence is the sole signal that finalPath holds a complete
	// environment (I2).
	markerPath := filepath.Join(finalPath, readyMarker)
	if err := os.WriteFile(markerPath, []byte{}, 0o644); err != nil {
		// The scratch directory is already renamed away; remove the
		// marker-less slot itself so no partial state survives (I2, P3).
		_ = os.RemoveAll(finalPath)
		return Handle{}, isolateerrors.NewProvisionFailed("writing the ready marker", 0, "", err)
	}

	resolvedBin := runtimeBin
	if resolvedBin != "" {
		resolvedBin = filepath.Join(finalPath, relTo(scratchDir, runtimeBin))
	}
	resolvedPaths := make([]string, len(searchPaths))
	for i, p := range searchPaths {
		resolvedPaths[i] = filepath.Join(finalPath, relTo(scratchDir, p))
	}

	searchPathVar, _ := description.Config["search_path_var"].(string)

	return Handle{
		Kind:          m.kind,
		Fingerprint:   fp,
		RootPath:      finalPath,
		RuntimeBin:    resolvedBin,
		SearchPaths:   resolvedPaths,
		SearchPathVar: searchPathVar,
	}, nil
}

func (m *cachedManager) readyHandle(fp fingerprint.Fingerprint, path string, description fingerprint.Description) (Handle, bool) {
	if _, err := os.Stat(filepath.Join(path, readyMarker)); err != nil {
		return Handle{}, false
	}
	searchPathVar, _ := description.Config["search_path_var"].(string)

	// A ready environment's shape (runtime binary, search paths) is
	// backend-specific but deterministic from its root; backends implement
	// readyDescriber to avoid re-deriving it from scratch here.
	describer, ok := m.provisioner.(readyDescriber)
	if !ok {
		return Handle{Kind: m.kind, Fingerprint: fp, RootPath: path, SearchPathVar: searchPathVar}, true
	}
	runtimeBin, searchPaths := describer.DescribeReady(path)
	return Handle{
		Kind:          m.kind,
		Fingerprint:   fp,
		RootPath:      path,
		RuntimeBin:    runtimeBin,
		SearchPaths:   searchPaths,
		SearchPathVar: searchPathVar,
	}, true
}

// readyDescriber lets a Provisioner tell the cached template how to
// reconstruct a Handle's runtime/search-path shape from an already-ready
// root, without re-running Provision.
type readyDescriber interface {
	DescribeReady(root string) (runtimeBin string, searchPaths []string)
}

func (m *cachedManager) Discard(handle Handle) error {
	if handle.RootPath == "" {
		return nil
	}
	return os.RemoveAll(handle.RootPath)
}

func relTo(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.Base(target)
	}
	return rel
}

func pidSuffix() string {
	return strconv.Itoa(os.Getpid())
}
