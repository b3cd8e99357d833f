package environment

import "github.com/isidentical/isolate/internal/pkg/fingerprint"

// Handle is a materialized environment: an on-disk root plus a runtime
// binary and the ordered search path the bridge should inject into a child
// spawned against it. It is produced by Manager.Materialize and consumed by
// the execution bridge.
type Handle struct {
	Kind        string
	Fingerprint fingerprint.Fingerprint
	// RootPath is the on-disk root of the materialized environment for
	// local backends, or an opaque remote host descriptor for the remote
	// backend.
	RootPath string
	// RuntimeBin is the absolute path to the interpreter binary to spawn
	// as the agent's child process. Empty for the remote backend, whose
	// runtime lives on the peer.
	RuntimeBin string
	// SearchPaths is the ordered list of pure-library directories this
	// handle alone contributes, primary first. Inheritance composition
	// happens in ComposeSearchPath, not here.
	SearchPaths []string
	// SearchPathVar overrides the environment variable name the bridge
	// injects the composed search path under (e.g. "PYTHONPATH"), when a
	// description names one via "search_path_var". Empty means: use the
	// process-wide default from config.Config.SearchPathVar.
	SearchPathVar string
}

// IsRemote reports whether this handle names a peer runtime rather than a
// local one; the bridge must delegate to the remote facade instead of
// spawning a local child.
func (h Handle) IsRemote() bool { return h.Kind == KindRemote }
