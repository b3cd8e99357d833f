package environment

import (
	"context"
	"os"
	"os/exec"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

// BareManager is the bare-runtime backend: it performs no provisioning and
// simply validates and wraps an already-existing system runtime. It exists
// for tests and for use as an inheritance-list entry, and it never touches
// the on-disk cache since there is nothing to materialize.
//
// Description.Config is expected to carry:
//
//	"runtime_bin":     string               // absolute or PATH-resolvable binary name
//	"search_paths":    []string (optional)  // pure-library directories this runtime contributes
//	"search_path_var": string (optional)    // overrides the injected env var name, e.g. "GEM_PATH"
type BareManager struct{}

// NewBareManager constructs the bare-runtime backend.
func NewBareManager() *BareManager { return &BareManager{} }

func (m *BareManager) Kind() string { return KindBare }

func (m *BareManager) Materialize(_ context.Context, description fingerprint.Description, _ ...MaterializeOption) (Handle, error) {
	runtimeBin, _ := description.Config["runtime_bin"].(string)
	if runtimeBin == "" {
		return Handle{}, isolateerrors.NewProvisionFailed("resolving the bare runtime", 0, "", errRequiredKey("runtime_bin"))
	}

	resolved, err := exec.LookPath(runtimeBin)
	if err != nil {
		if _, statErr := os.Stat(runtimeBin); statErr != nil {
			return Handle{}, isolateerrors.NewProvisionFailed("resolving the bare runtime", 0, "", err)
		}
		resolved = runtimeBin
	}

	var searchPaths []string
	if raw, ok := description.Config["search_paths"].([]string); ok {
		searchPaths = raw
	} else if raw, ok := description.Config["search_paths"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				searchPaths = append(searchPaths, s)
			}
		}
	}

	searchPathVar, _ := description.Config["search_path_var"].(string)

	return Handle{
		Kind:          KindBare,
		Fingerprint:   fingerprint.Of(description),
		RootPath:      resolved,
		RuntimeBin:    resolved,
		SearchPaths:   searchPaths,
		SearchPathVar: searchPathVar,
	}, nil
}

func (m *BareManager) Discard(Handle) error {
	// No on-disk state was ever created for this handle.
	return nil
}

type missingKeyError string

func errRequiredKey(key string) error { return missingKeyError(key) }

func (e missingKeyError) Error() string {
	return "missing required config key " + string(e)
}
