package environment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/environment"
	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

func TestBareManagerResolvesOnPath(t *testing.T) {
	m := environment.NewBareManager()
	handle, err := m.Materialize(context.Background(), fingerprint.Description{
		Kind:   environment.KindBare,
		Config: map[string]any{"runtime_bin": "sh"},
	})
	require.NoError(t, err)
	require.Equal(t, environment.KindBare, handle.Kind)
	require.NotEmpty(t, handle.RuntimeBin)
	require.False(t, handle.IsRemote())
}

func TestBareManagerMissingRuntimeBin(t *testing.T) {
	m := environment.NewBareManager()
	_, err := m.Materialize(context.Background(), fingerprint.Description{Kind: environment.KindBare})
	require.Error(t, err)
	var provisionFailed *isolateerrors.ProvisionFailed
	require.ErrorAs(t, err, &provisionFailed)
}

func TestBareManagerUnresolvableBinary(t *testing.T) {
	m := environment.NewBareManager()
	_, err := m.Materialize(context.Background(), fingerprint.Description{
		Kind:   environment.KindBare,
		Config: map[string]any{"runtime_bin": "this-binary-does-not-exist-anywhere"},
	})
	require.Error(t, err)
}

func TestBareManagerDiscardIsNoop(t *testing.T) {
	m := environment.NewBareManager()
	require.NoError(t, m.Discard(environment.Handle{RootPath: "/nonexistent"}))
}

func TestBareManagerCarriesSearchPaths(t *testing.T) {
	m := environment.NewBareManager()
	handle, err := m.Materialize(context.Background(), fingerprint.Description{
		Kind: environment.KindBare,
		Config: map[string]any{
			"runtime_bin":  "sh",
			"search_paths": []any{"/opt/lib", "/opt/lib2"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/opt/lib", "/opt/lib2"}, handle.SearchPaths)
}

func TestBareManagerCarriesSearchPathVarOverride(t *testing.T) {
	m := environment.NewBareManager()
	handle, err := m.Materialize(context.Background(), fingerprint.Description{
		Kind: environment.KindBare,
		Config: map[string]any{
			"runtime_bin":     "sh",
			"search_path_var": "GEM_PATH",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "GEM_PATH", handle.SearchPathVar)
}

func TestBareManagerSearchPathVarDefaultsEmpty(t *testing.T) {
	m := environment.NewBareManager()
	handle, err := m.Materialize(context.Background(), fingerprint.Description{
		Kind:   environment.KindBare,
		Config: map[string]any{"runtime_bin": "sh"},
	})
	require.NoError(t, err)
	require.Empty(t, handle.SearchPathVar)
}
