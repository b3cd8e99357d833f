package environment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/config"
	"github.com/isidentical/isolate/internal/pkg/environment"
)

func TestRegistryResolvesAllBuiltinKinds(t *testing.T) {
	r := environment.NewRegistry(&config.Config{CacheRoot: t.TempDir()})

	for _, kind := range []string{
		environment.KindBare,
		environment.KindVirtual,
		environment.KindPackageManager,
		environment.KindRemote,
	} {
		m, err := r.Prepare(kind)
		require.NoError(t, err)
		require.Equal(t, kind, m.Kind())
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	r := environment.NewRegistry(&config.Config{CacheRoot: t.TempDir()})
	_, err := r.Prepare("not-a-real-kind")
	require.Error(t, err)
}
