package environment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/environment"
)

func TestComposeSearchPathPrimaryWinsOrdering(t *testing.T) {
	primary := environment.Handle{SearchPaths: []string{"/primary/lib"}}
	inherited := []environment.Handle{
		{SearchPaths: []string{"/first/lib"}},
		{SearchPaths: []string{"/second/lib"}},
	}

	got := environment.ComposeSearchPath(primary, inherited)
	require.Equal(t, []string{"/primary/lib", "/first/lib", "/second/lib"}, got)
}

func TestComposeSearchPathNoInheritance(t *testing.T) {
	primary := environment.Handle{SearchPaths: []string{"/only/lib"}}
	require.Equal(t, []string{"/only/lib"}, environment.ComposeSearchPath(primary, nil))
}
