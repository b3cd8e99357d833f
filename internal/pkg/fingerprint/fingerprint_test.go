package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

func TestOfIsDeterministic(t *testing.T) {
	d := fingerprint.Description{Kind: "bare-runtime", Config: map[string]any{"runtime_bin": "python3", "search_paths": []any{"a", "b"}}}
	require.Equal(t, fingerprint.Of(d), fingerprint.Of(d))
}

func TestOfIsOrderIndependentOverMapKeys(t *testing.T) {
	a := fingerprint.Description{Kind: "virtual-runtime", Config: map[string]any{"python": "3.11", "packages": []any{"numpy", "scipy"}}}
	b := fingerprint.Description{Kind: "virtual-runtime", Config: map[string]any{"packages": []any{"numpy", "scipy"}, "python": "3.11"}}
	require.Equal(t, fingerprint.Of(a), fingerprint.Of(b))
}

func TestOfDistinguishesDifferentConfigs(t *testing.T) {
	a := fingerprint.Of(fingerprint.Description{Kind: "virtual-runtime", Config: map[string]any{"python": "3.11"}})
	b := fingerprint.Of(fingerprint.Description{Kind: "virtual-runtime", Config: map[string]any{"python": "3.12"}})
	require.NotEqual(t, a, b)
}

func TestOfDistinguishesKind(t *testing.T) {
	a := fingerprint.Of(fingerprint.Description{Kind: "bare-runtime", Config: map[string]any{"x": "1"}})
	b := fingerprint.Of(fingerprint.Description{Kind: "virtual-runtime", Config: map[string]any{"x": "1"}})
	require.NotEqual(t, a, b)
}

func TestStringIsHexEncoded(t *testing.T) {
	fp := fingerprint.Of(fingerprint.Description{Kind: "bare-runtime"})
	require.Len(t, fp.String(), 64)
}

// TestOfRemoteNestsRatherThanConcatenates verifies the REDESIGN FLAG fix:
// a naive "host + inner" string concatenation could make two distinct
// (host, description) pairs collide when characters are shared across the
// boundary. Folding host into a nested canonical structure prevents this.
func TestOfRemoteNestsRatherThanConcatenates(t *testing.T) {
	a := fingerprint.OfRemote("host1", fingerprint.Description{Kind: "2", Config: map[string]any{}})
	b := fingerprint.OfRemote("host", fingerprint.Description{Kind: "12", Config: map[string]any{}})
	require.NotEqual(t, a, b)
}

func TestOfRemoteDistinguishesHosts(t *testing.T) {
	inner := fingerprint.Description{Kind: "bare-runtime", Config: map[string]any{"runtime_bin": "python3"}}
	a := fingerprint.OfRemote("peer-a:50051", inner)
	b := fingerprint.OfRemote("peer-b:50051", inner)
	require.NotEqual(t, a, b)
}

func TestOfRemoteMatchesSameHostAndInner(t *testing.T) {
	inner := fingerprint.Description{Kind: "bare-runtime", Config: map[string]any{"runtime_bin": "python3"}}
	require.Equal(t, fingerprint.OfRemote("peer-a:50051", inner), fingerprint.OfRemote("peer-a:50051", inner))
}
