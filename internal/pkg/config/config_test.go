package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isidentical/isolate/internal/pkg/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("ISOLATE_CACHE_ROOT", "")
	t.Setenv("CONDA_EXE", "")
	t.Setenv("ISOLATE_SEARCH_PATH_VAR", "")
	t.Setenv("ISOLATE_HANDSHAKE_TIMEOUT", "")
	t.Setenv("ISOLATE_AGENT_GRACE", "")
	t.Setenv("ISOLATE_AGENT_KILL_GRACE", "")

	cfg := config.Load()
	require.Equal(t, "conda", cfg.CondaExe)
	require.Equal(t, "PYTHONPATH", cfg.SearchPathVar)
	require.Equal(t, 30*time.Second, cfg.HandshakeTimeout)
	require.Equal(t, 5*time.Second, cfg.AgentGrace)
	require.Equal(t, 2*time.Second, cfg.AgentKillGrace)
	require.NotEmpty(t, cfg.CacheRoot)
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("ISOLATE_CACHE_ROOT", "/tmp/custom-cache")
	t.Setenv("CONDA_EXE", "/opt/conda/bin/conda")
	t.Setenv("ISOLATE_SEARCH_PATH_VAR", "LD_LIBRARY_PATH")
	t.Setenv("ISOLATE_HANDSHAKE_TIMEOUT", "45s")
	t.Setenv("ISOLATE_AGENT_GRACE", "10")

	cfg := config.Load()
	require.Equal(t, "/tmp/custom-cache", cfg.CacheRoot)
	require.Equal(t, "/opt/conda/bin/conda", cfg.CondaExe)
	require.Equal(t, "LD_LIBRARY_PATH", cfg.SearchPathVar)
	require.Equal(t, 45*time.Second, cfg.HandshakeTimeout)
	require.Equal(t, 10*time.Second, cfg.AgentGrace)
}
