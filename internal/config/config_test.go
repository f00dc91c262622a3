package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROUTEGRAPH_ENV", "ROUTEGRAPH_DB", "LOG_LEVEL",
		"GRAPH_CACHE_MAX_ENTRIES", "GRAPH_CACHE_TTL",
		"ENUMERATOR_MAX_STEPS", "ENUMERATOR_MAX_DEPTH",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, "routegraph.db", DatabasePath())
	assert.Equal(t, "info", LogLevel())
	assert.Equal(t, 1024, GraphCacheMaxEntries())
	assert.Equal(t, 5*time.Minute, GraphCacheTTL())
	assert.Equal(t, 100_000, EnumeratorMaxSteps())
	assert.Equal(t, 32, EnumeratorMaxDepth())
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTEGRAPH_DB", "/var/lib/routes.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GRAPH_CACHE_MAX_ENTRIES", "10")
	t.Setenv("GRAPH_CACHE_TTL", "90s")
	t.Setenv("ENUMERATOR_MAX_STEPS", "500")
	t.Setenv("ENUMERATOR_MAX_DEPTH", "4")

	assert.Equal(t, "/var/lib/routes.db", DatabasePath())
	assert.Equal(t, "debug", LogLevel())
	assert.Equal(t, 10, GraphCacheMaxEntries())
	assert.Equal(t, 90*time.Second, GraphCacheTTL())
	assert.Equal(t, 500, EnumeratorMaxSteps())
	assert.Equal(t, 4, EnumeratorMaxDepth())
}

func TestInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPH_CACHE_MAX_ENTRIES", "-1")
	t.Setenv("GRAPH_CACHE_TTL", "soon")
	t.Setenv("ENUMERATOR_MAX_STEPS", "many")

	assert.Equal(t, 1024, GraphCacheMaxEntries())
	assert.Equal(t, 5*time.Minute, GraphCacheTTL())
	assert.Equal(t, 100_000, EnumeratorMaxSteps())
}

func TestGraphCacheTTLZeroDisablesExpiry(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPH_CACHE_TTL", "0")
	assert.Equal(t, time.Duration(0), GraphCacheTTL())
}

func TestLoadReadsEnvAndSecret(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ENUMERATOR_MAX_DEPTH=8\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("ROUTEGRAPH_DB=secret.db\n"), 0o600))

	// godotenv does not override variables that are already set, and
	// clearEnv set them to "", so unset them for this test.
	os.Unsetenv("ENUMERATOR_MAX_DEPTH")
	os.Unsetenv("ROUTEGRAPH_DB")
	t.Cleanup(func() {
		os.Unsetenv("ENUMERATOR_MAX_DEPTH")
		os.Unsetenv("ROUTEGRAPH_DB")
	})
	t.Setenv("ROUTEGRAPH_ENV", envFile)

	require.NoError(t, Load())
	assert.Equal(t, 8, EnumeratorMaxDepth())
	assert.Equal(t, "secret.db", DatabasePath())
}

func TestLoadMissingFiles(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTEGRAPH_ENV", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, Load())
}

func TestNewLogger(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	logger, err := NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	t.Setenv("LOG_LEVEL", "chatty")
	logger, err = NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}
