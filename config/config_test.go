package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARXX_SINK_BUFFER_BYTES", "8192")
	t.Setenv("TARXX_WALK_UNSORTED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.SinkBufferBytes)
	assert.True(t, cfg.WalkUnsorted)
	assert.Equal(t, Default().LZ4BlockBytes, cfg.LZ4BlockBytes)
}

func TestLoadRejectsInvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARXX_LZ4_BLOCK_BYTES", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"TARXX_SINK_BUFFER_BYTES", "TARXX_LZ4_BLOCK_BYTES", "TARXX_WALK_UNSORTED"} {
		require.NoError(t, os.Unsetenv(name))
	}
}
