package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")), "a missing file is optional")

	malformed := filepath.Join(dir, "malformed.env")
	require.NoError(t, os.WriteFile(malformed, []byte("RATELIMITER-PORT=4000\n"), 0o600))
	err := loadDotEnv(malformed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), malformed)
}
