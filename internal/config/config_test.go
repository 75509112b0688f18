package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
engine:
  self_uin: "${SELF_UIN}"
  recall_cache_size: 50
gateway:
  base_url: http://backend:3000
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("SELF_UIN=12345\n"), 0o600))
	t.Setenv("SELF_UIN", "")
	t.Setenv("DEDUP_BACKEND", "")
	t.Setenv("MAX_CONCURRENCY", "4")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Engine.SelfUin)
	assert.Equal(t, 50, cfg.Engine.RecallCacheSize)
	assert.Equal(t, 4, cfg.Engine.MaxConcurrency)
	assert.Equal(t, "memory", cfg.Engine.DedupBackend)
	assert.Equal(t, 10*time.Second, cfg.Engine.ItemTimeout())
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout())
	assert.Equal(t, uint32(5), cfg.Gateway.BreakerMaxFailures)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadFromRejectsMissingSelfUin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
engine:
  self_uin: "${SELF_UIN}"
gateway:
  base_url: http://backend:3000
`), 0o600))
	t.Setenv("SELF_UIN", "")

	_, err := LoadFrom("local", dir)
	assert.ErrorContains(t, err, "self_uin")
}

func TestLoadFromRejectsUnknownDedupBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
engine:
  self_uin: "1"
  dedup_backend: memcached
gateway:
  base_url: http://backend:3000
`), 0o600))
	t.Setenv("DEDUP_BACKEND", "")

	_, err := LoadFrom("local", dir)
	assert.ErrorContains(t, err, "dedup_backend")
}
