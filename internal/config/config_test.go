package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
app:
  name: conecr
  mode: debug
  addr: ":8080"
  log_level: debug
store:
  backend: memory
redis:
  addr: "localhost:6379"
  cache_ttl: 10m
jwt:
  secret_key: test-secret
  access_expire: 24h
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "conecr", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessExpire)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
