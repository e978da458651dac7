package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, int64(10), cfg.Inventory.LowStockThreshold)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockroom.yml")
	content := []byte(`
system:
  workdir: /tmp/stockroom
web:
  port: 8080
  auth_enable: true
database:
  type: bolt
  path: inv.db
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/stockroom", cfg.System.Workdir)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.True(t, cfg.Web.AuthEnable)
	assert.Equal(t, "bolt", cfg.Database.Type)
	assert.Equal(t, "inv.db", cfg.Database.Path)
	// untouched sections keep defaults
	assert.Equal(t, "development", cfg.Logger.Mode)
	assert.Equal(t, "/tmp/stockroom/data", cfg.GetDataDir())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STOCKROOM_WEB_PORT":            "9000",
		"STOCKROOM_DB_TYPE":             "sqlite",
		"STOCKROOM_WEB_AUTH_ENABLE":     "true",
		"STOCKROOM_LOW_STOCK_THRESHOLD": "3",
		"STOCKROOM_DB_PORT":             "not-a-number",
	}
	cfg := DefaultAppConfig()
	applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Web.AuthEnable)
	assert.Equal(t, int64(3), cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 5432, cfg.Database.Port)
}
