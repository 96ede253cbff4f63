package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
# terminal config
database:
  host: "db.local"
  port: 5432
  user: pos
  password: secret
  database: mixipos

rabbitmq:
  host: mq.local
  port: 5672
  user: guest
  password: guest

remote:
  base_url: "http://data.local:3001"
  timeout_ms: 2500

pos:
  takeaway_table_id: tk
  vat_percent: 8
  snapshot_path: /var/lib/mixipos/orders.json
  snapshot_seconds: 15
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Pass)
	assert.Equal(t, "mq.local", cfg.Rabbit.Host)
	assert.Equal(t, "http://data.local:3001", cfg.Remote.BaseURL)
	assert.Equal(t, 2500, cfg.Remote.TimeoutMS)
	assert.Equal(t, "tk", cfg.POS.TakeawayTableID)
	assert.Equal(t, 8, cfg.POS.VATPercent)
	assert.Equal(t, 15, cfg.POS.SnapshotSeconds)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "remote:\n  base_url: http://x\n"))
	require.NoError(t, err)

	assert.Equal(t, "takeaway", cfg.POS.TakeawayTableID)
	assert.Equal(t, 10, cfg.POS.VATPercent)
	assert.Equal(t, 5000, cfg.Remote.TimeoutMS)
}

func TestEnvOverridesPassword(t *testing.T) {
	t.Setenv("MIXIPOS_DB_PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Pass)
}

func TestValidatePerMode(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pos:\n  vat_percent: 10\n"))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(true, false, false))
	assert.Error(t, cfg.Validate(false, true, false))
	assert.Error(t, cfg.Validate(false, false, true))
	assert.NoError(t, cfg.Validate(false, false, false))
}
