package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  user: fleet
  password: fleet
  name: fleet_track
rabbitmq:
  user: guest
  password: guest
reporter:
  sync_speed: FAST
  routes:
    - vehicle_id: veh-001
      waypoints: ["29.3759,47.9774", "29.3721,47.9850"]
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeTempConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 3000, cfg.Tracker.Port)
	assert.Equal(t, "FAST", cfg.Reporter.SyncSpeed)
	assert.Equal(t, 25.0, cfg.Reporter.MovementThresholdMeters)
	require.Len(t, cfg.Reporter.Routes, 1)
	assert.Equal(t, "veh-001", cfg.Reporter.Routes[0].VehicleID)
}

func TestLoadFromFileRejectsMissingCredentials(t *testing.T) {
	_, err := LoadFromFile(writeTempConfig(t, `
database:
  user: fleet
rabbitmq:
  user: guest
  password: guest
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password is required")
}

func TestLoadFromFileRejectsBadSyncSpeed(t *testing.T) {
	_, err := LoadFromFile(writeTempConfig(t, `
database:
  user: fleet
  password: fleet
  name: fleet_track
rabbitmq:
  user: guest
  password: guest
reporter:
  sync_speed: WARP
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reporter.sync_speed")
}

func TestCurrentReturnsLatestSnapshot(t *testing.T) {
	cfg, err := LoadFromFile(writeTempConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, cfg, Current())
}
