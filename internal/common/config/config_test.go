// internal/common/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: interview-engine
database:
  postgres:
    host: localhost
    port: 5432
    database: interview
    user: engine
  redis:
    address: localhost:6379
speech:
  transcriber_url: http://localhost:7001/transcribe
  synthesizer_url: http://localhost:7002/synthesize
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Engine.SilenceDurationMs)
	assert.Equal(t, 100, cfg.Engine.TickIntervalMs)
	assert.Equal(t, 3, cfg.Engine.MaxQuestionsPerPhase)
	assert.Equal(t, ":8080", cfg.Gateway.Address)
	assert.Equal(t, ":9090", cfg.Gateway.MetricsAddress)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "interview-transcripts", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 300, cfg.Quota.CacheTTLSeconds)
	assert.Equal(t, "/billing", cfg.Quota.BillingURL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_MissingRedisAddress(t *testing.T) {
	content := `
database:
  postgres:
    host: localhost
    database: interview
    user: engine
speech:
  transcriber_url: http://localhost:7001/transcribe
  synthesizer_url: http://localhost:7002/synthesize
`
	_, err := LoadFromFile(writeConfigFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.redis.address")
}

func TestLoadFromFile_SilenceShorterThanTickRejected(t *testing.T) {
	content := minimalConfig + `
engine:
  silence_duration_ms: 50
  tick_interval_ms: 100
`
	_, err := LoadFromFile(writeConfigFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "silence_duration_ms")
}

func TestGetDSN(t *testing.T) {
	pg := PostgresConfig{
		Host: "db", Port: 5432, Database: "interview",
		User: "engine", Password: "secret", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=engine password=secret dbname=interview sslmode=disable",
		pg.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration(2000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
