package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLANTRACK_CONFIG_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, 2026, cfg.Calendar.ReferenceYear)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plantrack.yaml")
	yml := `
transport:
  mode: http
store:
  driver: memory
calendar:
  reference_year: 2027
  holiday_timeout: 3s
backup:
  driver: s3
  s3:
    bucket: backups
    path_style: true
events:
  brokers: [a:9092]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("PLANTRACK_CONFIG_PATH", path)
	t.Setenv("PLANTRACK_SERVER_PORT", "9090")
	t.Setenv("PLANTRACK_KAFKA_BROKERS", "b:9092, c:9092")
	t.Setenv("PLANTRACK_KAFKA_PUBLISH_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, 2027, cfg.Calendar.ReferenceYear)
	require.Equal(t, 3*time.Second, cfg.Calendar.HolidayTimeout)
	require.Equal(t, "backups", cfg.Backup.S3.Bucket)
	require.True(t, cfg.Backup.S3.PathStyle)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, []string{"b:9092", "c:9092"}, cfg.Events.Brokers)
	require.Equal(t, 2*time.Second, cfg.Events.PublishTimeout)
	require.Equal(t, time.Second, cfg.Events.PollInterval)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PLANTRACK_SERVER_PORT", "eighty")
	_, err := Load()
	require.ErrorContains(t, err, "PLANTRACK_SERVER_PORT")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"transport":       func(c *Config) { c.Transport.Mode = "grpc" },
		"store driver":    func(c *Config) { c.Store.Driver = "mysql" },
		"postgres no dsn": func(c *Config) { c.Store.Driver = "postgres" },
		"s3 no bucket":    func(c *Config) { c.Backup.Driver = "s3" },
		"auth no secret":  func(c *Config) { c.Auth.Enabled = true },
		"publish timeout": func(c *Config) { c.Events.PublishTimeout = 0 },
		"holiday url":     func(c *Config) { c.Calendar.HolidayURL = "https://example.com/holidays.json" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, Default().Validate())
}
