package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iammusic/submissions/internal/errs"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabaseURL, EnvHTTPAddr, EnvStore, EnvDedupWindow, EnvRateLimit, EnvKafkaBrokers, EnvKafkaTopic} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "submissions.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.ErrorIs(t, err, errs.ErrMissingCredential)
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost:5432/log")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.Store.Driver)
	require.Equal(t, "postgres://u:p@localhost:5432/log", cfg.Database.DSN)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "/api/save-text", cfg.HTTP.Path)
	require.Equal(t, 30*time.Second, cfg.Dedup.Window)
	require.Equal(t, 10*time.Second, cfg.Store.Timeout)
	require.False(t, cfg.RateLimit.Enabled)
	require.Equal(t, 5*time.Second, cfg.RateLimit.Pause)
	require.False(t, cfg.Kafka.Enabled())
}

func TestLoad_MemoryStoreNeedsNoCredential(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStore, DriverMemory)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
http:
  addr: ":9000"
store:
  driver: sqlite
database:
  dsn: /tmp/log.db
dedup:
  window: 10m
rate_limit:
  enabled: true
  pause: 3s
kafka:
  brokers: ["k1:9092"]
  topic: submissions
`)
	t.Setenv(EnvDedupWindow, "45s")
	t.Setenv(EnvKafkaBrokers, "a:9092, b:9092")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTP.Addr)
	require.Equal(t, DriverSQLite, cfg.Store.Driver)
	require.Equal(t, 45*time.Second, cfg.Dedup.Window)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, LimiterMemory, cfg.RateLimit.Backend)
	require.Equal(t, 3*time.Second, cfg.RateLimit.Pause)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "submissions", cfg.Kafka.Topic)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]struct {
		file string
		env  map[string]string
	}{
		"missing file":       {file: "/nonexistent/submissions.yml"},
		"bad yaml":           {file: "store: [", env: nil},
		"unknown driver":     {env: map[string]string{EnvStore: "mongodb"}},
		"bad window":         {env: map[string]string{EnvStore: DriverMemory, EnvDedupWindow: "soon"}},
		"bad bool":           {env: map[string]string{EnvStore: DriverMemory, EnvRateLimit: "maybe"}},
		"pg limiter no pg":   {file: "store: {driver: memory}\nrate_limit: {enabled: true, backend: postgres}\n"},
		"unknown limiter":    {file: "store: {driver: memory}\nrate_limit: {enabled: true, backend: redis}\n"},
		"relative http path": {file: "store: {driver: memory}\nhttp: {path: api}\n"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			path := c.file
			if path != "" && path[0] != '/' {
				path = writeFile(t, c.file)
			}
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
