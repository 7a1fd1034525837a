package flag_test

import (
	"strings"
	"testing"
	"time"

	"github.com/containeroo/tinyflags"
	"github.com/gi8lino/jiramirror/internal/flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGetEnv keeps the developer's environment out of the tests.
func mockGetEnv(string) string {
	return ""
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		cfg, err := flag.ParseArgs("v1.2.3", []string{}, &out, mockGetEnv)
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(cfg.Config, "config.yaml"))
		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, "", cfg.RoutePrefix)
		assert.Equal(t, "text", string(cfg.LogFormat))
		assert.False(t, cfg.RunOnce)
		assert.Zero(t, cfg.SyncInterval)
		assert.Zero(t, cfg.Concurrency)
	})

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()

		args := []string{
			"--config=/etc/jiramirror/config.yaml",
			"--listen-address=127.0.0.1:9090",
			"--route-prefix=mirror/",
			"--run-once",
			"--sync-interval=5m",
			"--sync-concurrency=8",
			"--request-timeout=20s",
			"--user-mapping=alice@example.com:alice",
			"--otel-stdout",
			"--otel-endpoint=http://collector:4318",
			"--debug",
			"--log-format=json",
		}
		var out strings.Builder

		cfg, err := flag.ParseArgs("v1", args, &out, mockGetEnv)
		require.NoError(t, err)
		assert.Equal(t, "/etc/jiramirror/config.yaml", cfg.Config)
		assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
		assert.Equal(t, "/mirror", cfg.RoutePrefix)
		assert.True(t, cfg.RunOnce)
		assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
		assert.Equal(t, 8, cfg.Concurrency)
		assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "alice@example.com:alice", cfg.UserMapping)
		assert.True(t, cfg.OTelStdout)
		assert.Equal(t, "http://collector:4318", cfg.OTelEndpoint)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "json", string(cfg.LogFormat))
	})

	t.Run("environment", func(t *testing.T) {
		t.Parallel()

		env := map[string]string{
			"JIRAMIRROR_SYNC_INTERVAL": "1h",
			"JIRAMIRROR_DEBUG":         "true",
		}
		var out strings.Builder

		cfg, err := flag.ParseArgs("v1", nil, &out, func(k string) string { return env[k] })
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.SyncInterval)
		assert.True(t, cfg.Debug)
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		_, err := flag.ParseArgs("v1", []string{"--log-format=xml"}, &out, mockGetEnv)
		require.Error(t, err)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		_, err := flag.ParseArgs("v1", []string{"--sync-interval=soon"}, &out, mockGetEnv)
		require.Error(t, err)
	})

	t.Run("version", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		_, err := flag.ParseArgs("v9.9.9", []string{"--version"}, &out, mockGetEnv)
		require.Error(t, err)
		assert.True(t, tinyflags.IsVersionRequested(err))
		assert.Contains(t, err.Error(), "v9.9.9")
	})
}
