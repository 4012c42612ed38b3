package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gozephyr/kvstore"
	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/metrics"
	"github.com/gozephyr/kvstore/policy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, log.LevelInfo, cfg.Level())
	require.Equal(t, 0, cfg.MaxSize)
	require.Equal(t, "lru", cfg.Policy)
	require.Equal(t, time.Minute, cfg.CleanupInterval)
	require.Equal(t, "standard", cfg.Metrics.Exporter)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	require.Empty(t, cfg.Snapshot.Path)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvstore.yaml")
	content := `
log_level: debug
max_size: 100
policy: lfu
cleanup_interval: 30s
snapshot:
  path: /tmp/kv.snap
  compress: true
metrics:
  exporter: prometheus
  name: sessions
http:
  addr: 127.0.0.1:9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := NewViper()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	require.Equal(t, log.LevelDebug, cfg.Level())
	require.Equal(t, 100, cfg.MaxSize)
	require.Equal(t, "lfu", cfg.Policy)
	require.Equal(t, 30*time.Second, cfg.CleanupInterval)
	require.Equal(t, SnapshotConfig{Path: "/tmp/kv.snap", Compress: true}, cfg.Snapshot)
	require.Equal(t, MetricsConfig{Exporter: "prometheus", Name: "sessions"}, cfg.Metrics)
	require.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
}

func TestReadFileMissing(t *testing.T) {
	v := NewViper()
	require.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "absent.yaml")))

	t.Chdir(t.TempDir())
	require.NoError(t, ReadFile(NewViper(), ""))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("KVSTORE_MAX_SIZE", "7")
	t.Setenv("KVSTORE_SNAPSHOT_PATH", "/var/lib/kv.snap")
	t.Setenv("KVSTORE_CLEANUP_INTERVAL", "250ms")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxSize)
	require.Equal(t, "/var/lib/kv.snap", cfg.Snapshot.Path)
	require.Equal(t, 250*time.Millisecond, cfg.CleanupInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		key   string
		value any
		want  string
	}{
		{"log_level", "verbose", "log_level"},
		{"max_size", -1, "max_size"},
		{"policy", "random", "policy"},
		{"cleanup_interval", "-1s", "cleanup_interval"},
		{"metrics.exporter", "statsd", "metrics.exporter"},
		{"http.addr", "", "http.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestStoreOptions(t *testing.T) {
	v := NewViper()
	v.Set("max_size", 2)
	v.Set("policy", "fifo")
	v.Set("cleanup_interval", 0)
	v.Set("metrics.exporter", "prometheus")
	v.Set("metrics.name", "config-test")
	cfg, err := Load(v)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	exporter, err := cfg.NewExporter(reg)
	require.NoError(t, err)
	require.IsType(t, &metrics.PrometheusExporter{}, exporter)

	s, err := kvstore.New[string, string](cfg.StoreOptions(exporter, log.Nop())...)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 2, s.Capacity())
	s.Put("a", "1")
	s.Put("b", "2")
	s.Get("a")
	s.Put("c", "3")
	// FIFO ignores the read of "a"
	require.ElementsMatch(t, []string{"b", "c"}, s.Keys())

	kind, err := policy.ParseKind(cfg.Policy)
	require.NoError(t, err)
	require.Equal(t, policy.KindFIFO, kind)
}
