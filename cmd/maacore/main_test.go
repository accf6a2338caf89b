package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/maa-core/internal/callback"
	"github.com/nerrad567/maa-core/internal/event"
)

// writeConfig writes a config with every optional integration disabled.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
app:
  name: maa-test
  data_dir: "` + tmpDir + `"

engine:
  enabled: false
  queue_size: 16

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
` + extra
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("MAACORE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_InvalidDevice(t *testing.T) {
	t.Setenv("MAACORE_CONFIG", writeConfig(t, `
devices:
  - uuid: ""
    address: "127.0.0.1:5555"
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a device missing its uuid")
	}
}

func TestRun_StartupAndShutdown(t *testing.T) {
	// The engine is disabled, so the device is logged as not attached and
	// startup continues.
	t.Setenv("MAACORE_CONFIG", writeConfig(t, `
devices:
  - uuid: dev-1
    address: "127.0.0.1:5555"
`))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("MAACORE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("MAACORE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestLoadConfig_DefaultPathMissing(t *testing.T) {
	// The package directory has no configs/ subdirectory.
	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.App.Name == "" {
		t.Error("loadConfig() returned config without app name")
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("loadConfig() should fail for a missing explicit path")
	}
}

type fakeStatsWriter struct {
	calls chan [2]uint64
}

func (f *fakeStatsWriter) WriteDispatcherStats(published, dropped uint64) {
	select {
	case f.calls <- [2]uint64{published, dropped}:
	default:
	}
}

func TestReportDispatcherStats(t *testing.T) {
	d := callback.NewDispatcher(event.NewBus(), 4, nil)
	if err := d.Handle(10001, `{"taskchain":"Fight","uuid":"d"}`); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	_ = d.Handle(99, `{}`)
	d.Drain()

	w := &fakeStatsWriter{calls: make(chan [2]uint64, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reportDispatcherStats(ctx, d, w, 10*time.Millisecond)

	select {
	case got := <-w.calls:
		if got != [2]uint64{1, 1} {
			t.Errorf("stats = %v, want [1 1]", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stats written")
	}
}
