package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
app:
  name: "maa-test"
engine:
  enabled: false
  queue_size: 64
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "maa-test" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "maa-test")
	}
	if cfg.Engine.Enabled {
		t.Error("Engine.Enabled = true, want false")
	}
	if cfg.Engine.QueueSize != 64 {
		t.Errorf("Engine.QueueSize = %d, want 64", cfg.Engine.QueueSize)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	// Defaults survive when the file omits a key.
	if cfg.Engine.DefaultProfile != "General" {
		t.Errorf("Engine.DefaultProfile = %q, want %q", cfg.Engine.DefaultProfile, "General")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
app:
  name: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty app.name, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "zero queue size", mutate: func(c *Config) { c.Engine.QueueSize = 0 }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{
			name: "invalid mqtt port when enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: true,
		},
		{
			name:    "invalid mqtt port when disabled",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: false,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name: "invalid api port when enabled",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: true,
		},
		{
			name: "api tls without cert",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.TLS.Enabled = true
			},
			wantErr: true,
		},
		{
			name:    "api enabled with defaults",
			mutate:  func(c *Config) { c.API.Enabled = true },
			wantErr: false,
		},
		{
			name: "devices valid",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{
					{UUID: "a", Address: "127.0.0.1:5555"},
					{UUID: "b", Address: "127.0.0.1:5557"},
				}
			},
			wantErr: false,
		},
		{
			name:    "device without uuid",
			mutate:  func(c *Config) { c.Devices = []DeviceConfig{{Address: "127.0.0.1:5555"}} },
			wantErr: true,
		},
		{
			name:    "device without address",
			mutate:  func(c *Config) { c.Devices = []DeviceConfig{{UUID: "a"}} },
			wantErr: true,
		},
		{
			name: "duplicate device uuid",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{
					{UUID: "a", Address: "127.0.0.1:5555"},
					{UUID: "a", Address: "127.0.0.1:5557"},
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MAACORE_APP_DATA_DIR", "/srv/maa")
	t.Setenv("MAACORE_ENGINE_ENABLED", "false")
	t.Setenv("MAACORE_ENGINE_RESOURCE_PATH", "/opt/maa/resource")
	t.Setenv("MAACORE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("MAACORE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MAACORE_MQTT_USERNAME", "testuser")
	t.Setenv("MAACORE_MQTT_PASSWORD", "testpass")
	t.Setenv("MAACORE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.App.DataDir != "/srv/maa" {
		t.Errorf("App.DataDir = %q, want %q", cfg.App.DataDir, "/srv/maa")
	}
	if cfg.Engine.Enabled {
		t.Error("Engine.Enabled = true, want false")
	}
	if cfg.Engine.ResourcePath != "/opt/maa/resource" {
		t.Errorf("Engine.ResourcePath = %q, want %q", cfg.Engine.ResourcePath, "/opt/maa/resource")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_InvalidBoolIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("MAACORE_ENGINE_ENABLED", "maybe")

	applyEnvOverrides(cfg)

	if !cfg.Engine.Enabled {
		t.Error("Engine.Enabled changed on unparsable override")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.App.Name == "" {
		t.Error("defaultConfig should have non-empty App.Name")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Engine.QueueSize != 256 {
		t.Errorf("defaultConfig Engine.QueueSize = %d, want 256", cfg.Engine.QueueSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
