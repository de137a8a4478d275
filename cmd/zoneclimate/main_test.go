package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("ZONECLIMATE_CONFIG")
	defer os.Setenv("ZONECLIMATE_CONFIG", originalEnv)

	os.Setenv("ZONECLIMATE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingZonesFile verifies run fails when the zones file does not exist.
func TestRun_MissingZonesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 8091
  timeouts:
    read: 30
    write: 60
    idle: 120

engine:
  zones_file: "` + filepath.Join(tmpDir, "missing-zones.yaml") + `"
  update_interval: 30
  debounce_seconds: 2
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ZONECLIMATE_CONFIG")
	defer os.Setenv("ZONECLIMATE_CONFIG", originalEnv)
	os.Setenv("ZONECLIMATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with a missing zones file")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("ZONECLIMATE_CONFIG")
	defer os.Setenv("ZONECLIMATE_CONFIG", originalEnv)

	os.Unsetenv("ZONECLIMATE_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("ZONECLIMATE_CONFIG")
	defer os.Setenv("ZONECLIMATE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("ZONECLIMATE_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
