package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRun_InvalidConfigPath(t *testing.T) {
	originalEnv := os.Getenv("DOMBUS_CONFIG")
	defer os.Setenv("DOMBUS_CONFIG", originalEnv)
	os.Setenv("DOMBUS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the config file does not exist")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// No buses configured: config.Validate rejects this.
	configContent := `
data_dir: ` + filepath.Join(tmpDir, "data") + `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
  topic: dombus
  topic_config: homeassistant
telnet:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("DOMBUS_CONFIG")
	defer os.Setenv("DOMBUS_CONFIG", originalEnv)
	os.Setenv("DOMBUS_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail validation with no buses configured")
	}
}

func TestRun_UnreachableBroker(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
data_dir: ` + filepath.Join(tmpDir, "data") + `
buses:
  1:
    serial_port: /dev/does-not-exist
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
  topic: dombus
  topic_config: homeassistant
telnet:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("DOMBUS_CONFIG")
	defer os.Setenv("DOMBUS_CONFIG", originalEnv)
	os.Setenv("DOMBUS_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the MQTT broker is unreachable")
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("DOMBUS_CONFIG")
	defer os.Setenv("DOMBUS_CONFIG", originalEnv)
	os.Unsetenv("DOMBUS_CONFIG")

	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("DOMBUS_CONFIG")
	defer os.Setenv("DOMBUS_CONFIG", originalEnv)

	want := "/custom/path/config.yaml"
	os.Setenv("DOMBUS_CONFIG", want)

	if got := getConfigPath(); got != want {
		t.Errorf("getConfigPath() = %q, want %q", got, want)
	}
}
