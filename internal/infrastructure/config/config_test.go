package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
data_dir: "/tmp/dombus-data"
buses:
  1:
    serial_port: "/dev/ttyUSB0"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic: dombus
  topic_config: homeassistant
telnet:
  enabled: true
  port: 8023
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

	if cfg.DataDir != "/tmp/dombus-data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/tmp/dombus-data")
	}
	if got := cfg.Buses[1].SerialPort; got != "/dev/ttyUSB0" {
		t.Errorf("Buses[1].SerialPort = %q, want %q", got, "/dev/ttyUSB0")
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
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
data_dir: "/tmp/dombus-data"
mqtt:
  topic: dombus
  topic_config: homeassistant
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing buses, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validBuses := map[int]BusConfig{1: {SerialPort: "/dev/ttyUSB0"}}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				DataDir: "/data",
				Buses:   validBuses,
				MQTT:    MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
				Telnet:  TelnetConfig{Enabled: true, Port: 8023},
			},
			wantErr: false,
		},
		{
			name: "no buses",
			config: &Config{
				DataDir: "/data",
				Buses:   map[int]BusConfig{},
				MQTT:    MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
		{
			name: "bus out of range",
			config: &Config{
				DataDir: "/data",
				Buses:   map[int]BusConfig{0: {SerialPort: "/dev/ttyUSB0"}},
				MQTT:    MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
		{
			name: "bus missing serial port",
			config: &Config{
				DataDir: "/data",
				Buses:   map[int]BusConfig{1: {}},
				MQTT:    MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				DataDir: "/data",
				Buses:   validBuses,
				MQTT:    MQTTConfig{QoS: 3, Topic: "dombus", TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
		{
			name: "missing topic",
			config: &Config{
				DataDir: "/data",
				Buses:   validBuses,
				MQTT:    MQTTConfig{QoS: 1, TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
		{
			name: "telnet port out of range",
			config: &Config{
				DataDir: "/data",
				Buses:   validBuses,
				MQTT:    MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
				Telnet:  TelnetConfig{Enabled: true, Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "missing data dir",
			config: &Config{
				Buses: validBuses,
				MQTT:  MQTTConfig{QoS: 1, Topic: "dombus", TopicConfig: "homeassistant"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("DOMBUS_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DOMBUS_MQTT_USERNAME", "testuser")
	t.Setenv("DOMBUS_MQTT_PASSWORD", "testpass")
	t.Setenv("DOMBUS_DATA_DIR", "/custom/data")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.DataDir != "/custom/data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/custom/data")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.DataDir == "" {
		t.Error("defaultConfig should have non-empty DataDir")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Telnet.Port != 8023 {
		t.Errorf("defaultConfig Telnet.Port = %d, want 8023", cfg.Telnet.Port)
	}
}
