package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Debug bitmask levels, combinable. Mirrors the original dombusprotocol
// debugLevel bitmask (spec.md §7).
const LogNone = 0

const (
	LogErr = 1 << iota
	LogWarn
	LogInfo
	LogDebug
	LogDumpRX
	LogDumpTX
	LogDumpDCMD
	LogMQTTRX
	LogMQTTTX
	LogTelnet
)

// Config is the root configuration structure for DomBusGateway.
// Loaded from YAML, with secrets overridable from the environment.
type Config struct {
	// DataDir is where Modules.json and Devices.json are read from and
	// written to (spec.md §4.8).
	DataDir string `yaml:"data_dir"`

	// Debug is the combinable bitmask of log channels to emit (see the
	// Log* constants above).
	Debug int `yaml:"debug"`

	Buses   map[int]BusConfig `yaml:"buses"`
	MQTT    MQTTConfig        `yaml:"mqtt"`
	Telnet  TelnetConfig      `yaml:"telnet"`
	Logging LoggingConfig     `yaml:"logging"`
}

// BusConfig describes one RS485 serial bus carrying DomBus modules.
type BusConfig struct {
	// SerialPort is the OS device path, e.g. "/dev/ttyUSB0".
	SerialPort string `yaml:"serial_port"`

	// BaudRate defaults to 115200 if zero.
	BaudRate int `yaml:"baud_rate"`
}

// MQTTConfig contains MQTT broker connection and topic settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`

	// Topic is the state/command topic base (spec.md §6, e.g. "dombus").
	Topic string `yaml:"topic"`

	// TopicConfig is the discovery config topic base (e.g. "homeassistant").
	TopicConfig string `yaml:"topic_config"`

	// PublishIntervalSeconds is the heartbeat republish interval even when
	// a device's value has not changed (spec.md §4.5 publication policy).
	PublishIntervalSeconds int `yaml:"publish_interval_seconds"`

	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// TelnetConfig contains the operator admin interface settings (spec.md §4.7).
type TelnetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains slog output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides for secrets.
//
// Environment variables follow the pattern DOMBUS_SECTION_KEY, e.g.
// DOMBUS_MQTT_PASSWORD, DOMBUS_MQTT_HOST.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Debug:   LogErr | LogWarn | LogInfo,
		Buses:   map[int]BusConfig{},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "127.0.0.1",
				Port:     1883,
				ClientID: "dombusgateway",
			},
			QoS:                    1,
			Topic:                  "dombus",
			TopicConfig:            "homeassistant",
			PublishIntervalSeconds: 300,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Telnet: TelnetConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8023,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOMBUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOMBUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOMBUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DOMBUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Buses) == 0 {
		errs = append(errs, "at least one entry under buses is required")
	}
	for id, bus := range c.Buses {
		if id < 1 || id > 255 {
			errs = append(errs, fmt.Sprintf("bus id %d out of range 1..255", id))
		}
		if bus.SerialPort == "" {
			errs = append(errs, fmt.Sprintf("buses.%d.serial_port is required", id))
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if c.MQTT.TopicConfig == "" {
		errs = append(errs, "mqtt.topic_config is required")
	}

	if c.Telnet.Enabled && (c.Telnet.Port < 1 || c.Telnet.Port > 65535) {
		errs = append(errs, "telnet.port must be between 1 and 65535")
	}

	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
