package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/homenet-bridge/internal/automation"
)

// Config is the root configuration structure for the homenet-bridge.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Bridge     BridgeConfig      `yaml:"bridge"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	Logging    LoggingConfig     `yaml:"logging"`
	Ports      []PortConfig      `yaml:"ports"`
	Automation AutomationsConfig `yaml:"automation"`

	// serialPathWaitTimeoutMS backs SERIAL_PATH_WAIT_TIMEOUT_MS (spec §6),
	// which has no YAML home — it is an environment-only override of the
	// supervisor's device-presence wait, set per deployment rather than
	// per checked-in config file.
	serialPathWaitTimeoutMS int
}

// BridgeConfig carries bridge-wide identity settings, per spec §2.1.
type BridgeConfig struct {
	ID         string `yaml:"id"`
	MQTTPrefix string `yaml:"mqtt_prefix"`
	Timezone   string `yaml:"timezone"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// ConnectTimeoutMS bounds the initial broker connection attempt
	// (spec §6's MQTT_CONNECT_TIMEOUT_MS). Zero means the MQTT client's
	// own default applies.
	ConnectTimeoutMS int `yaml:"connect_timeout_ms"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	// URL, when set, is used verbatim as the paho broker address
	// (e.g. "tcp://localhost:1883", "ssl://broker:8883"), taking
	// precedence over Host/Port/TLS (spec §6's MQTT_URL env var sets
	// this field directly).
	URL      string `yaml:"url"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AutomationsConfig is the bridge-wide automations/scripts library, shared
// across every port per spec §4.7 (automations reference entity IDs, which
// are unique across the whole bridge, not just within one port).
type AutomationsConfig struct {
	Automations []automation.AutomationConfig `yaml:"automations"`
	Scripts     []automation.ScriptConfig     `yaml:"scripts"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Section/key environment variables follow the pattern HOMENET_SECTION_KEY.
// The spec-mandated variables MQTT_URL, MQTT_CONNECT_TIMEOUT_MS,
// SERIAL_PATH_WAIT_TIMEOUT_MS and CONFIG_ROOT (spec §6) are read without
// the HOMENET_ prefix, matching the external contract other tooling in
// the deployment relies on.
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:         "bridge-001",
			MQTTPrefix: "homenet",
			Timezone:   "UTC",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homenet-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
				MaxAttempts:  0,
			},
			ConnectTimeoutMS: 10_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration, per spec §2.1/§6.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMENET_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("HOMENET_BRIDGE_MQTT_PREFIX"); v != "" {
		cfg.Bridge.MQTTPrefix = v
	}

	if v := os.Getenv("HOMENET_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMENET_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMENET_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HOMENET_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HOMENET_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Spec-mandated variables, read without the HOMENET_ prefix.
	if v := os.Getenv("MQTT_URL"); v != "" {
		cfg.MQTT.Broker.URL = v
	}
	if v := os.Getenv("MQTT_CONNECT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.ConnectTimeoutMS = ms
		}
	}
	if v := os.Getenv("SERIAL_PATH_WAIT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.serialPathWaitTimeoutMS = ms
		}
	}
	// CONFIG_ROOT is consumed by the caller that resolves the path passed
	// to Load, not by Load itself (spec §6: a directory root, not a key).
}

// Validate checks the configuration for structural errors, per spec §3/§6.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.MQTTPrefix == "" {
		errs = append(errs, "bridge.mqtt_prefix is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	portIDs := make(map[string]bool, len(c.Ports))
	for i, p := range c.Ports {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("ports[%d].id is required", i))
		} else if portIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("ports[%d].id %q is duplicated", i, p.ID))
		} else {
			portIDs[p.ID] = true
		}
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("ports[%d] (%s): %s", i, p.ID, err))
		}
	}

	entityIDs := make(map[string]bool)
	for _, p := range c.Ports {
		for _, e := range p.Entities {
			if entityIDs[e.ID] {
				errs = append(errs, fmt.Sprintf("entity id %q is duplicated across ports", e.ID))
			}
			entityIDs[e.ID] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
