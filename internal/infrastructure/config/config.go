package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/screen-logic-core/internal/display"
)

// Config is the root configuration structure for Screen Logic Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig        `yaml:"site"`
	Displays  []display.Display `yaml:"displays"`
	ADB       ADBConfig         `yaml:"adb"`
	WebOS     WebOSConfig       `yaml:"webos"`
	WOL       WOLConfig         `yaml:"wol"`
	Dispatch  DispatchConfig    `yaml:"dispatch"`
	Database  DatabaseConfig    `yaml:"database"`
	MQTT      MQTTConfig        `yaml:"mqtt"`
	API       APIConfig         `yaml:"api"`
	WebSocket WebSocketConfig   `yaml:"websocket"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ADBConfig contains settings for the adb debug-bridge driver.
type ADBConfig struct {
	// Binary is the path to the adb executable. Default: "adb" (from PATH).
	Binary string `yaml:"binary"`

	// Port is the TCP control port adb connects to on each display.
	// Default: 5555.
	Port int `yaml:"port"`

	// ConnectTimeout is the per-call timeout for adb connect, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// CommandTimeout is the per-call timeout for adb shell commands, in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// WebOSConfig contains settings for the webos SSAP driver.
type WebOSConfig struct {
	// Port is the SSAP websocket port on each display. Default: 3000.
	Port int `yaml:"port"`

	// HandshakeTimeout bounds the register handshake, in seconds. It
	// covers the window in which the user can accept the pairing prompt.
	HandshakeTimeout int `yaml:"handshake_timeout"`

	// CommandTimeout is the per-request timeout after registration, in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// WOLConfig contains Wake-on-LAN settings for webos power-on.
type WOLConfig struct {
	// BroadcastAddress is where magic packets are sent.
	// Default: "255.255.255.255".
	BroadcastAddress string `yaml:"broadcast_address"`

	// Port is the UDP port for magic packets. Default: 9.
	Port int `yaml:"port"`
}

// DispatchConfig contains batch dispatcher settings.
type DispatchConfig struct {
	// MaxConcurrency bounds how many displays are driven in parallel.
	// Default: 6. Must be at least 1.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// DatabaseConfig contains SQLite database settings.
// The database holds webos pairing tokens.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// MQTT integration is optional; when disabled the core runs standalone.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SCREENLOGIC_SECTION_KEY
// For example: SCREENLOGIC_DATABASE_PATH, SCREENLOGIC_ADB_BINARY
//
// Returns the loaded and validated configuration, or an error if the file
// cannot be read, parsed, or fails validation.
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
	applyDisplayDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Screen Logic",
		},
		ADB: ADBConfig{
			Binary:         "adb",
			Port:           5555,
			ConnectTimeout: 5,
			CommandTimeout: 5,
		},
		WebOS: WebOSConfig{
			Port:             3000,
			HandshakeTimeout: 8,
			CommandTimeout:   5,
		},
		WOL: WOLConfig{
			BroadcastAddress: "255.255.255.255",
			Port:             9,
		},
		Dispatch: DispatchConfig{
			MaxConcurrency: 6,
		},
		Database: DatabaseConfig{
			Path:        "./data/screenlogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "screenlogic-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SCREENLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCREENLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SCREENLOGIC_ADB_BINARY"); v != "" {
		cfg.ADB.Binary = v
	}
	if v := os.Getenv("SCREENLOGIC_ADB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ADB.Port = port
		}
	}

	if v := os.Getenv("SCREENLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SCREENLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SCREENLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SCREENLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// applyDisplayDefaults fills in defaultable display fields before validation.
// An empty protocol means adb, matching the common case of Android TVs.
func applyDisplayDefaults(cfg *Config) {
	for i := range cfg.Displays {
		if cfg.Displays[i].Protocol == "" {
			cfg.Displays[i].Protocol = display.ProtocolADB
		}
	}
}

// Validate checks the configuration for errors.
//
// Display entries are validated individually (name, address, protocol,
// MAC syntax) and names must be unique within the config, since results
// are keyed by name.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.ADB.Port < 1 || c.ADB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("adb.port must be 1-65535, got %d", c.ADB.Port))
	}
	if c.ADB.Binary == "" {
		errs = append(errs, "adb.binary is required")
	}

	if c.WebOS.Port < 1 || c.WebOS.Port > 65535 {
		errs = append(errs, fmt.Sprintf("webos.port must be 1-65535, got %d", c.WebOS.Port))
	}

	if c.Dispatch.MaxConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("dispatch.max_concurrency must be at least 1, got %d", c.Dispatch.MaxConcurrency))
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, fmt.Sprintf("api.port must be 1-65535, got %d", c.API.Port))
		}
	}

	seen := make(map[string]bool, len(c.Displays))
	for i, d := range c.Displays {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("displays[%d]: %v", i, err))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("displays[%d]: duplicate name %q", i, d.Name))
		}
		seen[d.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
