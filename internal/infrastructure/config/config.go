package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for xComfort Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Power     PowerConfig     `yaml:"power"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// BridgeConfig identifies the xComfort bridge whose feed this instance consumes.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// SnapshotTimeout is how long to wait for the initial bulk snapshot (seconds).
	SnapshotTimeout int `yaml:"snapshot_timeout"`

	// HealthInterval is how often bridge health is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PowerConfig controls power telemetry export and the heater stale-power watchdog.
type PowerConfig struct {
	AddRoomPowerSensors   bool `yaml:"add_room_power_sensors"`
	AddHeaterPowerSensors bool `yaml:"add_heater_power_sensors"`
	AddLightPowerSensors  bool `yaml:"add_light_power_sensors"`

	// HeaterStaleProtection forces a heater's reported power to zero when its
	// room has reported no load for ZeroWindowSeconds.
	HeaterStaleProtection bool `yaml:"heater_power_stale_protection"`

	ThresholdW          float64 `yaml:"threshold_w"`
	ZeroWindowSeconds   int     `yaml:"zero_window_seconds"`
	TickIntervalSeconds int     `yaml:"tick_interval_seconds"`

	// HeaterRoomMap pins heater device IDs to room IDs, bypassing name matching.
	HeaterRoomMap map[int]int `yaml:"heater_room_map"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: XCOMFORT_SECTION_KEY
// For example: XCOMFORT_DATABASE_PATH, XCOMFORT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Home",
			Timezone: "UTC",
		},
		Bridge: BridgeConfig{
			ID:              "bridge-001",
			Name:            "xComfort Bridge",
			SnapshotTimeout: 30,
			HealthInterval:  30,
		},
		Database: DatabaseConfig{
			Path:        "./data/xcomfort.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "xcomfort-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Power: PowerConfig{
			AddRoomPowerSensors:   true,
			AddHeaterPowerSensors: true,
			HeaterStaleProtection: true,
			ThresholdW:            0.5,
			ZeroWindowSeconds:     20,
			TickIntervalSeconds:   20,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: XCOMFORT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("XCOMFORT_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}

	if v := os.Getenv("XCOMFORT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("XCOMFORT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("XCOMFORT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("XCOMFORT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("XCOMFORT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("XCOMFORT_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("XCOMFORT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("XCOMFORT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	} else if strings.ContainsAny(c.Bridge.ID, "/+#") {
		errs = append(errs, "bridge.id must not contain MQTT wildcards or separators")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Power.ThresholdW <= 0 {
		errs = append(errs, "power.threshold_w must be positive")
	}
	if c.Power.ZeroWindowSeconds < 1 {
		errs = append(errs, "power.zero_window_seconds must be at least 1")
	}
	if c.Power.TickIntervalSeconds < 1 {
		errs = append(errs, "power.tick_interval_seconds must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// ZeroWindow returns the room zero-load window as a Duration.
func (p PowerConfig) ZeroWindow() time.Duration {
	return time.Duration(p.ZeroWindowSeconds) * time.Second
}

// TickInterval returns the watchdog tick interval as a Duration.
func (p PowerConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalSeconds) * time.Second
}

// SnapshotWait returns how long to wait for the first bridge snapshot.
func (b BridgeConfig) SnapshotWait() time.Duration {
	return time.Duration(b.SnapshotTimeout) * time.Second
}

// HealthPeriod returns the bridge health publish interval.
func (b BridgeConfig) HealthPeriod() time.Duration {
	return time.Duration(b.HealthInterval) * time.Second
}
