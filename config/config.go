package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig       `yaml:"server"`
	MQTT     MQTTConfig         `yaml:"mqtt"`
	Storage  StorageConfig      `yaml:"storage"`
	Measures map[string]Measure `yaml:"measures"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ClientID       string `yaml:"client_id"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig holds the database connection configuration.
type StorageConfig struct {
	Driver                 string        `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string        `yaml:"dsn"`
	ArchiveIntervalSecs    int           `yaml:"archive_interval_s"`
	ArchiveInterval        time.Duration `yaml:"-"` // Ignored by YAML parser
	MaxOpenConns           int           `yaml:"max_open_conns"`
	MaxIdleConns           int           `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `yaml:"conn_max_lifetime_minutes"`
}

// Measure binds an MQTT topic key (e.g. "temp") to the measure type
// stored in the last-value cache and to its archive table.
type Measure struct {
	MeasureType string `yaml:"measure_type"`
	Table       string `yaml:"table"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Storage.DSN == "" {
		return nil, fmt.Errorf("no storage DSN configured, please add one to %s", path)
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}

	if cfg.Storage.ArchiveIntervalSecs <= 0 {
		cfg.Storage.ArchiveIntervalSecs = 600
	}
	cfg.Storage.ArchiveInterval = time.Duration(cfg.Storage.ArchiveIntervalSecs) * time.Second

	if cfg.MQTT.Host == "" {
		cfg.MQTT.Host = "127.0.0.1"
	}
	if cfg.MQTT.Port <= 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.TimeoutSeconds <= 0 {
		cfg.MQTT.TimeoutSeconds = 60
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if len(cfg.Measures) == 0 {
		log.Printf("no measures configured; defaulting to temp and humidity")
		cfg.Measures = DefaultMeasures()
	}
	for key, m := range cfg.Measures {
		if m.MeasureType == "" || m.Table == "" {
			return nil, fmt.Errorf("measure %q needs both measure_type and table", key)
		}
	}

	return &cfg, nil
}

// DefaultMeasures returns the measure bindings used when the config
// file does not define any.
func DefaultMeasures() map[string]Measure {
	return map[string]Measure{
		"temp":     {MeasureType: "temp_c", Table: "temperature"},
		"humidity": {MeasureType: "humidity_pct", Table: "humidity"},
	}
}

// ArchiveTables returns the measure_type -> archive table bindings the
// store recognises.
func (c *Config) ArchiveTables() map[string]string {
	tables := make(map[string]string, len(c.Measures))
	for _, m := range c.Measures {
		tables[m.MeasureType] = m.Table
	}
	return tables
}
