package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for hierarchy-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (the database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8087"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (the engine's own PostgreSQL store)
	Database DatabaseConfig `yaml:"database"`

	// Engine configuration
	Engine EngineConfig `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"hierarchy"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"hierarchy_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// EngineConfig holds defaults for script generation. Projects can override
// per request; these are the server-wide fallbacks.
type EngineConfig struct {
	// SourceTable is the default raw mapped-data table generated SQL reads.
	SourceTable string `yaml:"source_table" env:"ENGINE_SOURCE_TABLE" env-default:"hierarchy_source"`
	// KeyColumn assigns a source row to a hierarchy id.
	KeyColumn string `yaml:"key_column" env:"ENGINE_KEY_COLUMN" env-default:"hierarchy_id"`
	// ValueColumn is the numeric column aggregated into node values.
	ValueColumn string `yaml:"value_column" env:"ENGINE_VALUE_COLUMN" env-default:"amount"`
	// ParameterTable qualifies external parameter references.
	ParameterTable string `yaml:"parameter_table" env:"ENGINE_PARAMETER_TABLE" env-default:"hierarchy_parameters"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
