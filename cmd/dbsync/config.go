package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/resultlog"
	"github.com/ruslano69/dbsync/pkg/retry"
)

// configEnv names the default config path when -config is not given.
const configEnv = "DBSYNC_CONFIG"

const defaultConfigFile = "dbsync.yaml"

// Config represents the main configuration structure
type Config struct {
	// Databases are named connection profiles referenced by "profile:".
	Databases map[string]DatabaseConfig `yaml:"databases,omitempty"`

	Source DatabaseConfig `yaml:"source"`
	Target DatabaseConfig `yaml:"target,omitempty"`

	Sync      SyncOptions      `yaml:"sync_options,omitempty"`
	Export    ExportConfig     `yaml:"export,omitempty"`
	Retry     retry.Config     `yaml:"retry,omitempty"`
	ResultLog resultlog.Config `yaml:"result_log,omitempty"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	Logging   LoggingConfig    `yaml:"logging,omitempty"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Profile     string        `yaml:"profile,omitempty"`         // name of an entry in databases
	Type        string        `yaml:"type,omitempty"`            // mysql, sqlite, postgresql
	Host        string        `yaml:"host,omitempty"`            // For network databases
	Port        int           `yaml:"port,omitempty"`            // Database port
	Database    string        `yaml:"database,omitempty"`        // Database name or file path
	User        string        `yaml:"user,omitempty"`            // Username
	Password    string        `yaml:"password,omitempty"`        // Password
	PasswordB64 string        `yaml:"password_b64,omitempty"`    // Base64-encoded password, wins over password
	Schema      string        `yaml:"schema,omitempty"`          // PostgreSQL schema (default: public)
	Timeout     time.Duration `yaml:"connect_timeout,omitempty"`
}

// SyncOptions control migrate runs
type SyncOptions struct {
	ExcludeTables    []string      `yaml:"exclude_tables,omitempty"`
	IncludeTables    []string      `yaml:"include_tables,omitempty"`
	DropTargetTables bool          `yaml:"drop_target_tables"`
	ConvertTypes     bool          `yaml:"convert_types"`
	TableTimeout     time.Duration `yaml:"table_timeout,omitempty"`
	HonorDelimiter   bool          `yaml:"honor_delimiter,omitempty"` // import: treat DELIMITER as a delimiter change
}

// ExportConfig contains export settings
type ExportConfig struct {
	OutputDir   string `yaml:"output_dir,omitempty"`
	IncludeData bool   `yaml:"include_data"`
	Compress    bool   `yaml:"compress"` // zstd-frame the script
}

// MetricsConfig enables the Prometheus endpoint
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":9108"
	Path   string `yaml:"path,omitempty"`   // default /metrics
}

// LoggingConfig selects the log level and format
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	JSON  bool   `yaml:"json,omitempty"`
}

// DefaultConfigPath returns $DBSYNC_CONFIG or dbsync.yaml.
func DefaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(configEnv)); p != "" {
		return p
	}
	return defaultConfigFile
}

// LoadConfig loads configuration from YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", adapters.ErrConfiguration, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and fills defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := Config{
		Sync:   SyncOptions{ConvertTypes: true},
		Export: ExportConfig{IncludeData: true},
		Retry:  retry.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %v", adapters.ErrConfiguration, err)
	}
	if err := config.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: retry: %v", adapters.ErrConfiguration, err)
	}
	if err := config.ResultLog.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Resolve expands a profile reference, decodes the password and validates
// the result. Fields set on d override the profile.
func (c *Config) Resolve(d DatabaseConfig) (adapters.Config, error) {
	if d.Profile != "" {
		p, ok := c.Databases[d.Profile]
		if !ok {
			return adapters.Config{}, fmt.Errorf("%w: unknown database profile %q (defined: %s)",
				adapters.ErrConfiguration, d.Profile, strings.Join(c.profileNames(), ", "))
		}
		d = overlay(p, d)
	}

	engine, err := adapters.ParseEngine(d.Type)
	if err != nil {
		return adapters.Config{}, err
	}

	password := d.Password
	if d.PasswordB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(d.PasswordB64)
		if err != nil {
			return adapters.Config{}, fmt.Errorf("%w: password_b64 is not valid base64: %v", adapters.ErrConfiguration, err)
		}
		password = string(raw)
	}

	cfg := adapters.Config{
		Engine:         engine,
		Host:           d.Host,
		Port:           d.Port,
		User:           d.User,
		Password:       password,
		Database:       d.Database,
		Schema:         d.Schema,
		ConnectTimeout: d.Timeout,
	}
	if err := cfg.Validate(); err != nil {
		return adapters.Config{}, err
	}
	return cfg, nil
}

func (c *Config) profileNames() []string {
	names := make([]string, 0, len(c.Databases))
	for n := range c.Databases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func overlay(base, d DatabaseConfig) DatabaseConfig {
	if d.Type != "" {
		base.Type = d.Type
	}
	if d.Host != "" {
		base.Host = d.Host
	}
	if d.Port != 0 {
		base.Port = d.Port
	}
	if d.Database != "" {
		base.Database = d.Database
	}
	if d.User != "" {
		base.User = d.User
	}
	if d.Password != "" || d.PasswordB64 != "" {
		base.Password, base.PasswordB64 = d.Password, d.PasswordB64
	}
	if d.Schema != "" {
		base.Schema = d.Schema
	}
	if d.Timeout != 0 {
		base.Timeout = d.Timeout
	}
	base.Profile = ""
	return base
}

// CreateSampleConfig creates a MySQL to SQLite sample configuration
func CreateSampleConfig() *Config {
	rc := retry.DefaultConfig()
	rc.Enabled = true

	return &Config{
		Databases: map[string]DatabaseConfig{
			"production": {
				Type:        "mysql",
				Host:        "localhost",
				Port:        3306,
				Database:    "shop",
				User:        "root",
				PasswordB64: base64.StdEncoding.EncodeToString([]byte("password")),
			},
			"reporting": {
				Type:     "postgresql",
				Host:     "localhost",
				Port:     5432,
				Database: "reporting",
				User:     "postgres",
				Password: "password",
				Schema:   "public",
			},
		},
		Source: DatabaseConfig{Profile: "production"},
		Target: DatabaseConfig{
			Type:     "sqlite",
			Database: "data/shop.db",
		},
		Sync: SyncOptions{
			ExcludeTables:    []string{"sessions"},
			DropTargetTables: true,
			ConvertTypes:     true,
			TableTimeout:     10 * time.Minute,
		},
		Export: ExportConfig{
			OutputDir:   "exports",
			IncludeData: true,
		},
		Retry: rc,
		Metrics: MetricsConfig{
			Listen: "",
			Path:   "/metrics",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
