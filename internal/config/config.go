package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSavedata = "savedata"
)

// ErrUnknownBackend is returned by Validate for an unsupported store backend.
var ErrUnknownBackend = errors.New("unknown store backend")

// Server holds all configuration for the buff service.
type Server struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Game loop
	TickInterval     time.Duration `yaml:"tick_interval"`     // real time between ticks (default: 100ms)
	TimeScale        float64       `yaml:"time_scale"`        // game seconds per real second (default: 1)
	AutosaveInterval time.Duration `yaml:"autosave_interval"` // game time between flushes, 0 disables (default: 30s)
	StatusInterval   time.Duration `yaml:"status_interval"`   // game time between stat reports, 0 disables (default: 10s)

	// Buffs
	RefreshPolicy string `yaml:"refresh_policy"` // extend, replace, legacy
	CatalogPath   string `yaml:"catalog_path"`

	// Stats of the owner: name → base value
	Stats map[string]float64 `yaml:"stats"`

	// Persistence
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Savedata SavedataConfig `yaml:"savedata"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, postgres, savedata
}

// SavedataConfig configures the local save-data backend.
type SavedataConfig struct {
	AppName string `yaml:"app_name"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:         "info",
		TickInterval:     100 * time.Millisecond,
		TimeScale:        1,
		AutosaveInterval: 30 * time.Second,
		StatusInterval:   10 * time.Second,
		RefreshPolicy:    "extend",
		CatalogPath:      "config/buffs.yaml",
		Stats: map[string]float64{
			"attack":  100,
			"defense": 50,
			"speed":   10,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "statbuff",
			Password: "statbuff",
			DBName:   "statbuff",
			SSLMode:  "disable",
		},
		Savedata: SavedataConfig{
			AppName: "statbuff",
		},
	}
}

// LoadServer loads config from a YAML file.
// If the file doesn't exist, returns defaults.
// A stats section replaces the default stats entirely.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	// yaml.v3 декодирует в существующую map, поэтому дефолтные статы
	// подставляются только если в файле нет секции stats.
	defaultStats := cfg.Stats
	cfg.Stats = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Stats == nil {
		cfg.Stats = defaultStats
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and enum fields.
func (c Server) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.TimeScale < 0 {
		return fmt.Errorf("time_scale must not be negative, got %v", c.TimeScale)
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("autosave_interval must not be negative, got %s", c.AutosaveInterval)
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("status_interval must not be negative, got %s", c.StatusInterval)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendPostgres, BackendSavedata:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Store.Backend)
	}

	switch c.RefreshPolicy {
	case "", "extend", "replace", "legacy":
	default:
		return fmt.Errorf("unknown refresh_policy %q", c.RefreshPolicy)
	}

	return nil
}
