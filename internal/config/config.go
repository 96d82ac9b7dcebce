package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription used as a busy-calendar
// import source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PlannerConfig holds the day-planning tuning knobs.
type PlannerConfig struct {
	// DayStartHour / DayEndHour bound the plannable day (whole hours).
	DayStartHour int `yaml:"day_start_hour" json:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour" json:"day_end_hour"`
	// MinBlockMin is the smallest free window worth keeping, in minutes.
	MinBlockMin int `yaml:"min_block_min" json:"min_block_min"`
	// PreBufferMin / PostBufferMin surround every placed task chunk.
	PreBufferMin  int `yaml:"pre_buffer_min" json:"pre_buffer_min"`
	PostBufferMin int `yaml:"post_buffer_min" json:"post_buffer_min"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and dashboard.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Database is the SQLite database path for event persistence.
	Database string `yaml:"database" json:"database"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for the
	// background ICS refresh + preview re-render.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir is the base directory for the ICS HTTP cache and the
	// rendered dashboard preview.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// DarkTheme selects the dashboard color scheme.
	DarkTheme bool `yaml:"dark_theme" json:"dark_theme"`

	// Planner tunes the day-planning heuristics.
	Planner PlannerConfig `yaml:"planner" json:"planner"`

	// ICS is the list of subscribed busy-calendar sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// LogLevel is the minimum log level (debug/info/warn/error).
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Local",
		Database:    "./var/edusync.db",
		RefreshCron: "*/15 * * * *",
		CacheDir:    "./var/cache",
		DarkTheme:   false,
		Planner: PlannerConfig{
			DayStartHour:  6,
			DayEndHour:    22,
			MinBlockMin:   15,
			PreBufferMin:  5,
			PostBufferMin: 10,
		},
		ICS:      []ICSConfig{},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Database == "" {
		c.Database = "./var/edusync.db"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/cache"
	}
	if c.Planner.DayStartHour <= 0 {
		c.Planner.DayStartHour = 6
	}
	if c.Planner.DayEndHour <= 0 || c.Planner.DayEndHour <= c.Planner.DayStartHour {
		c.Planner.DayEndHour = 22
	}
	if c.Planner.MinBlockMin <= 0 {
		c.Planner.MinBlockMin = 15
	}
	if c.Planner.PreBufferMin <= 0 {
		c.Planner.PreBufferMin = 5
	}
	if c.Planner.PostBufferMin <= 0 {
		c.Planner.PostBufferMin = 10
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (parent
// directory created as needed, 0600 permissions) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".edusync-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
