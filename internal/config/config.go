// Package config loads layoutdb settings.
//
// Values are resolved in order: built-in defaults, then layoutdb.yaml in
// the config directory (a missing file is fine), then LAYOUTDB_*
// environment variables. CLI flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
)

const (
	configFileName = "layoutdb"
	configFileType = "yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LAYOUTDB_"

	defaultDatabase = "launcher.db"
	prefsFile       = "prefs.yaml"
)

var (
	ErrNoDataDir      = errors.New("data dir is required")
	ErrNoDatabase     = errors.New("database file name is required")
	ErrUnknownDriver  = errors.New("unknown sqlite driver")
	ErrInvalidProfile = errors.New("invalid grid profile")
)

// Config holds every setting the CLI needs to open and serve a store.
type Config struct {
	DataDir  string `mapstructure:"data_dir" env:"DATA_DIR"`
	Database string `mapstructure:"database" env:"DATABASE"`
	Driver   string `mapstructure:"driver" env:"DRIVER"`

	Columns      int `mapstructure:"columns" env:"COLUMNS"`
	Rows         int `mapstructure:"rows" env:"ROWS"`
	HotseatSlots int `mapstructure:"hotseat" env:"HOTSEAT"`
	AllAppsRank  int `mapstructure:"all_apps_rank" env:"ALL_APPS_RANK"`

	// ProfileSerial is the default user profile; Profiles lists any
	// other profiles that exist on the device.
	ProfileSerial int64   `mapstructure:"profile_serial" env:"PROFILE_SERIAL"`
	Profiles      []int64 `mapstructure:"profiles" env:"PROFILES" envSeparator:","`

	// Components are the launchable components. Empty accepts all.
	Components []string `mapstructure:"components" env:"COMPONENTS" envSeparator:","`
	// Widgets are the bindable widget providers. Empty accepts all.
	Widgets []string `mapstructure:"widgets" env:"WIDGETS" envSeparator:","`

	RestrictionLayout string `mapstructure:"restriction_layout" env:"RESTRICTION_LAYOUT"`
	PartnerDir        string `mapstructure:"partner_dir" env:"PARTNER_DIR"`
	LegacyPath        string `mapstructure:"legacy_path" env:"LEGACY_PATH"`
}

// Default returns the built-in settings.
func Default() Config {
	p := layout.DefaultProfile
	return Config{
		DataDir:      defaultDataDir(),
		Database:     defaultDatabase,
		Driver:       store.DriverCGO,
		Columns:      p.Columns,
		Rows:         p.Rows,
		HotseatSlots: p.HotseatSlots,
		AllAppsRank:  p.AllAppsRank,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".layoutdb"
	}
	return filepath.Join(home, ".layoutdb")
}

// Load resolves the configuration using configDir to find layoutdb.yaml.
// An empty configDir skips the file.
func Load(configDir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("driver", cfg.Driver)
	v.SetDefault("columns", cfg.Columns)
	v.SetDefault("rows", cfg.Rows)
	v.SetDefault("hotseat", cfg.HotseatSlots)
	v.SetDefault("all_apps_rank", cfg.AllAppsRank)

	if configDir != "" {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to open a store.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	if c.Database == "" {
		return ErrNoDatabase
	}
	switch c.Driver {
	case store.DriverCGO, store.DriverPure:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if err := c.Profile().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return nil
}

// Profile returns the grid geometry.
func (c Config) Profile() layout.Profile {
	return layout.Profile{
		Columns:      c.Columns,
		Rows:         c.Rows,
		HotseatSlots: c.HotseatSlots,
		AllAppsRank:  c.AllAppsRank,
	}
}

// DatabasePath is the store file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.Database)
}

// PrefsPath is the preferences file beside the store.
func (c Config) PrefsPath() string {
	return filepath.Join(c.DataDir, prefsFile)
}
