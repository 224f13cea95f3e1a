// Package config loads propcheck settings from a YAML file and PROPCHECK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PROPCHECK_DATABASE_PATH.
const EnvPrefix = "PROPCHECK"

// Config is the full propcheck configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Admin     AdminConfig     `mapstructure:"admin" yaml:"admin"`
}

// DatabaseConfig selects the SQLite file and driver.
type DatabaseConfig struct {
	Path   string `mapstructure:"path" yaml:"path" validate:"required"`
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite3 sqlite"`
}

// SchedulerConfig tunes the generation loop.
type SchedulerConfig struct {
	IntervalMinutes         int           `mapstructure:"interval_minutes" yaml:"interval_minutes" validate:"gte=1"`
	Workers                 int           `mapstructure:"workers" yaml:"workers" validate:"gte=1,lte=64"`
	LookbackDays            int           `mapstructure:"lookback_days" yaml:"lookback_days" validate:"gte=0,lte=366"`
	StaleReservationMinutes int           `mapstructure:"stale_reservation_minutes" yaml:"stale_reservation_minutes" validate:"gte=0"`
	AssignTimeout           time.Duration `mapstructure:"assign_timeout" yaml:"assign_timeout" validate:"gt=0"`
}

// StaleAfter is the age at which a pending reservation may be reclaimed.
func (c SchedulerConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleReservationMinutes) * time.Minute
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// AdminConfig is the ops HTTP listener.
type AdminConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required"`
}

var configValidate = validator.New()

// DefaultConfigPath returns ~/.propcheck/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".propcheck", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dbPath := filepath.Join(filepath.Dir(DefaultConfigPath()), "propcheck.db")
	v.SetDefault("database.path", dbPath)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("scheduler.interval_minutes", 60)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.lookback_days", 7)
	v.SetDefault("scheduler.stale_reservation_minutes", 15)
	v.SetDefault("scheduler.assign_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("admin.addr", ":9090")
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	cfg, err := load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// LoadConfig reads the YAML file at path, applies PROPCHECK_* environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := configValidate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating the directory.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
