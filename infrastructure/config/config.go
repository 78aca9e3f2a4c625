// Package config loads runtime settings from defaults, an optional config
// file and CELLARBOOK_ environment variables, in increasing precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CELLARBOOK"

type Config struct {
	Addr          string        `mapstructure:"addr"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	MigrationsDir string        `mapstructure:"migrations_dir"` // empty uses the embedded set
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	TTBRatesFile  string        `mapstructure:"ttb_rates_file"`
	Producer      Producer      `mapstructure:",squash"`
}

type Producer struct {
	Name     string `mapstructure:"producer_name"`
	Registry string `mapstructure:"producer_registry"`
	EIN      string `mapstructure:"producer_ein"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("sqlite_path", "cellarbook.db")
	v.SetDefault("migrations_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("ttb_rates_file", "")
	v.SetDefault("producer_name", "")
	v.SetDefault("producer_registry", "")
	v.SetDefault("producer_ein", "")
}

// Load reads configuration. configFile may be empty; CELLARBOOK_CONFIG is
// consulted in that case.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("sqlite_path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", raw)
	}
	return level, nil
}

// NewLogger builds the process logger described by c.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
