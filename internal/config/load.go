package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. FLASHY_SESSION_SIZE.
const EnvPrefix = "FLASHY"

// Defaults used when neither the environment nor a config file sets a key.
const (
	DefaultDriver          = "sqlite3"
	DefaultDSN             = "data/flashy.db"
	DefaultSessionSize     = 5
	DefaultPolicy          = "simple"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "pretty"
	DefaultReminderEvery   = "1h"
	DefaultReminderStart   = 8
	DefaultReminderEnd     = 22
	DefaultCleanupInterval = "24h"
)

// Load reads configuration. Values come, in increasing precedence, from the
// defaults, flashy.yaml in the working directory, the given .env files (".env"
// when none are given) and FLASHY_* environment variables.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("flashy")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.dsn", DefaultDSN)
	v.SetDefault("session.size", DefaultSessionSize)
	v.SetDefault("schedule.policy", DefaultPolicy)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("audio.command", "")
	v.SetDefault("reminder.interval", DefaultReminderEvery)
	v.SetDefault("reminder.start_hour", DefaultReminderStart)
	v.SetDefault("reminder.end_hour", DefaultReminderEnd)
	v.SetDefault("cleanup.interval", DefaultCleanupInterval)
}
