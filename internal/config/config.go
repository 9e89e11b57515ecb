// Package config loads flashy's settings from the environment, an optional
// .env file and an optional flashy.yaml.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Session  SessionConfig  `mapstructure:"session" validate:"required"`
	Schedule ScheduleConfig `mapstructure:"schedule" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup" validate:"required"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite3 postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

// SessionConfig controls the working set of a study session.
type SessionConfig struct {
	// Maximum number of cards pulled into a session
	Size int `mapstructure:"size" validate:"required,min=1,max=500"`
}

// ScheduleConfig picks the scheduling policy.
type ScheduleConfig struct {
	Policy string `mapstructure:"policy" validate:"required,oneof=simple graduated"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=pretty json text"`
}

// AudioConfig names the external player. An empty command disables audio.
type AudioConfig struct {
	Command string `mapstructure:"command"`
}

// ReminderConfig drives the periodic due-card reminder job.
type ReminderConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"required,min=1m"`
	StartHour int           `mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour   int           `mapstructure:"end_hour" validate:"min=0,max=23,gtefield=StartHour"`
}

// CleanupConfig drives the periodic cleanup of mastered ledger rows.
type CleanupConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"required,min=1m"`
}
