package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
	Task   TaskConfig   `mapstructure:"task" validate:"required"`
	Store  StoreConfig  `mapstructure:"store" validate:"required"`
	Feed   FeedConfig   `mapstructure:"feed"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel           string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" validate:"gte=0"`
}

// LLMConfig contains the image model settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	// ImageModel generates images from text alone
	ImageModel string `mapstructure:"image_model" validate:"required"`
	// EditModel generates images from input images plus text
	EditModel string `mapstructure:"edit_model" validate:"required"`
}

// TaskConfig contains the retry and concurrency settings of the scheduler.
type TaskConfig struct {
	BaseDelayMS    int  `mapstructure:"base_delay_ms" validate:"gt=0"`
	MaxJitterMS    int  `mapstructure:"max_jitter_ms" validate:"gte=0"`
	MaxInFlight    int  `mapstructure:"max_in_flight" validate:"gte=0"`
	RecoverOnStart bool `mapstructure:"recover_on_start"`
}

// BaseDelay returns the backoff base as a duration.
func (c TaskConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// MaxJitter returns the maximum backoff jitter as a duration.
func (c TaskConfig) MaxJitter() time.Duration {
	return time.Duration(c.MaxJitterMS) * time.Millisecond
}

// StoreConfig selects where tasks are kept.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required_unless=Driver memory"`
}

// FeedConfig controls how the feed groups tasks into days.
type FeedConfig struct {
	// Timezone is an IANA zone name such as "Asia/Shanghai".
	Timezone string `mapstructure:"timezone"`
}

// Location returns the configured time zone, UTC when unset.
func (c FeedConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RedisConfig enables publishing task events to Redis when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel" validate:"required_with=Addr"`
}
