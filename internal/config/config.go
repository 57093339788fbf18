package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gte=0s"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0s"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path" validate:"required"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=1024"`
	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gte=1"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" validate:"gte=0"`
	HistoryLimit       int           `mapstructure:"history_limit" yaml:"history_limit" validate:"gte=0,lte=1000"`
	DefaultUsername    string        `mapstructure:"default_username" yaml:"default_username" validate:"required"`
	SystemName         string        `mapstructure:"system_name" yaml:"system_name" validate:"required"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Bot                BotConfig     `mapstructure:"bot" yaml:"bot"`
}

// BotConfig configures the /bot command and the responder service behind it.
type BotConfig struct {
	Trigger        string        `mapstructure:"trigger" yaml:"trigger" validate:"required"`
	Name           string        `mapstructure:"name" yaml:"name" validate:"required"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0s"`
	MaxTypingDelay time.Duration `mapstructure:"max_typing_delay" yaml:"max_typing_delay" validate:"gte=0s"`
	FallbackText   string        `mapstructure:"fallback_text" yaml:"fallback_text" validate:"required"`
	UsageText      string        `mapstructure:"usage_text" yaml:"usage_text" validate:"required"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		DatabasePath:       "chat.db",
		LogLevel:           "info",
		LogFormat:          "console",
		MaxMessageBytes:    64 << 10,
		SendBuffer:         64,
		RateLimitPerMinute: 0,
		HistoryLimit:       50,
		DefaultUsername:    "Anonymous",
		SystemName:         "System",
		Bot: BotConfig{
			Trigger:        "/bot",
			Name:           "🤖 Aideijo",
			Endpoint:       "http://localhost:8000/bot",
			MaxTypingDelay: 10 * time.Second,
			FallbackText:   "Sorry, I can't answer right now. Please try again later.",
			UsageText:      "Usage: /bot <question>",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints on the resolved configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if strings.ContainsAny(c.Bot.Trigger, " \t\r\n") {
		return fmt.Errorf("invalid config: bot trigger %q must not contain whitespace", c.Bot.Trigger)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.Bot.Endpoint != "" {
		c.Bot.Endpoint = other.Bot.Endpoint
	}
	if other.Bot.Trigger != "" {
		c.Bot.Trigger = other.Bot.Trigger
	}
}
