// Package config provides configuration loading for managerd.
//
// Configuration is loaded from a YAML file and MANAGERD_-prefixed environment
// variables on top of built-in defaults. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete managerd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Auth          AuthConfig          `koanf:"auth"`
	Provider      ProviderConfig      `koanf:"provider"`
	Storage       StorageConfig       `koanf:"storage"`
	Telegram      TelegramConfig      `koanf:"telegram"`
	Deadline      DeadlineConfig      `koanf:"deadline"`
	Notify        NotifyConfig        `koanf:"notify"`
	Events        EventsConfig        `koanf:"events"`
	Assistant     AssistantConfig     `koanf:"assistant"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AuthConfig holds the shared passphrase for the operator gate.
type AuthConfig struct {
	Passphrase Secret `koanf:"passphrase"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name            string `koanf:"name"` // openai or ollama
	APIKey          Secret `koanf:"api_key"`
	BaseURL         string `koanf:"base_url"`
	Model           string `koanf:"model"`
	SearchModel     string `koanf:"search_model"`
	ImageModel      string `koanf:"image_model"`
	TranscribeModel string `koanf:"transcribe_model"`
	RateLimit       int    `koanf:"rate_limit"` // requests per second
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend string `koanf:"backend"` // memory, file or nats
	Path    string `koanf:"path"`
	NATSURL string `koanf:"nats_url"`
	Bucket  string `koanf:"bucket"`
}

// TelegramConfig configures the push channel. Push is disabled without a token.
type TelegramConfig struct {
	BotToken Secret `koanf:"bot_token"`
	BaseURL  string `koanf:"base_url"`
}

// DeadlineConfig configures the deadline monitor.
type DeadlineConfig struct {
	Interval time.Duration `koanf:"interval"`
	Window   time.Duration `koanf:"window"`
	Timezone string        `koanf:"timezone"`
}

// NotifyConfig configures transient notifications.
type NotifyConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// EventsConfig configures NATS fan-out of notifications. Disabled when URL is empty.
type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

// AssistantConfig holds persona settings used in prompts and greetings.
type AssistantConfig struct {
	AgencyName string `koanf:"agency_name"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
}

// Supported provider and storage names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StorageMemory = "memory"
	StorageFile   = "file"
	StorageNATS   = "nats"
)

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid shutdown timeout: %v (must be positive)", c.Server.ShutdownTimeout))
	}
	if !c.Auth.Passphrase.IsSet() {
		errs = append(errs, errors.New("auth passphrase cannot be empty"))
	}

	switch c.Provider.Name {
	case ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (must be openai or ollama)", c.Provider.Name))
	}
	if c.Provider.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid provider rate limit: %d", c.Provider.RateLimit))
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage path is required for the file backend"))
		}
	case StorageNATS:
		if c.Storage.NATSURL == "" {
			errs = append(errs, errors.New("storage nats_url is required for the nats backend"))
		}
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage bucket is required for the nats backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q (must be memory, file or nats)", c.Storage.Backend))
	}

	if c.Deadline.Interval <= 0 {
		errs = append(errs, fmt.Errorf("invalid deadline interval: %v", c.Deadline.Interval))
	}
	if c.Deadline.Window <= 0 {
		errs = append(errs, fmt.Errorf("invalid deadline window: %v", c.Deadline.Window))
	}
	if _, err := time.LoadLocation(c.Deadline.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid deadline timezone %q: %w", c.Deadline.Timezone, err))
	}
	if c.Notify.TTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid notification ttl: %v", c.Notify.TTL))
	}

	return errors.Join(errs...)
}

// Location returns the time zone used to interpret zone-less deadlines.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Deadline.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
