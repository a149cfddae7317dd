package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Known remote detection services, in the order they are documented.
var KnownServices = []string{"openai", "ollama", "google", "lingua"}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Config is the complete application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Verbose  bool   `mapstructure:"verbose"`

	// ProfilesFile replaces the embedded language catalog when set.
	ProfilesFile string `mapstructure:"profiles_file"`
	DBPath       string `mapstructure:"db_path"`

	Detect  DetectConfig  `mapstructure:"detect"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Google  GoogleConfig  `mapstructure:"google"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Server  ServerConfig  `mapstructure:"server"`
}

type DetectConfig struct {
	// Services are queried concurrently; the first success in this order wins.
	Services []string      `mapstructure:"services"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Cache    bool          `mapstructure:"cache"`
	History  bool          `mapstructure:"history"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	JSONLogs        bool          `mapstructure:"json_logs"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		DBPath:   "./data/bhasha.db",
		Detect: DetectConfig{
			Services: []string{"openai"},
			Timeout:  10 * time.Second,
			Cache:    true,
			History:  true,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Webhook: WebhookConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigin:      "*",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log level %q (must be one of: %s)", ErrInvalid, c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	seen := make(map[string]bool, len(c.Detect.Services))
	for _, s := range c.Detect.Services {
		if !slices.Contains(KnownServices, s) {
			return fmt.Errorf("%w: unknown detection service %q (must be one of: %s)", ErrInvalid, s, strings.Join(KnownServices, ", "))
		}
		if seen[s] {
			return fmt.Errorf("%w: detection service %q listed twice", ErrInvalid, s)
		}
		seen[s] = true
	}

	if c.Detect.Timeout <= 0 {
		return fmt.Errorf("%w: detect.timeout must be positive, got %s", ErrInvalid, c.Detect.Timeout)
	}

	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: webhook.url %q is not an http(s) URL", ErrInvalid, c.Webhook.URL)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be between 1 and 65535)", ErrInvalid, c.Server.Port)
	}

	return nil
}
