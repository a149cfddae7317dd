package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "bhasha"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BHASHA"
)

// Loader handles loading configuration from files, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the root command are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader on a caller-owned viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load searches the standard locations for a config file, applies
// environment variables and defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()

	return l.read(false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	return l.read(true)
}

func (l *Loader) read(explicit bool) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file in the search path is fine: defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "bhasha"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "bhasha"))
	}

	l.v.AddConfigPath("/etc/bhasha")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("profiles_file", d.ProfilesFile)
	l.v.SetDefault("db_path", d.DBPath)

	l.v.SetDefault("detect.services", d.Detect.Services)
	l.v.SetDefault("detect.timeout", d.Detect.Timeout)
	l.v.SetDefault("detect.cache", d.Detect.Cache)
	l.v.SetDefault("detect.history", d.Detect.History)

	l.v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	l.v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	l.v.SetDefault("openai.model", d.OpenAI.Model)

	l.v.SetDefault("ollama.base_url", d.Ollama.BaseURL)
	l.v.SetDefault("ollama.model", d.Ollama.Model)

	l.v.SetDefault("google.credentials", d.Google.Credentials)

	l.v.SetDefault("webhook.url", d.Webhook.URL)
	l.v.SetDefault("webhook.timeout", d.Webhook.Timeout)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.json_logs", d.Server.JSONLogs)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
}
