package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"openai"}, cfg.Detect.Services)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "log level", modify: func(c *Config) { c.LogLevel = "trace" }},
		{name: "unknown service", modify: func(c *Config) { c.Detect.Services = []string{"bing"} }},
		{name: "duplicate service", modify: func(c *Config) { c.Detect.Services = []string{"lingua", "lingua"} }},
		{name: "zero timeout", modify: func(c *Config) { c.Detect.Timeout = 0 }},
		{name: "webhook scheme", modify: func(c *Config) { c.Webhook.URL = "ftp://example.com/hook" }},
		{name: "webhook host", modify: func(c *Config) { c.Webhook.URL = "https://" }},
		{name: "port", modify: func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestValidate_NoServices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detect.Services = nil

	assert.NoError(t, cfg.Validate(), "heuristic-only operation is allowed")
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Detect.Timeout)
	assert.True(t, cfg.Detect.Cache)
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bhasha.yaml")
	content := `
log_level: debug
profiles_file: /etc/bhasha/profiles.yaml
detect:
  services: [lingua, openai]
  timeout: 3s
openai:
  api_key: sk-test
webhook:
  url: https://hooks.example.com/webhook/chat
server:
  port: 9090
  json_logs: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoaderWith(viper.New())
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/etc/bhasha/profiles.yaml", cfg.ProfilesFile)
	assert.Equal(t, []string{"lingua", "openai"}, cfg.Detect.Services)
	assert.Equal(t, 3*time.Second, cfg.Detect.Timeout)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model, "unset keys keep defaults")
	assert.Equal(t, "https://hooks.example.com/webhook/chat", cfg.Webhook.URL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.JSONLogs)
	assert.Equal(t, path, loader.ConfigFileUsed())
}

func TestLoadWithFile_Missing(t *testing.T) {
	_, err := NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bhasha.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0644))

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bhasha.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0644))

	t.Setenv("BHASHA_LOG_LEVEL", "warn")
	t.Setenv("BHASHA_OPENAI_API_KEY", "from-env")
	t.Setenv("BHASHA_DETECT_SERVICES", "google,lingua")
	t.Setenv("BHASHA_WEBHOOK_TIMEOUT", "5s")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, []string{"google", "lingua"}, cfg.Detect.Services)
	assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)
}
