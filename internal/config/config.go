package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"taskcal/internal/domain"
)

// Config models taskcal.yml. The file is optional; missing values fall
// back to defaults, and the resulting settings are seeded into the
// database on first run.
type Config struct {
	Calendar struct {
		MaxOccurrences         int `yaml:"max_occurrences"`
		DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	} `yaml:"calendar"`
	UI struct {
		DarkMode bool `yaml:"dark_mode"`
	} `yaml:"ui"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig describes one event delivery target.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Calendar.MaxOccurrences < 1 {
		return fmt.Errorf("config.calendar.max_occurrences must be at least 1")
	}
	if c.Calendar.DefaultDurationMinutes < 1 {
		return fmt.Errorf("config.calendar.default_duration_minutes must be at least 1")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Settings converts config values into the persisted settings seed.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		DarkMode:               c.UI.DarkMode,
		MaxOccurrences:         c.Calendar.MaxOccurrences,
		DefaultDurationMinutes: c.Calendar.DefaultDurationMinutes,
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskcal.yml")
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	cfg.Calendar.MaxOccurrences = 100
	cfg.Calendar.DefaultDurationMinutes = 60
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Unset values
// take defaults before validation.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Calendar.MaxOccurrences == 0 {
		cfg.Calendar.MaxOccurrences = 100
	}
	if cfg.Calendar.DefaultDurationMinutes == 0 {
		cfg.Calendar.DefaultDurationMinutes = 60
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML for `tcal config init`.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `calendar:
  # Hard cap on generated recurrence instances per task.
  max_occurrences: 100
  # Length of a timed task that has a start time but no end.
  default_duration_minutes: 60

ui:
  dark_mode: false

# Optional webhook delivery of task events.
# webhooks:
#   - url: https://example.org/hooks/taskcal
#     events: [task.created, task.moved]
#     secret: change-me
#     timeout_seconds: 5
`
