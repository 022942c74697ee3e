package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mandala/internal/document"
	"mandala/internal/prompt"
)

// DefaultConfigPath is where the CLI looks for its config when --config is unset.
const DefaultConfigPath = ".mandala/config.yaml"

// DefaultEnvFile is loaded into the process environment before overrides apply.
const DefaultEnvFile = ".env"

// Config holds all mandala configuration.
type Config struct {
	// Profile is a grid document loaded instead of the built-in default.
	Profile string `yaml:"profile"`

	Prompt  PromptConfig  `yaml:"prompt"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// PromptConfig configures prompt composition.
type PromptConfig struct {
	Order  string `yaml:"order"`  // center-bias, grid, index
	Header bool   `yaml:"header"` // emit the run header block
}

// ExportConfig configures grid export.
type ExportConfig struct {
	// Format is used when the export path has no .json/.yaml extension.
	Format string `yaml:"format"` // json, yaml
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Prompt: PromptConfig{
			Order:  string(prompt.OrderCenterThenBias),
			Header: true,
		},
		Export: ExportConfig{
			Format: string(document.FormatJSON),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Defaults still honor the environment.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadEnvFile merges KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MANDALA_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := os.Getenv("MANDALA_PROMPT_ORDER"); v != "" {
		c.Prompt.Order = v
	}
	if v := os.Getenv("MANDALA_EXPORT_FORMAT"); v != "" {
		c.Export.Format = v
	}
	if v := os.Getenv("MANDALA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// PromptOrder returns the configured order, parsed.
func (c *Config) PromptOrder() (prompt.Order, error) {
	return prompt.ParseOrder(c.Prompt.Order)
}

// ExportFormat returns the configured export format, parsed.
func (c *Config) ExportFormat() (document.Format, error) {
	return document.ParseFormat(c.Export.Format)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.PromptOrder(); err != nil {
		return fmt.Errorf("invalid prompt.order: %w", err)
	}
	if _, err := c.ExportFormat(); err != nil {
		return fmt.Errorf("invalid export.format: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}
