package config

import (
	"fmt"
	"strings"
)

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidLogFormats lists the accepted logging.format values.
var ValidLogFormats = []string{"console", "json"}

// LoggingConfig configures logging. Logs always go to stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json

	// Categories disables individual named loggers when set to false.
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Validate checks level and format names. Empty values fall back to defaults.
func (c *LoggingConfig) Validate() error {
	if c.Level != "" && !contains(ValidLogLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Level, ValidLogLevels)
	}
	if c.Format != "" && !contains(ValidLogFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("invalid logging.format: %s (valid: %v)", c.Format, ValidLogFormats)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
