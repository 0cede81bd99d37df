// Package config loads vienna-cli settings from YAML with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel slog.Level     `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Render   RenderConfig   `yaml:"render"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Export   ExportConfig   `yaml:"export"`
}

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// Migrations overrides the embedded schema with a directory of .sql files.
	Migrations string `yaml:"migrations"`
}

func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RenderConfig controls the HTML article view.
type RenderConfig struct {
	TemplatePath  string `yaml:"template"`
	StylesheetURL string `yaml:"stylesheet"`
	ScriptURL     string `yaml:"script"`
	DateLayout    string `yaml:"date_layout"`
}

func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DateLayout, validation.Required),
	)
}

// Template returns the contents of the configured template file, or "" when
// none is set.
func (c *RenderConfig) Template() (string, error) {
	if c.TemplatePath == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TemplatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", c.TemplatePath, err)
	}
	return string(data), nil
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"`
	UserAgent string        `yaml:"user_agent"`
	Limit     int           `yaml:"limit"`
}

func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Delay, validation.Min(time.Duration(0))),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.Limit, validation.Min(0)),
	)
}

type ExportConfig struct {
	Directory string `yaml:"directory"`
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Database: DatabaseConfig{
			Path: "vienna.sqlite",
		},
		Render: RenderConfig{
			DateLayout: "2006-01-02 15:04",
		},
		Fetch: FetchConfig{
			Timeout:   20 * time.Second,
			Delay:     500 * time.Millisecond,
			UserAgent: "vienna-cli/1.0",
			Limit:     10,
		},
		Export: ExportConfig{
			Directory: "export",
		},
	}
}

// Load reads filename over the defaults. A missing file is not an error.
func Load(filename string) (*Config, error) {
	cfg := NewDefaultConfig()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
