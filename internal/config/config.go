// Package config provides configuration management for doctest_runner.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the current version of doctest_runner.
// This is set at build time via ldflags.
var Version = "dev"

// DefaultPageFile is the harness page opened relative to the working directory.
const DefaultPageFile = "phantom.html"

// minBufferSize is the smallest transcript buffer accepted by Validate.
const minBufferSize = 1024

// Config holds all configuration options for doctest_runner.
type Config struct {
	// Page
	PageFile string `yaml:"page_file"`

	// Browser
	Headless           bool          `yaml:"headless"`
	NoSandbox          bool          `yaml:"no_sandbox"`
	ChromePath         string        `yaml:"chrome_path"`
	RemotePort         string        `yaml:"remote_port"`
	ChromeStartTimeout time.Duration `yaml:"chrome_start_timeout"`

	// Transcript
	TranscriptDir string        `yaml:"transcript_dir"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`

	// Diagnostics
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		// Page
		PageFile: DefaultPageFile,

		// Browser
		Headless:           true,
		NoSandbox:          false,
		ChromePath:         "",
		RemotePort:         "",
		ChromeStartTimeout: 30 * time.Second,

		// Transcript
		TranscriptDir: "",
		FlushInterval: 100 * time.Millisecond,
		BufferSize:    8 * 1024, // 8 KB

		// Diagnostics
		LogLevel: "info",
	}
}

// LoadFromFile reads a YAML config file on top of the defaults.
// Keys missing from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// UsesRemoteChrome reports whether the runner attaches to an existing Chrome.
func (c *Config) UsesRemoteChrome() bool {
	return c.RemotePort != ""
}

// Validate checks the configuration for values the runner cannot work with.
func (c *Config) Validate() error {
	if c.PageFile == "" {
		return errors.New("page file must not be empty")
	}
	if c.ChromeStartTimeout <= 0 {
		return fmt.Errorf("chrome start timeout must be positive, got %v", c.ChromeStartTimeout)
	}
	if c.TranscriptDir != "" {
		if c.BufferSize < minBufferSize {
			return fmt.Errorf("buffer size must be at least %d bytes, got %d", minBufferSize, c.BufferSize)
		}
		if c.FlushInterval <= 0 {
			return fmt.Errorf("flush interval must be positive, got %v", c.FlushInterval)
		}
	}
	return nil
}
