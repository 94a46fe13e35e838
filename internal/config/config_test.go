package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Page defaults
	if cfg.PageFile != "phantom.html" {
		t.Errorf("expected PageFile phantom.html, got %s", cfg.PageFile)
	}

	// Browser defaults
	if cfg.Headless != true {
		t.Errorf("expected Headless true, got %v", cfg.Headless)
	}
	if cfg.NoSandbox != false {
		t.Errorf("expected NoSandbox false, got %v", cfg.NoSandbox)
	}
	if cfg.RemotePort != "" {
		t.Errorf("expected empty RemotePort, got %s", cfg.RemotePort)
	}
	if cfg.ChromeStartTimeout != 30*time.Second {
		t.Errorf("expected ChromeStartTimeout 30s, got %v", cfg.ChromeStartTimeout)
	}
	if cfg.UsesRemoteChrome() {
		t.Error("expected default config to launch its own Chrome")
	}

	// Transcript defaults
	if cfg.TranscriptDir != "" {
		t.Errorf("expected empty TranscriptDir, got %s", cfg.TranscriptDir)
	}
	if cfg.FlushInterval != 100*time.Millisecond {
		t.Errorf("expected FlushInterval 100ms, got %v", cfg.FlushInterval)
	}
	if cfg.BufferSize != 8*1024 {
		t.Errorf("expected BufferSize 8192, got %d", cfg.BufferSize)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", cfg.LogLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
page_file: "harness.html"
headless: false
no_sandbox: true
chrome_path: "/opt/chrome/chrome"
remote_port: "9223"
chrome_start_timeout: 5s
transcript_dir: "./runs"
flush_interval: 200ms
buffer_size: 16384
log_level: debug
`

	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.PageFile != "harness.html" {
		t.Errorf("expected PageFile harness.html, got %s", cfg.PageFile)
	}
	if cfg.Headless != false {
		t.Errorf("expected Headless false, got %v", cfg.Headless)
	}
	if cfg.NoSandbox != true {
		t.Errorf("expected NoSandbox true, got %v", cfg.NoSandbox)
	}
	if cfg.ChromePath != "/opt/chrome/chrome" {
		t.Errorf("expected ChromePath /opt/chrome/chrome, got %s", cfg.ChromePath)
	}
	if cfg.RemotePort != "9223" {
		t.Errorf("expected RemotePort 9223, got %s", cfg.RemotePort)
	}
	if !cfg.UsesRemoteChrome() {
		t.Error("expected remote Chrome when remote_port is set")
	}
	if cfg.ChromeStartTimeout != 5*time.Second {
		t.Errorf("expected ChromeStartTimeout 5s, got %v", cfg.ChromeStartTimeout)
	}
	if cfg.TranscriptDir != "./runs" {
		t.Errorf("expected TranscriptDir ./runs, got %s", cfg.TranscriptDir)
	}
	if cfg.FlushInterval != 200*time.Millisecond {
		t.Errorf("expected FlushInterval 200ms, got %v", cfg.FlushInterval)
	}
	if cfg.BufferSize != 16384 {
		t.Errorf("expected BufferSize 16384, got %d", cfg.BufferSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel debug, got %s", cfg.LogLevel)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFilePartialConfig(t *testing.T) {
	// Config file with only some values should use defaults for others
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	configContent := `
no_sandbox: true
transcript_dir: "./partial_runs"
`

	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.NoSandbox != true {
		t.Errorf("expected NoSandbox true, got %v", cfg.NoSandbox)
	}
	if cfg.TranscriptDir != "./partial_runs" {
		t.Errorf("expected TranscriptDir ./partial_runs, got %s", cfg.TranscriptDir)
	}

	// Verify defaults are preserved
	if cfg.PageFile != DefaultPageFile {
		t.Errorf("expected PageFile default %s, got %s", DefaultPageFile, cfg.PageFile)
	}
	if cfg.Headless != true {
		t.Errorf("expected Headless default true, got %v", cfg.Headless)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty page file",
			modify:  func(c *Config) { c.PageFile = "" },
			wantErr: true,
		},
		{
			name:    "zero chrome start timeout",
			modify:  func(c *Config) { c.ChromeStartTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "small buffer ignored without transcript",
			modify:  func(c *Config) { c.BufferSize = 100 },
			wantErr: false,
		},
		{
			name: "buffer size too small with transcript",
			modify: func(c *Config) {
				c.TranscriptDir = "./runs"
				c.BufferSize = 100
			},
			wantErr: true,
		},
		{
			name: "zero flush interval with transcript",
			modify: func(c *Config) {
				c.TranscriptDir = "./runs"
				c.FlushInterval = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
