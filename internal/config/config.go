package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// RevealConfig controls the pacing of visible text output.
type RevealConfig struct {
	Interval      time.Duration `yaml:"interval"`
	BaseStep      int           `yaml:"base_step"`
	CatchupWindow int           `yaml:"catchup_window"`
}

// Config holds runtime configuration for the chat engine. It is constructed
// once in the command layer and passed down; packages never read it globally.
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	ChatPath       string        `yaml:"chat_path"`
	APIKey         string        `yaml:"api_key"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	DataDir        string        `yaml:"data_dir"`
	Reveal         RevealConfig  `yaml:"reveal"`
}

// Default returns the built-in configuration.
func Default() Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return Config{
		ServerURL:      "http://localhost:8787",
		ChatPath:       "/v1/chat",
		ConnectTimeout: 8 * time.Second,
		DataDir:        filepath.Join(homeDir, ".foldertalk"),
		Reveal: RevealConfig{
			Interval:      30 * time.Millisecond,
			BaseStep:      2,
			CatchupWindow: 40,
		},
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("FOLDERTALK_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("FOLDERTALK_API_KEY"); v != "" {
		cfg.APIKey = v
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 8 * time.Second
	}
	if cfg.Reveal.BaseStep <= 0 {
		cfg.Reveal.BaseStep = 2
	}
	if cfg.Reveal.CatchupWindow <= 0 {
		cfg.Reveal.CatchupWindow = 40
	}
	if cfg.Reveal.Interval <= 0 {
		cfg.Reveal.Interval = 30 * time.Millisecond
	}

	return cfg, nil
}
