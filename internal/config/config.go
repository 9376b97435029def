package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"api"`
	Workshop struct {
		ID string `yaml:"id"`
	} `yaml:"workshop"`
	Retry struct {
		BaseMs             int64 `yaml:"base_ms"`
		CapMs              int64 `yaml:"cap_ms"`
		JitterMs           int64 `yaml:"jitter_ms"`
		SubmissionAttempts int   `yaml:"submission_attempts"`
		BackgroundAttempts int   `yaml:"background_attempts"`
	} `yaml:"retry"`
	Cache struct {
		WorkshopStaleSeconds    int64 `yaml:"workshop_stale_seconds"`
		AnnotationsStaleSeconds int64 `yaml:"annotations_stale_seconds"`
		WorkshopPollSeconds     int64 `yaml:"workshop_poll_seconds"`
		AnnotationsPollSeconds  int64 `yaml:"annotations_poll_seconds"`
	} `yaml:"cache"`
	Session struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"session"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Retry.BaseMs == 0 {
		c.Retry.BaseMs = 1000
	}
	if c.Retry.CapMs == 0 {
		c.Retry.CapMs = 16000
	}
	if c.Retry.JitterMs == 0 {
		c.Retry.JitterMs = 1000
	}
	if c.Retry.SubmissionAttempts == 0 {
		c.Retry.SubmissionAttempts = 5
	}
	if c.Retry.BackgroundAttempts == 0 {
		c.Retry.BackgroundAttempts = 3
	}
	if c.Cache.WorkshopStaleSeconds == 0 {
		c.Cache.WorkshopStaleSeconds = 30
	}
	if c.Cache.AnnotationsStaleSeconds == 0 {
		c.Cache.AnnotationsStaleSeconds = 30
	}
	if c.Cache.WorkshopPollSeconds == 0 {
		c.Cache.WorkshopPollSeconds = 15
	}
	if c.Cache.AnnotationsPollSeconds == 0 {
		c.Cache.AnnotationsPollSeconds = 60
	}
	if c.Session.DBPath == "" {
		c.Session.DBPath = "session.db"
	}
}
