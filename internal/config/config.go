// Package config provides unified configuration management for planNERD.
// Configuration is layered: built-in defaults, then the YAML config file,
// then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all planNERD configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Task loading
	Tasks TasksConfig `yaml:"tasks"`

	// Heuristic evaluation
	Heuristic HeuristicConfig `yaml:"heuristic"`

	// Landmark generation
	Landmarks LandmarksConfig `yaml:"landmarks"`

	// Search engine
	Search SearchConfig `yaml:"search"`

	// Run store (SQLite)
	Store StoreConfig `yaml:"store"`

	// Benchmark harness
	Bench BenchConfig `yaml:"bench"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TasksConfig configures task loading.
type TasksConfig struct {
	Dir    string `yaml:"dir"`    // directory scanned for task files
	Format string `yaml:"format"` // yaml, mangle, auto
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "planNERD",
		Version: "0.3.0",

		Tasks: TasksConfig{
			Dir:    "tasks",
			Format: "auto",
		},

		Heuristic: HeuristicConfig{
			Kind: "ff",
		},

		Landmarks: LandmarksConfig{
			Strategy:   "backchain",
			OnlyCausal: false,
		},

		Search: SearchConfig{
			MaxExpansions: 0,
			Boost:         1000,
			Timeout:       "300s",
		},

		Store: StoreConfig{
			DatabasePath: "data/plannerd.db",
			BusyTimeout:  "5s",
		},

		Bench: BenchConfig{
			Parallelism: 4,
			TaskTimeout: "60s",
			Watch:       false,
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
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
	// Paths from environment
	if path := os.Getenv("PLANNERD_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("PLANNERD_TASKS"); dir != "" {
		c.Tasks.Dir = dir
	}

	// Planner selection from environment
	if kind := os.Getenv("PLANNERD_HEURISTIC"); kind != "" {
		c.Heuristic.Kind = kind
	}
	if strategy := os.Getenv("PLANNERD_STRATEGY"); strategy != "" {
		c.Landmarks.Strategy = strategy
	}

	// Debug logging toggle
	if v := os.Getenv("PLANNERD_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateHeuristic(); err != nil {
		return err
	}
	if err := c.ValidateLandmarks(); err != nil {
		return err
	}
	if err := c.ValidateSearch(); err != nil {
		return err
	}
	if err := c.ValidateBench(); err != nil {
		return err
	}
	return nil
}
