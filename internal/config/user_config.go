package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds workspace-local settings from .plannerd/config.json.
// The logging package reads the same file directly at startup, so the
// logging section marshals to exactly the keys it expects.
type UserConfig struct {
	// Logging toggles picked up by the category loggers
	Logging LoggingConfig `json:"logging"`

	// Theme for the TUI ("light" or "dark")
	Theme string `json:"theme,omitempty"`

	// Workspace-local database path override
	DatabasePath string `json:"database_path,omitempty"`
}

// DefaultUserConfigPath returns the path to .plannerd/config.json in the
// workspace root.
func DefaultUserConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".plannerd", "config.json")
	}
	return filepath.Join(root, ".plannerd", "config.json")
}

// FindWorkspaceRoot walks up from the current directory looking for a
// .plannerd directory, falling back to the nearest go.mod.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".plannerd")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}

// LoadUserConfig loads configuration from .plannerd/config.json.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return empty config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to .plannerd/config.json.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}
