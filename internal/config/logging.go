package config

// LoggingConfig configures logging. The JSON tags match the keys the
// logging package reads from .plannerd/config.json at startup.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`             // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`   // Master toggle - false = no logging (production)
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`   // Per-category toggles
	JSONFormat bool            `yaml:"json_format" json:"json_format,omitempty"` // Structured JSON log entries
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}
