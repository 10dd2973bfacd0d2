package config

import "fmt"

// LandmarksConfig configures landmark generation.
type LandmarksConfig struct {
	Strategy   string `yaml:"strategy"`    // exhaustive, backchain
	OnlyCausal bool   `yaml:"only_causal"` // discard non-causal landmarks after generation
}

// ValidStrategies lists all supported landmark generation strategies.
var ValidStrategies = []string{"exhaustive", "backchain"}

// ValidateLandmarks checks the landmarks section.
func (c *Config) ValidateLandmarks() error {
	for _, s := range ValidStrategies {
		if c.Landmarks.Strategy == s {
			return nil
		}
	}
	return fmt.Errorf("invalid landmark strategy: %s (valid: %v)", c.Landmarks.Strategy, ValidStrategies)
}
