package config

import (
	"fmt"
	"time"
)

// SearchConfig configures the lazy greedy search engine.
type SearchConfig struct {
	MaxExpansions int    `yaml:"max_expansions"` // 0 = unlimited
	Boost         int    `yaml:"boost"`          // preferred-list credit per heuristic improvement
	Timeout       string `yaml:"timeout"`        // wall clock budget for a single solve
}

// GetSearchTimeout returns the search timeout as a duration.
func (c *Config) GetSearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// ValidateSearch checks the search section.
func (c *Config) ValidateSearch() error {
	if c.Search.MaxExpansions < 0 {
		return fmt.Errorf("max_expansions must be >= 0")
	}
	if c.Search.Boost < 0 {
		return fmt.Errorf("boost must be >= 0")
	}
	return nil
}
