package config

import (
	"fmt"
	"time"
)

// BenchConfig configures the benchmark harness.
type BenchConfig struct {
	Parallelism int    `yaml:"parallelism"`  // concurrent tasks, 0 = GOMAXPROCS
	TaskTimeout string `yaml:"task_timeout"` // per-task wall clock budget
	Watch       bool   `yaml:"watch"`        // re-run the suite when task files change
}

// GetBenchTaskTimeout returns the per-task benchmark timeout as a duration.
func (c *Config) GetBenchTaskTimeout() time.Duration {
	d, err := time.ParseDuration(c.Bench.TaskTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ValidateBench checks the bench section.
func (c *Config) ValidateBench() error {
	if c.Bench.Parallelism < 0 {
		return fmt.Errorf("parallelism must be >= 0")
	}
	return nil
}
