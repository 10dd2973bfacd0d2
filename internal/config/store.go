package config

import "time"

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	BusyTimeout  string `yaml:"busy_timeout"`
}

// GetStoreBusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) GetStoreBusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Store.BusyTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
