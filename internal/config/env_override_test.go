package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Paths(t *testing.T) {
	t.Run("PLANNERD_DB overrides database path", func(t *testing.T) {
		t.Setenv("PLANNERD_DB", "/tmp/env.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/env.db", cfg.Store.DatabasePath)
	})

	t.Run("PLANNERD_TASKS overrides tasks dir", func(t *testing.T) {
		t.Setenv("PLANNERD_TASKS", "/srv/tasks")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/srv/tasks", cfg.Tasks.Dir)
	})

	t.Run("empty vars leave defaults alone", func(t *testing.T) {
		t.Setenv("PLANNERD_DB", "")
		t.Setenv("PLANNERD_TASKS", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "data/plannerd.db", cfg.Store.DatabasePath)
		assert.Equal(t, "tasks", cfg.Tasks.Dir)
	})
}

func TestEnvOverrides_PlannerSelection(t *testing.T) {
	t.Run("PLANNERD_HEURISTIC overrides kind", func(t *testing.T) {
		t.Setenv("PLANNERD_HEURISTIC", "additive")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "additive", cfg.Heuristic.Kind)
	})

	t.Run("PLANNERD_STRATEGY overrides strategy", func(t *testing.T) {
		t.Setenv("PLANNERD_STRATEGY", "exhaustive")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "exhaustive", cfg.Landmarks.Strategy)
	})

	t.Run("override beats file value on Load", func(t *testing.T) {
		t.Setenv("PLANNERD_HEURISTIC", "additive")
		t.Setenv("PLANNERD_DB", "")
		t.Setenv("PLANNERD_TASKS", "")
		t.Setenv("PLANNERD_STRATEGY", "")

		path := filepath.Join(t.TempDir(), "config.yaml")
		cfg := DefaultConfig()
		cfg.Heuristic.Kind = "ff"
		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		assert.Equal(t, "additive", loaded.Heuristic.Kind)
	})
}

func TestEnvOverrides_Debug(t *testing.T) {
	t.Run("PLANNERD_DEBUG=1 enables debug mode", func(t *testing.T) {
		t.Setenv("PLANNERD_DEBUG", "1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("PLANNERD_DEBUG=true enables debug mode", func(t *testing.T) {
		t.Setenv("PLANNERD_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("PLANNERD_DEBUG=0 does not force debug off", func(t *testing.T) {
		t.Setenv("PLANNERD_DEBUG", "0")

		cfg := DefaultConfig()
		cfg.Logging.DebugMode = true
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})
}
