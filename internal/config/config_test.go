package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/petasbytes/graft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "claude-opus-4-5-20251101", cfg.DefaultModel)
	assert.Equal(t, "5m", cfg.CacheTTL)
	assert.Equal(t, cacheplan.TTL5m, cfg.TTL())
	assert.Equal(t, int64(8192), cfg.MaxTokens)
	assert.Zero(t, cfg.ThinkingBudget)
	assert.False(t, cfg.WebSearch)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "events.jsonl"), cfg.EventsPath)
	assert.Equal(t, filepath.Join(dir, "conversations"), cfg.ConversationsDir)
	assert.Zero(t, cfg.Retries)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	write(t, path, `
default_model = "claude-sonnet-4-5"
cache_ttl = "1h"
max_tokens = 16000
thinking_budget = 4096
web_search = true
events_path = ""
retries = 2
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5", cfg.DefaultModel)
	assert.Equal(t, cacheplan.TTL1h, cfg.TTL())
	assert.Equal(t, int64(16000), cfg.MaxTokens)
	assert.Equal(t, int64(4096), cfg.ThinkingBudget)
	assert.True(t, cfg.WebSearch)
	assert.Empty(t, cfg.EventsPath)
	assert.Equal(t, 2, cfg.Retries)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	write(t, path, "max_tokens = 1000\n")
	t.Setenv("GRAFT_MAX_TOKENS", "2000")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cfg.MaxTokens)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad ttl":          `cache_ttl = "2h"`,
		"zero max tokens":  `max_tokens = 0`,
		"small budget":     `thinking_budget = 100`,
		"budget over max":  "thinking_budget = 9000\nmax_tokens = 8192",
		"negative retries": `retries = -1`,
		"malformed toml":   `max_tokens = = 3`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			write(t, path, body+"\n")
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	wrote, err := config.WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = config.WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, wrote, "existing file is kept")

	fromFile, err := config.Load(path)
	require.NoError(t, err)
	defaults, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	fromFile.EventsPath, fromFile.ConversationsDir = "", ""
	defaults.EventsPath, defaults.ConversationsDir = "", ""
	assert.Equal(t, defaults, fromFile)
}

func TestDir_HonorsHomeEnv(t *testing.T) {
	t.Setenv(config.HomeEnv, "/tmp/graft-home")
	dir, err := config.Dir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/graft-home", dir)

	path, err := config.DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/graft-home/config.toml", path)
}
