// Package config loads user settings from ~/.graft/config.toml and the API
// key from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/spf13/viper"
)

const (
	// HomeEnv overrides the settings directory.
	HomeEnv = "GRAFT_HOME"
	// APIKeyEnv names the Anthropic API key variable.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	fileName = "config.toml"
)

// Config holds user settings. Every key may also be set through the
// environment as GRAFT_<KEY>, e.g. GRAFT_MAX_TOKENS.
type Config struct {
	DefaultModel     string `mapstructure:"default_model"`
	CacheTTL         string `mapstructure:"cache_ttl"`
	MaxTokens        int64  `mapstructure:"max_tokens"`
	ThinkingBudget   int64  `mapstructure:"thinking_budget"` // 0 disables, >= 1024 enables
	WebSearch        bool   `mapstructure:"web_search"`
	LogLevel         string `mapstructure:"log_level"`
	EventsPath       string `mapstructure:"events_path"` // empty disables event recording
	ConversationsDir string `mapstructure:"conversations_dir"`
	Retries          int    `mapstructure:"retries"` // transport retries per turn
}

// Dir returns the settings directory: $GRAFT_HOME or ~/.graft.
func Dir() (string, error) {
	if d := os.Getenv(HomeEnv); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home dir: %w", err)
	}
	return filepath.Join(home, ".graft"), nil
}

// DefaultPath returns the config file location inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("default_model", "claude-opus-4-5-20251101")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("max_tokens", 8192)
	v.SetDefault("thinking_budget", 0)
	v.SetDefault("web_search", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("events_path", filepath.Join(dir, "events.jsonl"))
	v.SetDefault("conversations_dir", filepath.Join(dir, "conversations"))
	v.SetDefault("retries", 0)
}

// Load reads path, or DefaultPath when path is empty. A missing file is not
// an error; defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v, filepath.Dir(path))
	v.SetEnvPrefix("GRAFT")
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.EventsPath = expandHome(cfg.EventsPath)
	cfg.ConversationsDir = expandHome(cfg.ConversationsDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := cacheplan.ParseTTL(c.CacheTTL); err != nil {
		return fmt.Errorf("config: cache_ttl: %w", err)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.ThinkingBudget != 0 && c.ThinkingBudget < 1024 {
		return fmt.Errorf("config: thinking_budget must be 0 or at least 1024, got %d", c.ThinkingBudget)
	}
	if c.ThinkingBudget >= c.MaxTokens && c.ThinkingBudget != 0 {
		return fmt.Errorf("config: thinking_budget (%d) must be below max_tokens (%d)", c.ThinkingBudget, c.MaxTokens)
	}
	if c.Retries < 0 {
		return fmt.Errorf("config: retries must not be negative, got %d", c.Retries)
	}
	return nil
}

// TTL returns the parsed cache TTL. Validate has already accepted it.
func (c *Config) TTL() cacheplan.TTL {
	ttl, _ := cacheplan.ParseTTL(c.CacheTTL)
	return ttl
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

const defaultFile = `# graft configuration

# Default model for new conversations
default_model = "claude-opus-4-5-20251101"

# Prompt cache TTL: "5m", "1h", or "off"
cache_ttl = "5m"

# Maximum response tokens
max_tokens = 8192

# Extended thinking budget: 0 disables, 1024 or more enables
thinking_budget = 0

# Enable web search by default: true or false
# Costs $10 per 1,000 searches. Must be enabled in Anthropic Console.
web_search = false

# Log level on stderr: debug, info, warn, error, off
log_level = "warn"

# Transport retries per turn, with exponential backoff
retries = 0
`

// WriteDefault writes a commented default config to path unless a file is
// already there. It reports whether it wrote one.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultFile), 0o644); err != nil {
		return false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return true, nil
}
