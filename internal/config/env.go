package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvPaths returns the .env candidates in lookup order: ./.env, ~/.env and
// <dir>/.env.
func EnvPaths(dir string) []string {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".env"))
	}
	return append(paths, filepath.Join(dir, ".env"))
}

// LoadEnv parses the first file in paths that exists. The process
// environment is left untouched. No file at all yields an empty map.
func LoadEnv(paths ...string) (map[string]string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: stat %s: %w", p, err)
		}
		vars, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", p, err)
		}
		return vars, nil
	}
	return map[string]string{}, nil
}

// APIKey prefers the process environment over values read from .env files.
func APIKey(env map[string]string) string {
	if k := os.Getenv(APIKeyEnv); k != "" {
		return k
	}
	return env[APIKeyEnv]
}
