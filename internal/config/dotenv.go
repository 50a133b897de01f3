package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envSource resolves a variable from the process environment first and the
// merged .env files second.
type envSource func(key string) (string, bool)

func processEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// loadDotEnv reads .env from the config directory and the working directory.
// The config directory's file takes precedence over the working directory's.
func loadDotEnv(configDir string) (envSource, error) {
	values := make(map[string]string)
	seen := make(map[string]struct{}, 2)
	for _, candidate := range []string{filepath.Join(configDir, ".env"), ".env"} {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat env file %s: %w", abs, err)
		}
		entries, err := godotenv.Read(abs)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", abs, err)
		}
		for key, value := range entries {
			if _, exists := values[key]; !exists {
				values[key] = value
			}
		}
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}
