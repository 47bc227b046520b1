package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the dotenv files present in dir, first match wins:
// .env.<APP_ENV>.local, .env.local, .env.<APP_ENV>, .env
// Variables already set in the process are never overwritten.
// Returns the files actually loaded.
func LoadDotEnv(dir string) ([]string, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	candidates := []string{".env." + env + ".local", ".env.local", ".env." + env, ".env"}
	seen := make(map[string]bool, len(candidates))
	var loaded []string
	for _, name := range candidates {
		if seen[name] {
			continue
		}
		seen[name] = true
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			loaded = append(loaded, path)
		}
	}
	if len(loaded) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(loaded...); err != nil {
		return loaded, fmt.Errorf("load env files %v: %w", loaded, err)
	}
	return loaded, nil
}
