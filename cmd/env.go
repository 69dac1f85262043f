package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles returns the .env files to load, most specific first.
// godotenv.Load never overrides variables that are already set, so earlier
// files win.
func envFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "ai-gateway", ".env"))
	}
	return files
}

// loadEnvFiles loads every existing .env file into the process environment.
func loadEnvFiles() {
	for _, f := range envFiles() {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}
