package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	// ConfigPathEnv names the deployment file; DefaultPath is used when unset.
	ConfigPathEnv = "CICD_CONFIG"
	DefaultPath   = "cicd.yaml"
)

// Path returns the deployment file path from CICD_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
