package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFileNames = []string{".env", ".env.local"}

// loadEnvFiles loads the first .env/.env.local found in dir. Variables
// already present in the process environment are not overwritten.
func loadEnvFiles(dir string) error {
	for _, name := range envFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		return nil
	}
	return errors.New("no .env file found")
}
