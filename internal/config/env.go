package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// APIKeys holds credentials loaded from the environment.
type APIKeys struct {
	OpenAI        string
	WhisperServer string
}

// LoadEnv loads a .env file if one exists nearby. Absence is not an error;
// the keys may be set system-wide.
func LoadEnv() error {
	envPaths := []string{
		".env",
		".env.local",
		"../.env",
		"../../.env",
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			break
		}
	}
	return nil
}

// GetAPIKeys reads and sanity-checks the API keys.
func GetAPIKeys() (*APIKeys, error) {
	keys := &APIKeys{
		OpenAI:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		WhisperServer: strings.TrimSpace(os.Getenv("WHISPER_SERVER_API_KEY")),
	}

	if keys.OpenAI != "" {
		if !strings.HasPrefix(keys.OpenAI, "sk-") {
			return nil, fmt.Errorf("invalid OPENAI_API_KEY format: must start with 'sk-'")
		}
		if len(keys.OpenAI) < 20 {
			return nil, fmt.Errorf("invalid OPENAI_API_KEY format: too short")
		}
	}
	return keys, nil
}

// InitializeConfig loads the environment then the API keys.
func InitializeConfig() (*APIKeys, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	keys, err := GetAPIKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to get API keys: %w", err)
	}
	return keys, nil
}
