// Package config loads application configuration from a TOML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// apiKeyEnv names the environment variable holding the Gemini API key.
// The key is never written to the config file.
const apiKeyEnv = "GEMINI_API_KEY"

// Config represents the application configuration.
type Config struct {
	Scryfall ScryfallConfig `toml:"scryfall"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	App      AppConfig      `toml:"app"`
}

// ScryfallConfig contains card-data API settings.
type ScryfallConfig struct {
	BaseURL string `toml:"base_url"` // Scryfall API base URL
}

// GeminiConfig contains generative-text API settings.
type GeminiConfig struct {
	BaseURL          string `toml:"base_url"`          // Gemini API base URL
	Model            string `toml:"model"`             // Model name
	InferenceTimeout string `toml:"inference_timeout"` // Generation timeout (e.g., "120s")

	// APIKey is read from the GEMINI_API_KEY environment variable, not the
	// config file.
	APIKey string `toml:"-"`
}

// ServerConfig contains REST server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// StorageConfig contains guide-history database settings.
type StorageConfig struct {
	Enabled bool   `toml:"enabled"` // Persist generated guides
	Path    string `toml:"path"`    // SQLite file path ("" = default location)
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scryfall: ScryfallConfig{
			BaseURL: "https://api.scryfall.com",
		},
		Gemini: GeminiConfig{
			BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
			Model:            "gemini-1.5-flash",
			InferenceTimeout: "120s",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".deckguide", "config.toml"), nil
}

// DefaultDBPath returns the default guide-history database location.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".deckguide", "guides.db"), nil
}

// Load reads configuration from the given path, falling back to defaults
// for a missing file, then overlays environment values. A .env file in the
// working directory is honored if present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit files are the common case in dev only.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the configuration to the given path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays environment-supplied values.
func (c *Config) applyEnv() {
	if key := os.Getenv(apiKeyEnv); key != "" {
		c.Gemini.APIKey = key
	}
}

// Validate checks that the configuration can drive a generation.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("%s is not set", apiKeyEnv)
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini model is not set")
	}
	if c.Scryfall.BaseURL == "" {
		return fmt.Errorf("scryfall base URL is not set")
	}
	return nil
}
