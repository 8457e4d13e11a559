// Package hopconfig persists the caller-tunable presets the engine reads:
// a chunk-size preset (desktop or mobile) and one set of Argon2id
// parameters, stored as JSON under ~/.hoplixi. The preset selects only
// the chunk size; the Argon2id parameters are the same for both.
package hopconfig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vartec/hoplixi/internal/hopcrypt"
)

// Config holds the presets a caller may persist between runs.
type Config struct {
	ChunkSizePreset string                `json:"chunk_size_preset"` // "desktop" or "mobile"
	Argon2          hopcrypt.Argon2Params `json:"argon2"`
}

// DefaultConfig returns the desktop preset.
func DefaultConfig() *Config {
	return &Config{
		ChunkSizePreset: "desktop",
		Argon2:          hopcrypt.DefaultArgon2Params(),
	}
}

// ChunkSize resolves the configured preset to a concrete byte count.
func (c *Config) ChunkSize() uint32 {
	if c.ChunkSizePreset == "mobile" {
		return hopcrypt.MobileChunkSize
	}
	return hopcrypt.DesktopChunkSize
}

// Dir returns the directory the config file lives in: ~/.hoplixi.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hoplixi"), nil
}

// Path returns the full path to config.json under Dir.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk, returning defaults if the file
// does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to disk, creating the config directory
// if necessary.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
