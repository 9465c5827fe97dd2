// Package config loads the engine's YAML configuration.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/leasevault/internal/crypto"
)

// MasterKeyEnv is the environment variable consulted when no key file is
// configured. It holds the base64-encoded 32-byte master key.
const MasterKeyEnv = "LEASEVAULT_MASTER_KEY"

// Config is the engine configuration.
type Config struct {
	// MasterKeyFile points at a file holding the base64-encoded master key.
	// When empty, the key is read from the LEASEVAULT_MASTER_KEY variable.
	MasterKeyFile string `yaml:"master_key_file"`

	// SweepSchedule is the cron spec for the pruning recovery sweep.
	SweepSchedule string `yaml:"sweep_schedule"`

	Debug   bool `yaml:"debug"`
	NoColor bool `yaml:"no_color"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{SweepSchedule: "@every 1m"}
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.SweepSchedule == "" {
		return fmt.Errorf("sweep_schedule must not be empty")
	}
	return nil
}

// MasterKey loads and decodes the master key from the configured source.
// The caller should zero the returned slice once the codec holds its copy.
func (c Config) MasterKey() ([]byte, error) {
	var encoded string
	if c.MasterKeyFile != "" {
		data, err := os.ReadFile(c.MasterKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading master key file: %w", err)
		}
		encoded = strings.TrimSpace(string(data))
	} else {
		encoded = os.Getenv(MasterKeyEnv)
		if encoded == "" {
			return nil, fmt.Errorf("no master key: set master_key_file or %s", MasterKeyEnv)
		}
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid base64")
	}
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("master key must decode to %d bytes, got %d", crypto.KeySize, len(key))
	}
	return key, nil
}
