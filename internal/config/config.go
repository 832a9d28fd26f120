// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/vaultkey/vaultkey/internal/common"
)

// Config holds the runtime knobs. Unset variables fall back to the defaults
// in the struct tags; DBPath additionally defaults to a file under the user's
// home directory.
type Config struct {
	DBPath           string `env:"VAULTKEY_DB_PATH"`
	AuthPort         int    `env:"VAULTKEY_AUTH_PORT" envDefault:"5432"`
	TokenTTLSeconds  int64  `env:"VAULTKEY_TOKEN_TTL" envDefault:"2592000"`
	MaxTokensPerUser int    `env:"VAULTKEY_MAX_TOKENS_PER_USER" envDefault:"5"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

// TokenTTL returns the configured token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// Load reads the environment. A variable that fails to parse (non-numeric
// port, TTL or cap) is a validation error, not a silent fallback.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, common.NewValidationError("Invalid configuration: " + err.Error())
	}

	if cfg.AuthPort < 1 || cfg.AuthPort > 65535 {
		return nil, common.NewValidationError("Invalid configuration: auth port out of range")
	}
	if cfg.MaxTokensPerUser < 1 {
		return nil, common.NewValidationError("Invalid configuration: max tokens per user must be positive")
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, common.NewValidationError("Invalid configuration: cannot resolve home directory")
		}
		cfg.DBPath = filepath.Join(home, ".vaultkey", "vaultkey.db")
	}

	return cfg, nil
}
