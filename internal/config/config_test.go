package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultkey/vaultkey/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"VAULTKEY_DB_PATH", "VAULTKEY_AUTH_PORT", "VAULTKEY_TOKEN_TTL", "VAULTKEY_MAX_TOKENS_PER_USER", "LOG_LEVEL"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.AuthPort)
	assert.Equal(t, 5, cfg.MaxTokensPerUser)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.DBPath, ".vaultkey")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VAULTKEY_DB_PATH", "/tmp/test-vault.db")
	t.Setenv("VAULTKEY_AUTH_PORT", "8080")
	t.Setenv("VAULTKEY_TOKEN_TTL", "3600")
	t.Setenv("VAULTKEY_MAX_TOKENS_PER_USER", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test-vault.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.AuthPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, 2, cfg.MaxTokensPerUser)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadNumerics(t *testing.T) {
	cases := map[string]struct{ name, value string }{
		"non-numeric port": {"VAULTKEY_AUTH_PORT", "not-a-port"},
		"non-numeric ttl":  {"VAULTKEY_TOKEN_TTL", "soon"},
		"non-numeric cap":  {"VAULTKEY_MAX_TOKENS_PER_USER", "many"},
		"port out of range": {"VAULTKEY_AUTH_PORT", "70000"},
		"zero cap":          {"VAULTKEY_MAX_TOKENS_PER_USER", "0"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.name, tc.value)
			_, err := Load()
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}
