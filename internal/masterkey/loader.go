// Package masterkey resolves the encryption key from the explicit flags, the
// environment, or a key file, generating and saving a fresh key on first run.
package masterkey

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/cryptox"
	"github.com/vaultkey/vaultkey/internal/logging"
)

const (
	// EnvEncryptionKey and EnvMasterKey both carry a key value directly;
	// EnvMasterKeyFile points at a key file.
	EnvEncryptionKey = "VAULTKEY_ENCRYPTION_KEY"
	EnvMasterKey     = "VAULTKEY_MASTER_KEY"
	EnvMasterKeyFile = "VAULTKEY_MASTER_KEY_FILE"

	defaultDirName  = ".vaultkey"
	defaultFileName = "master.key"

	saltSize = 16
)

// Loader resolves master keys. The environment and home lookups are
// injectable for tests.
type Loader struct {
	log    logging.Logger
	getenv func(string) string
	home   func() (string, error)
}

// NewLoader constructs a loader over the real environment.
func NewLoader(log logging.Logger) *Loader {
	return &Loader{log: log, getenv: os.Getenv, home: os.UserHomeDir}
}

// Load resolves the master key. Precedence: explicit key, explicit key file,
// VAULTKEY_ENCRYPTION_KEY, VAULTKEY_MASTER_KEY, VAULTKEY_MASTER_KEY_FILE, the
// default key file under the home directory. When nothing is found, a fresh
// key is generated and saved to the default file.
func (l *Loader) Load(ctx context.Context, explicitKey, explicitFile string) (string, error) {
	if explicitKey != "" {
		if err := common.ValidateMasterKey(explicitKey); err != nil {
			return "", err
		}
		return explicitKey, nil
	}
	if explicitFile != "" {
		return l.readKeyFile(ctx, explicitFile)
	}
	if key := l.getenv(EnvEncryptionKey); key != "" {
		if err := common.ValidateMasterKey(key); err != nil {
			return "", err
		}
		return key, nil
	}
	if key := l.getenv(EnvMasterKey); key != "" {
		if err := common.ValidateMasterKey(key); err != nil {
			return "", err
		}
		return key, nil
	}
	if path := l.getenv(EnvMasterKeyFile); path != "" {
		return l.readKeyFile(ctx, path)
	}

	path, err := l.defaultKeyPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return l.readKeyFile(ctx, path)
	}
	return l.generateAndSave(ctx, path)
}

func (l *Loader) defaultKeyPath() (string, error) {
	home, err := l.home()
	if err != nil {
		return "", common.NewValidationError("Cannot resolve home directory for master key file")
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

func (l *Loader) readKeyFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", common.NewValidationError("Master key file not found: " + path)
	}
	if info.Mode().Perm()&0o077 != 0 {
		l.log.Warn(ctx, "master key file permissions are too open", "path", path, "mode", info.Mode().Perm().String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", common.NewValidationError("Failed to read master key file: " + path)
	}
	key := strings.TrimSpace(string(data))
	if err := common.ValidateMasterKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func (l *Loader) generateAndSave(ctx context.Context, path string) (string, error) {
	key, err := cryptox.GenerateMasterKey()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", common.NewValidationError("Failed to create master key directory: " + filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", common.NewValidationError("Failed to write master key file: " + path)
	}

	l.log.Info(ctx, "generated new master key", "path", path)
	return key, nil
}

// FromPassphrase derives the master key from a passphrase with argon2id. The
// salt lives in saltPath and is created on first use, so the same passphrase
// keeps yielding the same key on this machine.
func (l *Loader) FromPassphrase(ctx context.Context, passphrase, saltPath string) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", common.NewValidationError("Passphrase is required")
	}

	salt, err := l.loadOrCreateSalt(ctx, saltPath)
	if err != nil {
		return "", err
	}
	return cryptox.DeriveMasterKey([]byte(passphrase), salt), nil
}

func (l *Loader) loadOrCreateSalt(ctx context.Context, path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		if len(data) != saltSize {
			return nil, common.NewValidationError("Invalid salt file: " + path)
		}
		return data, nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, common.NewCryptoError("Failed to generate salt")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, common.NewValidationError("Failed to create salt directory: " + filepath.Dir(path))
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, common.NewValidationError("Failed to write salt file: " + path)
	}

	l.log.Info(ctx, "generated new passphrase salt", "path", path)
	return salt, nil
}
