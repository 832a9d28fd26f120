// Package cli implements the vaultkey command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vaultkey/vaultkey/internal/client"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/config"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/masterkey"
	"github.com/vaultkey/vaultkey/internal/passkey"
	"golang.org/x/term"
)

// app carries the wiring shared by all commands. It is assembled by the root
// command's PersistentPreRunE and torn down after the run.
type app struct {
	cfg   *config.Config
	log   logging.Logger
	vault *client.VaultClient

	// persistent flags
	dbPath        string
	masterKeyFlag string
	masterKeyFile string
	usePassphrase bool
	tokenFlag     string
}

// Execute runs the CLI and returns its exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "vaultkey",
		Short:         "Local secrets vault with passkey authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db-path", "", "path to the vault database (default from VAULTKEY_DB_PATH)")
	root.PersistentFlags().StringVar(&a.masterKeyFlag, "master-key", "", "encryption key as 64 hex characters")
	root.PersistentFlags().StringVar(&a.masterKeyFile, "master-key-file", "", "file containing the encryption key")
	root.PersistentFlags().BoolVar(&a.usePassphrase, "passphrase", false, "derive the encryption key from a prompted passphrase")
	root.PersistentFlags().StringVar(&a.tokenFlag, "token", "", "bearer token (default from VAULTKEY_TOKEN)")

	root.AddCommand(
		a.newInitCmd(),
		a.newUserCmd(),
		a.newSecretCmd(),
		a.newTokenCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return common.NewValidationError("Failed to create database directory: " + filepath.Dir(cfg.DBPath))
	}

	key, err := a.resolveMasterKey(ctx)
	if err != nil {
		return err
	}

	origin := fmt.Sprintf("http://localhost:%d", cfg.AuthPort)
	a.vault, err = client.New(ctx, client.Options{
		DBPath:           cfg.DBPath,
		MasterKey:        key,
		TokenTTL:         cfg.TokenTTL(),
		MaxTokensPerUser: cfg.MaxTokensPerUser,
		RelyingParty: passkey.Config{
			RPID:          "localhost",
			RPDisplayName: "VaultKey",
			RPOrigins:     []string{origin},
		},
		Logger: a.log,
	})
	return err
}

func (a *app) teardown() error {
	if a.vault == nil {
		return nil
	}
	return a.vault.Close()
}

func (a *app) resolveMasterKey(ctx context.Context) (string, error) {
	loader := masterkey.NewLoader(a.log)

	if a.usePassphrase {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		passphrase, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", common.NewValidationError("Failed to read passphrase")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", common.NewValidationError("Cannot resolve home directory")
		}
		saltPath := filepath.Join(home, ".vaultkey", "salt")
		return loader.FromPassphrase(ctx, string(passphrase), saltPath)
	}

	return loader.Load(ctx, a.masterKeyFlag, a.masterKeyFile)
}

// bearerToken resolves the token for authenticated commands: the --token flag
// first, then the VAULTKEY_TOKEN environment variable.
func (a *app) bearerToken() (string, error) {
	if a.tokenFlag != "" {
		return a.tokenFlag, nil
	}
	if token := os.Getenv("VAULTKEY_TOKEN"); token != "" {
		return token, nil
	}
	return "", common.NewValidationError("Token is required (use --token or VAULTKEY_TOKEN)")
}
