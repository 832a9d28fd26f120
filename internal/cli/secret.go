package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/secrets"
	"golang.org/x/term"
)

func (a *app) newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets",
	}
	cmd.AddCommand(
		a.newSecretSetCmd(),
		a.newSecretGetCmd(),
		a.newSecretUpdateCmd(),
		a.newSecretDeleteCmd(),
		a.newSecretListCmd(),
	)
	return cmd
}

// readSecretValue returns the value argument, prompting without echo when it
// was not given on the command line.
func readSecretValue(args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	fmt.Fprint(os.Stderr, "Value: ")
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", common.NewValidationError("Failed to read value")
	}
	return string(value), nil
}

func expiryFromFlag(expiresIn time.Duration) *time.Time {
	if expiresIn == 0 {
		return nil
	}
	t := time.Now().Add(expiresIn)
	return &t
}

func (a *app) newSecretSetCmd() *cobra.Command {
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a secret (prompts for the value when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			value, err := readSecretValue(args)
			if err != nil {
				return err
			}
			if err := a.vault.StoreSecret(cmd.Context(), args[0], value, token, expiryFromFlag(expiresIn)); err != nil {
				return err
			}
			fmt.Printf("Stored %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "expire the secret after this duration (e.g. 24h)")
	return cmd
}

func (a *app) newSecretGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve and decrypt a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			secret, err := a.vault.GetSecret(cmd.Context(), args[0], token)
			if err != nil {
				return err
			}
			fmt.Println(secret.Value)
			return nil
		},
	}
}

func (a *app) newSecretUpdateCmd() *cobra.Command {
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "update <key> [value]",
		Short: "Replace an existing secret's value and expiry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			value, err := readSecretValue(args)
			if err != nil {
				return err
			}
			if err := a.vault.UpdateSecret(cmd.Context(), args[0], value, token, expiryFromFlag(expiresIn)); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "expire the secret after this duration (e.g. 24h)")
	return cmd
}

func (a *app) newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			if err := a.vault.DeleteSecret(cmd.Context(), args[0], token); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) newSecretListCmd() *cobra.Command {
	var includeExpired bool
	var pattern string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List secret keys and metadata (never values)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			infos, err := a.vault.ListSecrets(cmd.Context(), token, secrets.ListFilter{
				IncludeExpired: includeExpired,
				Pattern:        pattern,
			})
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No secrets")
				return nil
			}
			for _, info := range infos {
				expiry := "never"
				if info.ExpiresAt != nil {
					expiry = *info.ExpiresAt
				}
				fmt.Printf("%s\tcreated %s\tupdated %s\texpires %s\n", info.Key, info.CreatedAt, info.UpdatedAt, expiry)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeExpired, "include-expired", false, "include expired secrets")
	cmd.Flags().StringVar(&pattern, "pattern", "", "filter keys with * as a wildcard")
	return cmd
}
