package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vaultkey/vaultkey/internal/dbx"
	secretsrepo "github.com/vaultkey/vaultkey/internal/repositories/secrets"
	tokensrepo "github.com/vaultkey/vaultkey/internal/repositories/tokens"
	usersrepo "github.com/vaultkey/vaultkey/internal/repositories/users"
)

func (a *app) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}
	cmd.AddCommand(
		a.newTokenIssueCmd(),
		a.newTokenListCmd(),
		a.newTokenRevokeCmd(),
		a.newTokenCleanupCmd(),
	)
	return cmd
}

func (a *app) newTokenIssueCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue <userId>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueTTL := ttl
			if issueTTL == 0 {
				issueTTL = a.cfg.TokenTTL()
			}
			issued, err := a.vault.IssueTokenTTL(cmd.Context(), args[0], issueTTL)
			if err != nil {
				return err
			}
			fmt.Println("Token (shown once, store it safely):")
			fmt.Println(issued.Token)
			fmt.Printf("Expires at %s\n", issued.ExpiresAt)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from VAULTKEY_TOKEN_TTL)")
	return cmd
}

func (a *app) newTokenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the caller's valid tokens, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.bearerToken()
			if err != nil {
				return err
			}
			listed, err := a.vault.ListTokens(cmd.Context(), token)
			if err != nil {
				return err
			}
			for _, row := range listed {
				lastUsed := "never"
				if row.LastUsedAt != nil {
					lastUsed = *row.LastUsedAt
				}
				fmt.Printf("%s...\tcreated %s\texpires %s\tlast used %s\n", row.TokenHash[:12], row.CreatedAt, row.ExpiresAt, lastUsed)
			}
			return nil
		},
	}
}

func (a *app) newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [token]",
		Short: "Verify and revoke a bearer token (defaults to --token / VAULTKEY_TOKEN)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				token, err = a.bearerToken()
				if err != nil {
					return err
				}
			}
			if err := a.vault.RevokeToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Println("Token revoked")
			return nil
		},
	}
}

// newTokenCleanupCmd sweeps expired tokens and expired secrets in a single
// transaction, so a crash mid-sweep never leaves a half-cleaned vault.
func (a *app) newTokenCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired tokens and expired secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var removedTokens, removedSecrets int64

			err := dbx.WithTx(cmd.Context(), a.vault.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
				tokens := tokensrepo.NewSQLiteRepository(tx)
				secrets := secretsrepo.NewSQLiteRepository(tx)
				users := usersrepo.NewSQLiteRepository(tx)

				n, err := tokens.DeleteExpired(ctx)
				if err != nil {
					return err
				}
				removedTokens = n

				all, err := users.List(ctx)
				if err != nil {
					return err
				}
				for _, u := range all {
					n, err := secrets.DeleteExpired(ctx, u.UserID)
					if err != nil {
						return err
					}
					removedSecrets += n
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d expired tokens and %d expired secrets\n", removedTokens, removedSecrets)
			return nil
		},
	}
}
