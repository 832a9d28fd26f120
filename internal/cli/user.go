package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vaultkey/vaultkey/internal/authserver"
)

func (a *app) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage vault users",
	}
	cmd.AddCommand(a.newUserRegisterCmd(), a.newUserLoginCmd(), a.newUserListCmd(), a.newUserDeleteCmd())
	return cmd
}

func (a *app) newUserRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <userId>",
		Short: "Register a passkey for a user (creates the user on first registration)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := authserver.New(a.vault, args[0], authserver.ModeRegister, a.cfg.AuthPort, a.log)
			fmt.Printf("Open %s in your browser to register a passkey for %s\n", srv.URL(), args[0])

			result, err := srv.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Passkey registered for %s (credential %s)\n", args[0], result.Passkey.CredentialID)
			return nil
		},
	}
}

func (a *app) newUserLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <userId>",
		Short: "Authenticate with a passkey and print a new bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := authserver.New(a.vault, args[0], authserver.ModeLogin, a.cfg.AuthPort, a.log)
			fmt.Printf("Open %s in your browser to sign in as %s\n", srv.URL(), args[0])

			result, err := srv.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("Authenticated. Your token (shown once, store it safely):")
			fmt.Println(result.Token.Token)
			fmt.Printf("Expires at %s\n", result.Token.ExpiresAt)
			return nil
		},
	}
}

func (a *app) newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vault users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.vault.Users().List(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No users")
				return nil
			}
			for _, u := range users {
				lastLogin := "never"
				if u.LastLoginAt != nil {
					lastLogin = *u.LastLoginAt
				}
				fmt.Printf("%s\tcreated %s\tlast login %s\n", u.UserID, u.CreatedAt, lastLogin)
			}
			return nil
		},
	}
}

func (a *app) newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <userId>",
		Short: "Delete a user and, via cascade, all their tokens and secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.vault.Users().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted user %s\n", args[0])
			return nil
		},
	}
}
