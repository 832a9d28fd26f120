package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newInitCmd creates the vault database and master key. Both happen as a side
// effect of the shared setup; the command exists so first-run output is
// explicit rather than buried in another command's run.
func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault database and master key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Vault initialized at %s\n", a.cfg.DBPath)
			fmt.Println("Next: register a user with `vaultkey user register <userId>`")
			return nil
		},
	}
}
