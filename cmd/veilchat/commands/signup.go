package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"veilchat/internal/domain"
)

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create the local identity and publish its public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("username required (-u)")
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			_, fp, err := wire.Identity.Signup(cmd.Context(), domain.Username(username), passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Identity created for %s.\nFingerprint: %s\n", username, fp)
			return nil
		},
	}
}
