package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"veilchat/internal/app"
	"veilchat/internal/domain"
	"veilchat/internal/session"
)

var (
	home       string
	relayURL   string
	username   string
	passphrase string

	wire *app.Wire
)

// Execute runs the veilchat CLI.
func Execute() error {
	root := &cobra.Command{
		Use:   "veilchat",
		Short: "End-to-end encrypted chat over an untrusted replicated store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			wire, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.veilchat)")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVarP(&username, "username", "u", "", "your username")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting your keys")

	root.AddCommand(signupCmd(), fingerprintCmd(), contactsCmd(), chatCmd(), sendCmd(), sendFileCmd())
	return root.Execute()
}

// login unwraps the local identity and opens a session for it.
func login(ctx context.Context) (*session.Session, error) {
	if username == "" {
		return nil, fmt.Errorf("username required (-u)")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}
	id, err := wire.Identity.Login(ctx, domain.Username(username), passphrase)
	if err != nil {
		return nil, err
	}
	return session.New(id, wire.Directory, wire.Log), nil
}
