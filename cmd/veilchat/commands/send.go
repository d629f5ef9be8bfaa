package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"veilchat/internal/contacts"
	"veilchat/internal/domain"
	"veilchat/internal/reconcile"
)

// send <partner> <message>: encrypt and send one message.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <partner> <message>",
		Short: "Encrypt and send a single message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partner := domain.Username(args[0])
			sess, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			reg := contacts.New(sess.Username(), wire.Replica, wire.Directory, wire.Cache, wire.Log)
			defer reg.Close()
			if _, err := reg.Load(nil); err != nil {
				return err
			}
			if _, err := reg.StartChat(cmd.Context(), partner); err != nil {
				return err
			}

			rec := reconcile.New(sess.Username(), wire.Replica, sess, wire.Cache, wire.Log)
			defer rec.Close()
			if err := rec.Open(cmd.Context(), partner, nil); err != nil {
				return err
			}
			if err := rec.Send(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
