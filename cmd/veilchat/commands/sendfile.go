package commands

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"veilchat/internal/contacts"
	"veilchat/internal/domain"
	"veilchat/internal/reconcile"
)

// send-file <partner> <path>: encrypt and send a whole file.
func sendFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-file <partner> <path>",
		Short: "Encrypt and send a file (5 MB cap)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partner := domain.Username(args[0])
			path := args[1]

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if len(data) > domain.MaxFileBytes {
				return fmt.Errorf("%w: %s is %d bytes", domain.ErrFileTooLarge, path, len(data))
			}
			mimeType := mime.TypeByExtension(filepath.Ext(path))
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}

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
			if err := rec.SendFile(cmd.Context(), filepath.Base(path), mimeType, data); err != nil {
				return err
			}
			fmt.Printf("sent %s (%d bytes)\n", filepath.Base(path), len(data))
			return nil
		},
	}
}
