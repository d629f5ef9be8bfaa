package commands

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"veilchat/internal/contacts"
	"veilchat/internal/domain"
	"veilchat/internal/reconcile"
)

// chat <partner>: interactive encrypted chat. Lines typed are sent;
// /quit leaves.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <partner>",
		Short: "Open an interactive encrypted chat with a partner",
		Args:  cobra.ExactArgs(1),
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
			// A partner whose registration entry never reached our list
			// still shows up in the contacts once their messages arrive.
			rec.OnContact(reg.Observe)

			shown := make(map[string]bool)
			err = rec.Open(cmd.Context(), partner, func(timeline []domain.RenderedMessage) {
				for _, m := range timeline {
					if shown[m.Key] {
						continue
					}
					shown[m.Key] = true
					printMessage(m)
				}
			})
			if err != nil {
				return err
			}

			fmt.Printf("Chatting with %s. Type a message, or /quit to leave.\n", partner)
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				line := sc.Text()
				if line == "/quit" {
					return nil
				}
				if line == "" {
					continue
				}
				if err := rec.Send(cmd.Context(), line); err != nil {
					fmt.Fprintf(os.Stderr, "send failed: %v (you can retry)\n", err)
				}
			}
			return sc.Err()
		},
	}
}

func printMessage(m domain.RenderedMessage) {
	ts := time.UnixMilli(m.SentAt).Format("15:04:05")
	switch {
	case m.IsFile && !m.Failed:
		fmt.Printf("[%s] %s sent a file: %s (%d bytes, %s)\n", ts, m.Sender, m.FileName, len(m.Data), m.MimeType)
	default:
		fmt.Printf("[%s] %s: %s\n", ts, m.Sender, m.Text)
	}
}
