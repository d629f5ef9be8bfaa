package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"veilchat/internal/contacts"
	"veilchat/internal/domain"
)

func contactsCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List known chat partners",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			reg := contacts.New(sess.Username(), wire.Replica, wire.Directory, wire.Cache, wire.Log)
			defer reg.Close()

			cached, err := reg.Load(nil)
			if err != nil {
				return err
			}
			// Give the live feed a moment to merge remote entries in.
			time.Sleep(wait)

			merged := reg.Contacts()
			if len(merged) == 0 {
				fmt.Println("No contacts yet. Use 'veilchat chat <partner>' to start one.")
				return nil
			}
			fresh := make(map[domain.ChannelID]bool, len(merged))
			for _, c := range merged {
				fresh[c.Channel] = true
			}
			for _, c := range cached {
				delete(fresh, c.Channel)
			}
			for _, c := range merged {
				marker := ""
				if fresh[c.Channel] {
					marker = " (new)"
				}
				fmt.Printf("%-32s %s%s\n", c.Partner, c.Channel, marker)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to wait for remote entries")
	return cmd
}
